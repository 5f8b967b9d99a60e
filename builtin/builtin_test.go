// Copyright 2026 Fumifier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// call invokes a native directly with an empty CallContext; only pure
// natives (no Apply/EvalString dependence) are exercised this way.
func call(t *testing.T, fn func(*value.CallContext, []any) (any, error), args ...any) any {
	t.Helper()
	got, err := fn(&value.CallContext{}, args)
	if err != nil {
		t.Fatalf("native returned error: %v", err)
	}
	return got
}

func TestAggregateNatives(t *testing.T) {
	nums := []any{1.0, 2.0, 3.0, 4.0}
	if got := call(t, biSum, nums); got != 10.0 {
		t.Errorf("sum = %v, want 10", got)
	}
	if got := call(t, biCount, nums); got != 4.0 {
		t.Errorf("count = %v, want 4", got)
	}
	if got := call(t, biMax, nums); got != 4.0 {
		t.Errorf("max = %v, want 4", got)
	}
	if got := call(t, biMin, nums); got != 1.0 {
		t.Errorf("min = %v, want 1", got)
	}
	if got := call(t, biAverage, nums); got != 2.5 {
		t.Errorf("average = %v, want 2.5", got)
	}
}

func TestAppendReverseDistinct(t *testing.T) {
	got := call(t, biAppend, []any{1.0}, []any{2.0, 3.0})
	if diff := cmp.Diff([]any{1.0, 2.0, 3.0}, got); diff != "" {
		t.Errorf("append mismatch:\n%s", diff)
	}
	got = call(t, biReverse, []any{1.0, 2.0, 3.0})
	if diff := cmp.Diff([]any{3.0, 2.0, 1.0}, got); diff != "" {
		t.Errorf("reverse mismatch:\n%s", diff)
	}
	got = call(t, biDistinct, []any{1.0, 2.0, 1.0, 3.0, 2.0})
	if diff := cmp.Diff([]any{1.0, 2.0, 3.0}, got); diff != "" {
		t.Errorf("distinct mismatch:\n%s", diff)
	}
}

func TestSortDefaultComparator(t *testing.T) {
	got := call(t, biSort, []any{3.0, 1.0, 2.0})
	if diff := cmp.Diff([]any{1.0, 2.0, 3.0}, got); diff != "" {
		t.Errorf("sort mismatch:\n%s", diff)
	}
	got = call(t, biSort, []any{"b", "a", "c"})
	if diff := cmp.Diff([]any{"a", "b", "c"}, got); diff != "" {
		t.Errorf("string sort mismatch:\n%s", diff)
	}
}

func TestStringNatives(t *testing.T) {
	if got := call(t, biUppercase, "abc"); got != "ABC" {
		t.Errorf("uppercase = %v", got)
	}
	if got := call(t, biLowercase, "ABC"); got != "abc" {
		t.Errorf("lowercase = %v", got)
	}
	if got := call(t, biSubstringBefore, "a-b", "-"); got != "a" {
		t.Errorf("substringBefore = %v", got)
	}
	if got := call(t, biSubstringAfter, "a-b", "-"); got != "b" {
		t.Errorf("substringAfter = %v", got)
	}
	if got := call(t, biStartsWith, "hello", "he"); got != true {
		t.Errorf("startsWith = %v", got)
	}
	if got := call(t, biEndsWith, "hello", "lo"); got != true {
		t.Errorf("endsWith = %v", got)
	}
	if got := call(t, biInitCap, "john doe"); got != "John Doe" {
		t.Errorf("initCap = %v", got)
	}
	if got := call(t, biInitCapOnce, "john doe"); got != "John doe" {
		t.Errorf("initCapOnce = %v", got)
	}
	if got := call(t, biTrim, "  a  b  "); got != "a b" {
		t.Errorf("trim = %v, want JSONata whitespace normalization", got)
	}
}

func TestBase64AndURLNatives(t *testing.T) {
	enc := call(t, biBase64Encode, "hello")
	if enc != "aGVsbG8=" {
		t.Errorf("base64encode = %v", enc)
	}
	if got := call(t, biBase64Decode, enc); got != "hello" {
		t.Errorf("base64decode = %v", got)
	}
	encoded := call(t, biEncodeUrlComponent, "a b&c")
	if got := call(t, biDecodeUrlComponent, encoded); got != "a b&c" {
		t.Errorf("url component round-trip = %v", got)
	}
}

func TestMathNatives(t *testing.T) {
	if got := call(t, biFloor, 1.9); got != 1.0 {
		t.Errorf("floor = %v", got)
	}
	if got := call(t, biCeil, 1.1); got != 2.0 {
		t.Errorf("ceil = %v", got)
	}
	if got := call(t, biAbs, -3.0); got != 3.0 {
		t.Errorf("abs = %v", got)
	}
	if got := call(t, biSqrt, 16.0); got != 4.0 {
		t.Errorf("sqrt = %v", got)
	}
	if got := call(t, biPower, 2.0, 10.0); got != 1024.0 {
		t.Errorf("power = %v", got)
	}
	if got := call(t, biRound, 2.5); got != 2.0 {
		t.Errorf("round = %v, want banker's rounding to 2", got)
	}
	if got := call(t, biIsNumeric, 1.0); got != true {
		t.Errorf("isNumeric(1) = %v", got)
	}
	if got := call(t, biIsNumeric, "x"); got != false {
		t.Errorf("isNumeric(x) = %v", got)
	}
}

func TestLogicNatives(t *testing.T) {
	if got := call(t, biBoolean, 0.0); got != false {
		t.Errorf("boolean(0) = %v", got)
	}
	if got := call(t, biNot, 0.0); got != true {
		t.Errorf("not(0) = %v", got)
	}
	if got := call(t, biType, "s"); got != "string" {
		t.Errorf("type = %v", got)
	}
	if got := call(t, biType, []any{}); got != "array" {
		t.Errorf("type = %v", got)
	}
}

func TestUuidNative(t *testing.T) {
	got := call(t, biUuid).(string)
	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !re.MatchString(got) {
		t.Errorf("uuid = %q, want a v4 UUID", got)
	}
}

func TestHashNativeIsStable(t *testing.T) {
	a := call(t, biHash, "payload").(string)
	b := call(t, biHash, "payload").(string)
	if a != b {
		t.Errorf("hash should be deterministic: %q vs %q", a, b)
	}
	if len(a) == 0 || strings.ContainsAny(a, " \t\n") {
		t.Errorf("hash output looks malformed: %q", a)
	}
}

func TestNewRootFrameRegistersEverything(t *testing.T) {
	root := NewRootFrame()
	for _, name := range []string{
		"sum", "count", "max", "min", "average", "append", "reverse",
		"sort", "shuffle", "distinct", "keys", "lookup", "exists",
		"spread", "merge", "zip", "each", "sift", "map", "filter",
		"first", "single", "reduce", "pMap", "pLimit",
		"string", "substring", "substringBefore", "substringAfter",
		"lowercase", "uppercase", "length", "trim", "pad", "match",
		"contains", "replace", "split", "join", "formatNumber",
		"formatBase", "startsWith", "endsWith", "initCap", "initCapOnce",
		"base64encode", "base64decode", "encodeUrl", "encodeUrlComponent",
		"decodeUrl", "decodeUrlComponent",
		"number", "floor", "ceil", "round", "abs", "sqrt", "power",
		"random", "isNumeric", "hash",
		"now", "millis", "toMillis", "fromMillis", "formatInteger",
		"parseInteger", "rightNow", "wait",
		"boolean", "not", "type", "error", "assert", "eval", "clone",
		"uuid", "reference", "trace", "warn", "info",
	} {
		v, ok := root.Lookup(name)
		if !ok {
			t.Errorf("native %q not registered", name)
			continue
		}
		fn, ok := v.(*value.Function)
		if !ok {
			t.Errorf("native %q bound to %T, want *value.Function", name, v)
			continue
		}
		if fn.Native == nil {
			t.Errorf("native %q has no implementation", name)
		}
	}
}
