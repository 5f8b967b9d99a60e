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

package fumifier_test

import (
	"context"
	"testing"

	"github.com/mechanik-daniel/fumifier"
)

// TestPMapPreservesOrder exercises $pMap's concurrency contract (spec
// 5): output order matches input order regardless of goroutine
// scheduling.
func TestPMapPreservesOrder(t *testing.T) {
	got := items(eval(t, `$pMap([1, 2, 3, 4, 5], function($v){ $v * 2 })`, nil))
	want := []any{2.0, 4.0, 6.0, 8.0, 10.0}
	if len(got) != len(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	}
}

// TestPLimitPreservesOrder exercises $pLimit's bounded-concurrency map.
func TestPLimitPreservesOrder(t *testing.T) {
	got := items(eval(t, `$pLimit([1, 2, 3, 4], 2, function($v){ $v + 1 })`, nil))
	want := []any{2.0, 3.0, 4.0, 5.0}
	if len(got) != len(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	}
}

// TestEvalNative exercises $eval's inner parse+evaluate (spec 4.9).
func TestEvalNative(t *testing.T) {
	if got := eval(t, `$eval("1 + 2")`, nil); got != 3.0 {
		t.Fatalf("got %v, want 3", got)
	}
	if got := eval(t, `$eval("a + 1", {"a": 41})`, nil); got != 42.0 {
		t.Fatalf("got %v, want 42", got)
	}
}

// TestEvalNativeSyntaxError: inner syntax errors surface as D3120.
func TestEvalNativeSyntaxError(t *testing.T) {
	expr, err := fumifier.Compile(`$eval("1 +")`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := expr.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected a D3120 for an inner syntax error")
	}
}

// TestTailCallTrampoline covers the trampoline (spec 4.3/4.5): a
// tail-recursive accumulator deep enough to overflow any plausible Go
// stack if each call consumed a frame.
func TestTailCallTrampoline(t *testing.T) {
	src := `($f := function($n, $acc){ $n = 0 ? $acc : $f($n - 1, $acc + $n) }; $f(100000, 0))`
	got := eval(t, src, nil)
	if got != 5000050000.0 {
		t.Fatalf("got %v, want 5000050000", got)
	}
}

// TestMillisStability covers spec 8's testable property #3: $millis()
// returns the same value throughout a single evaluation.
func TestMillisStability(t *testing.T) {
	got := eval(t, `$millis() = $millis()`, nil)
	if got != true {
		t.Fatalf("got %v, want the timestamp to be stable within one call", got)
	}
}

// TestTransformOperator exercises |pattern|update|delete| applied via ~>.
func TestTransformOperator(t *testing.T) {
	input := map[string]any{"status": "open", "note": "n"}
	got := eval(t, `$ ~> |$|{"status": "closed"}|"note"|`, input)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map: %#v", got, got)
	}
	if m["status"] != "closed" {
		t.Fatalf("update not applied: %#v", m)
	}
	if _, hasNote := m["note"]; hasNote {
		t.Fatalf("delete not applied: %#v", m)
	}
	if input["status"] != "open" {
		t.Fatalf("transform must act on a clone, not the original input")
	}
}

// TestPartialApplication exercises `fn(5, ?)`-style partials.
func TestPartialApplication(t *testing.T) {
	src := `($add := function($a, $b){ $a + $b }; $add5 := $add(5, ?); $add5(3))`
	if got := eval(t, src, nil); got != 8.0 {
		t.Fatalf("got %v, want 8", got)
	}
}

// TestHigherOrderNatives exercises $map/$filter/$reduce with lambdas.
func TestHigherOrderNatives(t *testing.T) {
	got := items(eval(t, `$map([1, 2, 3], function($v){ $v * $v })`, nil))
	want := []any{1.0, 4.0, 9.0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("map: got %#v, want %#v", got, want)
		}
	}

	got = items(eval(t, `$filter([1, 2, 3, 4], function($v){ $v % 2 = 0 })`, nil))
	want = []any{2.0, 4.0}
	if len(got) != len(want) {
		t.Fatalf("filter: got %#v, want %#v", got, want)
	}

	if got := eval(t, `$reduce([1, 2, 3, 4], function($a, $b){ $a + $b }, 0)`, nil); got != 10.0 {
		t.Fatalf("reduce: got %v, want 10", got)
	}
}

// TestWarnCollectsDiagnostic: $warn routes F5320 (severity 32, a
// warning) into the verbose report's warning bucket without failing the
// evaluation.
func TestWarnCollectsDiagnostic(t *testing.T) {
	expr, err := fumifier.Compile(`($warn("heads up"); 1)`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	report := expr.EvaluateVerbose(context.Background(), nil, nil)
	if report.Err != nil {
		t.Fatalf("a warning must not fail the call: %v", report.Err)
	}
	if report.Result != 1.0 {
		t.Fatalf("result = %v, want 1", report.Result)
	}
	found := false
	for _, e := range report.Diagnostics.Warning {
		if e.Code == "F5320" && e.Message == "heads up" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an F5320 warning entry, got %+v", report.Diagnostics.Warning)
	}
}

// TestTraceReturnsInput: $trace passes its input through unchanged and
// records an F5600 debug entry.
func TestTraceReturnsInput(t *testing.T) {
	expr, err := fumifier.Compile(`$trace(21) * 2`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	report := expr.EvaluateVerbose(context.Background(), nil, nil)
	if report.Err != nil {
		t.Fatalf("Evaluate: %v", report.Err)
	}
	if report.Result != 42.0 {
		t.Fatalf("result = %v, want 42", report.Result)
	}
	if len(report.Diagnostics.Debug) == 0 {
		t.Fatalf("expected an F5600 debug entry")
	}
}

// TestDescendantOperator exercises `**`.
func TestDescendantOperator(t *testing.T) {
	input := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1.0}},
	}
	got := items(eval(t, `$.**.c`, input))
	if len(got) != 1 || got[0] != 1.0 {
		t.Fatalf("got %#v, want [1]", got)
	}
}

// TestExecutionIDBound: $executionId is bound per call and differs
// between calls.
func TestExecutionIDBound(t *testing.T) {
	expr, err := fumifier.Compile(`$executionId`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	a, err := expr.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	b, err := expr.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok || as == "" || bs == "" {
		t.Fatalf("executionId should be a non-empty string: %v / %v", a, b)
	}
	if as == bs {
		t.Fatalf("two calls must not share an execution id")
	}
}
