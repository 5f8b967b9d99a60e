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

package value

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
)

func TestCollapse(t *testing.T) {
	if got := Collapse(NewSequence()); got != nil {
		t.Errorf("Collapse(empty) = %v, want nil", got)
	}
	if got := Collapse(NewSequence(1.0)); got != 1.0 {
		t.Errorf("Collapse(single) = %v, want 1.0", got)
	}
	kept := &Sequence{Items: []any{1.0}, KeepSingleton: true}
	if got := Collapse(kept); got != kept {
		t.Errorf("Collapse(kept singleton) = %v, want the sequence itself", got)
	}
	many := NewSequence(1.0, 2.0)
	if got := Collapse(many); got != many {
		t.Errorf("Collapse(multi) = %v, want the sequence itself", got)
	}
	if got := Collapse("plain"); got != "plain" {
		t.Errorf("Collapse(non-sequence) = %v, want passthrough", got)
	}
}

func TestSequencePush(t *testing.T) {
	s := NewSequence(1.0)
	s.Push(2.0)
	s.Push(NewSequence(3.0, 4.0))
	want := []any{1.0, 2.0, 3.0, 4.0}
	if len(s.Items) != len(want) {
		t.Fatalf("got %#v, want %#v", s.Items, want)
	}
	for i := range want {
		if s.Items[i] != want[i] {
			t.Fatalf("got %#v, want %#v", s.Items, want)
		}
	}
}

func TestToSlice(t *testing.T) {
	if got := ToSlice(nil); got != nil {
		t.Errorf("ToSlice(nil) = %#v, want nil", got)
	}
	if got := ToSlice([]any{1.0, 2.0}); len(got) != 2 {
		t.Errorf("ToSlice(slice) = %#v, want len 2", got)
	}
	if got := ToSlice(NewSequence(1.0, 2.0)); len(got) != 2 {
		t.Errorf("ToSlice(sequence) = %#v, want len 2", got)
	}
	if got := ToSlice(5.0); len(got) != 1 || got[0] != 5.0 {
		t.Errorf("ToSlice(scalar) = %#v, want [5.0]", got)
	}
}

func TestIsUndefined(t *testing.T) {
	if !IsUndefined(nil) {
		t.Error("nil should be undefined")
	}
	if !IsUndefined(NewSequence()) {
		t.Error("empty sequence should be undefined")
	}
	if IsUndefined(NewSequence(1.0)) {
		t.Error("non-empty sequence should not be undefined")
	}
	if IsUndefined(0.0) {
		t.Error("0.0 should not be undefined")
	}
	if IsUndefined("") {
		t.Error("empty string should not be undefined")
	}
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{0.0, false},
		{1.0, true},
		{[]any{}, false},
		{[]any{0.0, false}, false},
		{[]any{0.0, "x"}, true},
		{map[string]any{}, false},
		{map[string]any{"a": 1}, true},
		{NewSequence(), false},
		{NewSequence(0.0), false},
		{NewSequence(1.0), true},
	}
	for _, c := range cases {
		if got := IsTruthy(c.v); got != c.want {
			t.Errorf("IsTruthy(%#v) = %v, want %v", c.v, got, c.want)
		}
	}
	zero := apd.New(0, 0)
	if IsTruthy(zero) {
		t.Error("zero apd.Decimal should be falsy")
	}
	one := apd.New(1, 0)
	if !IsTruthy(one) {
		t.Error("non-zero apd.Decimal should be truthy")
	}
}

func TestToFloat64(t *testing.T) {
	if f, ok := ToFloat64(3.5); !ok || f != 3.5 {
		t.Errorf("ToFloat64(3.5) = %v, %v", f, ok)
	}
	if f, ok := ToFloat64(3); !ok || f != 3.0 {
		t.Errorf("ToFloat64(int 3) = %v, %v", f, ok)
	}
	d, _, err := apd.NewFromString("2.5")
	if err != nil {
		t.Fatalf("apd.NewFromString: %v", err)
	}
	if f, ok := ToFloat64(d); !ok || f != 2.5 {
		t.Errorf("ToFloat64(apd 2.5) = %v, %v", f, ok)
	}
	if _, ok := ToFloat64("not a number"); ok {
		t.Error("ToFloat64(string) should report false")
	}
}

func TestIsInteger(t *testing.T) {
	if !IsInteger(5.0) {
		t.Error("5.0 should be an integer")
	}
	if IsInteger(5.5) {
		t.Error("5.5 should not be an integer")
	}
}

func TestDeepEqual(t *testing.T) {
	d, _, _ := apd.NewFromString("3")
	cases := []struct {
		a, b any
		want bool
	}{
		{1.0, 1.0, true},
		{1.0, 2.0, false},
		{3.0, d, true},
		{"a", "a", true},
		{"a", "b", false},
		{true, true, true},
		{true, false, false},
		{nil, nil, true},
		{nil, 0.0, false},
		{[]any{1.0, 2.0}, []any{1.0, 2.0}, true},
		{[]any{1.0, 2.0}, []any{1.0, 3.0}, false},
		{[]any{1.0}, []any{1.0, 2.0}, false},
		{map[string]any{"a": 1.0}, map[string]any{"a": 1.0}, true},
		{map[string]any{"a": 1.0}, map[string]any{"a": 2.0}, false},
		{map[string]any{"a": 1.0}, map[string]any{"b": 1.0}, false},
	}
	for _, c := range cases {
		if got := DeepEqual(c.a, c.b); got != c.want {
			t.Errorf("DeepEqual(%#v, %#v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
