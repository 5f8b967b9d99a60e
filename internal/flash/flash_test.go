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

package flash

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrderedObjectPreservesInsertionOrder(t *testing.T) {
	o := NewOrderedObject()
	o.Set("z", 1.0)
	o.Set("a", 2.0)
	o.Set("m", 3.0)
	o.Set("z", 4.0) // overwrite keeps position

	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"z":4,"a":2,"m":3}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestOrderedObjectDelete(t *testing.T) {
	o := NewOrderedObject()
	o.Set("a", 1.0)
	o.Set("b", 2.0)
	o.Delete("a")
	if _, ok := o.Get("a"); ok {
		t.Fatalf("a should be gone")
	}
	if got := o.Keys(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("keys = %v, want [b]", got)
	}
}

func TestFlattenSplitsPrimitiveSiblings(t *testing.T) {
	o := NewOrderedObject()
	o.Set("status", &Primitive{Value: "final"})
	o.Set("issued", &Primitive{
		Value:    "2020-01-01",
		Siblings: map[string]any{"id": "ts"},
	})

	b, err := json.Marshal(Flatten(o))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"status":"final","issued":"2020-01-01","_issued":{"id":"ts"}}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestFlattenPrimitiveArrayDropsTrailingNulls(t *testing.T) {
	o := NewOrderedObject()
	o.Set("given", []any{
		&Primitive{Value: "A", Siblings: map[string]any{"id": "g1"}},
		&Primitive{Value: "B"},
	})
	b, err := json.Marshal(Flatten(o))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"given":["A","B"],"_given":[{"id":"g1"}]}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

// TestFlattenIdempotent covers spec 8's testable property 6: flattening
// an already-flat value returns an equal value.
func TestFlattenIdempotent(t *testing.T) {
	flat := map[string]any{
		"resourceType": "Patient",
		"name":         []any{map[string]any{"given": []any{"A"}}},
		"active":       true,
	}
	once := Flatten(flat)
	twice := Flatten(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("flatten not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFlattenBarePrimitiveCollapses(t *testing.T) {
	got := Flatten(&Primitive{Value: "x"})
	if got != "x" {
		t.Fatalf("got %v, want bare value x", got)
	}
}

func TestMergePatternDefaults(t *testing.T) {
	seed := map[string]any{
		"system": "http://explicit",
		"nested": map[string]any{"a": 1.0},
	}
	pattern := map[string]any{
		"system": "http://pattern",
		"code":   "c1",
		"nested": map[string]any{"a": 9.0, "b": 2.0},
	}
	got := mergePatternDefaults(seed, pattern)

	want := map[string]any{
		"system": "http://explicit",
		"code":   "c1",
		"nested": map[string]any{"a": 1.0, "b": 2.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestChildRefKey(t *testing.T) {
	cases := []struct {
		parent, segment, want string
	}{
		{"Patient", "identifier[mrn]", "Patient::identifier[mrn]"},
		{"Patient::name", "given", "Patient::name.given"},
		{"", "id", "id"},
	}
	for _, c := range cases {
		if got := childRefKey(c.parent, c.segment); got != c.want {
			t.Errorf("childRefKey(%q, %q) = %q, want %q", c.parent, c.segment, got, c.want)
		}
	}
}

func TestInjectBundleFullURL(t *testing.T) {
	res := NewOrderedObject()
	res.Set("resourceType", "Patient")
	res.Set("id", "p1")
	entry := NewOrderedObject()
	entry.Set("resource", res)

	bundle := NewOrderedObject()
	bundle.Set("resourceType", "Bundle")
	bundle.Set("type", "transaction")
	bundle.Set("entry", []any{entry})

	injectBundleFullURL(bundle)

	entries, _ := bundle.Get("entry")
	fixed := entries.([]any)[0].(*OrderedObject)
	fullURL, ok := fixed.Get("fullUrl")
	if !ok {
		t.Fatalf("fullUrl not injected: %v", fixed.Keys())
	}
	if fullURL != "Patient/p1" {
		t.Fatalf("fullUrl = %v, want Patient/p1", fullURL)
	}
	keys := fixed.Keys()
	if keys[0] != "fullUrl" || keys[1] != "resource" {
		t.Fatalf("fullUrl should precede resource, got %v", keys)
	}
}

func TestSliceYieldedNothing(t *testing.T) {
	if !sliceYieldedNothing(nil) {
		t.Errorf("nil should count as nothing")
	}
	if !sliceYieldedNothing(NewOrderedObject()) {
		t.Errorf("empty object should count as nothing")
	}
	if !sliceYieldedNothing(&Primitive{}) {
		t.Errorf("empty primitive should count as nothing")
	}
	full := NewOrderedObject()
	full.Set("system", "s")
	if sliceYieldedNothing(full) {
		t.Errorf("populated object should count as content")
	}
	if sliceYieldedNothing(&Primitive{Value: "x"}) {
		t.Errorf("populated primitive should count as content")
	}
}
