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

// Package value defines fumifier's runtime value representation and
// the sequence/coercion helpers the evaluator and native function
// library share (spec component E). JSON values are represented with
// plain Go types (nil, bool, float64/*apd.Decimal, string,
// []any, map[string]any, *Sequence, *Function) rather than a boxed
// tagged union — mirroring how cue/internal/core/adt keeps CUE values
// as concrete Go structs but, for the JSON-shaped leaves fumifier
// actually needs, collapsing to the builtin dynamic types Go's
// encoding/json already produces, which keeps FHIR resource assembly
// (spec 4.7) working directly against map[string]any without a
// marshal/unmarshal round trip at every step.
package value

import (
	"math"

	"github.com/cockroachdb/apd/v3"
)

// Sequence is JSONata's flattened result list: the output of a path
// expression is always a Sequence, collapsed to a bare scalar when it
// holds exactly one item unless KeepSingleton is set (spec 4.5,
// "path").
type Sequence struct {
	Items         []any
	KeepSingleton bool

	// Outer marks a sequence created to wrap the root input context
	// ($) rather than produced by path evaluation; `$` with no name
	// unwraps exactly one level of Outer wrapping (spec 4.5,
	// "variable").
	Outer bool
}

// NewSequence builds a Sequence from the given items.
func NewSequence(items ...any) *Sequence { return &Sequence{Items: items} }

// Push appends v to the sequence, flattening v itself if it is already
// a *Sequence (JSONata path evaluation never nests sequences).
func (s *Sequence) Push(v any) {
	if inner, ok := v.(*Sequence); ok {
		s.Items = append(s.Items, inner.Items...)
		return
	}
	s.Items = append(s.Items, v)
}

// Len reports the number of items.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// Collapse returns the sequence's "display" value: undefined (nil) for
// an empty sequence, the bare item for a single-item sequence (unless
// KeepSingleton), or the sequence itself otherwise.
func Collapse(v any) any {
	s, ok := v.(*Sequence)
	if !ok {
		return v
	}
	switch {
	case len(s.Items) == 0:
		return nil
	case len(s.Items) == 1 && !s.KeepSingleton:
		return s.Items[0]
	default:
		return s
	}
}

// ToSlice normalizes any value into a flat Go slice for iteration:
// nil becomes an empty slice, a *Sequence/[]any pass through their
// items, and any other value becomes a one-element slice.
func ToSlice(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case *Sequence:
		return x.Items
	case []any:
		return x
	default:
		return []any{x}
	}
}

// IsUndefined reports whether v represents JSONata's "undefined" —
// fumifier uses Go nil and empty sequences interchangeably for it.
func IsUndefined(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(*Sequence); ok {
		return len(s.Items) == 0
	}
	return false
}

// IsTruthy implements JSONata's boolean-coercion rule used by filters,
// conditionals, and `and`/`or` (spec 4.5): undefined/empty/false/0/""
// are falsy; a non-empty array/sequence is truthy if any member is
// truthy; everything else is truthy.
func IsTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case *apd.Decimal:
		return !x.IsZero()
	case []any:
		for _, e := range x {
			if IsTruthy(e) {
				return true
			}
		}
		return false
	case *Sequence:
		for _, e := range x.Items {
			if IsTruthy(e) {
				return true
			}
		}
		return false
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// ToFloat64 coerces a numeric runtime value to float64 for arithmetic
// that does not need apd's arbitrary precision (comparisons, array
// indices, loop bounds).
func ToFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case *apd.Decimal:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// IsInteger reports whether f has no fractional part and is within
// safe integer range, used by the range operator and array indexing
// (spec 4.5, "range").
func IsInteger(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Trunc(f) == f
}

// DeepEqual reports structural equality between two runtime values as
// JSONata's `=` operator and `distinct`/`contains` need it (numbers
// compare by value regardless of float64 vs *apd.Decimal
// representation).
func DeepEqual(a, b any) bool {
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if aok && bok {
		return af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !DeepEqual(v, bvv) {
				return false
			}
		}
		return true
	}
	return false
}
