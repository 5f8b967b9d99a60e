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

// Package flash implements spec component I, the FLASH evaluator: the
// per-rule/per-block evaluation algorithm (spec 4.7) that the tree-
// walking evaluator (internal/eval) delegates to via its FlashHook
// indirection whenever it reaches a FlashBlock/FlashRule node. Its
// context/assemble/validate split mirrors gofhir-validator's
// pkg/validator.Validator, which separates "what type is this element"
// (context), "build the value" (assemble), and "is the built value
// legal" (validate) into distinct phases rather than one monolithic
// recursive function.
package flash

// Primitive is the runtime wrapper for a FHIR primitive value (spec 3,
// "FHIR primitive"; spec 9, "Replace the non-enumerable
// @@__fhirPrimitive marker with an explicit wrapper record
// FhirPrimitive{value, siblings}"). Value holds the primitive JSON
// value (string/bool/float64, or int64 for the integer-family FHIR
// types); Siblings holds any `id`/`extension`
// companion properties destined for the paired `_key` object.
type Primitive struct {
	Value    any
	Siblings map[string]any
}

// NewPrimitive wraps v with no siblings.
func NewPrimitive(v any) *Primitive { return &Primitive{Value: v} }

// IsPrimitive reports whether v is a *Primitive wrapper.
func IsPrimitive(v any) bool {
	_, ok := v.(*Primitive)
	return ok
}

// Flatten converts a value tree that may contain *Primitive wrappers
// into plain FHIR JSON (spec 4.7 step 9, "Primitive flattening"): every
// intermediate primitive becomes its two-key form (`key`/`_key`),
// trailing nulls are dropped from arrays, and a primitive with no
// siblings collapses to the bare value. Flattening an already-flat
// value is idempotent (spec 8, testable property 6), since Flatten only
// ever acts on *Primitive/map/slice shapes and passes everything else
// through unchanged.
func Flatten(v any) any {
	switch x := v.(type) {
	case *Primitive:
		if len(x.Siblings) == 0 {
			return Flatten(x.Value)
		}
		return x // caller (object assembly) splits this into key/_key
	case *OrderedObject:
		out := NewOrderedObject()
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			switch p := Flatten(val).(type) {
			case *Primitive, []any:
				splitPrimitiveIntoOrdered(out, k, p)
			default:
				out.Set(k, p)
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			switch p := Flatten(val).(type) {
			case *Primitive, []any:
				splitPrimitiveInto(out, k, p)
			default:
				out[k] = p
			}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Flatten(val)
		}
		return dropTrailingNulls(out)
	default:
		return v
	}
}

func dropTrailingNulls(arr []any) []any {
	end := len(arr)
	for end > 0 && arr[end-1] == nil {
		end--
	}
	return arr[:end]
}

// splitPrimitiveInto writes key/_key entries for v (a *Primitive, a
// slice of possibly-*Primitive elements, or a plain value) into obj,
// implementing the two-key JSON split FHIR primitives use on the wire.
func splitPrimitiveInto(obj map[string]any, key string, v any) {
	switch x := v.(type) {
	case *Primitive:
		if x.Value != nil {
			obj[key] = Flatten(x.Value)
		}
		if len(x.Siblings) > 0 {
			obj["_"+key] = Flatten(x.Siblings)
		}
	case []any:
		values := make([]any, len(x))
		siblings := make([]any, len(x))
		anySibling := false
		for i, e := range x {
			if p, ok := e.(*Primitive); ok {
				values[i] = Flatten(p.Value)
				if len(p.Siblings) > 0 {
					siblings[i] = Flatten(p.Siblings)
					anySibling = true
				}
			} else {
				values[i] = Flatten(e)
			}
		}
		obj[key] = dropTrailingNulls(values)
		if anySibling {
			obj["_"+key] = dropTrailingNulls(siblings)
		}
	default:
		obj[key] = Flatten(v)
	}
}

// splitPrimitiveIntoOrdered is splitPrimitiveInto for an OrderedObject
// target, preserving key order (the key/_key pair lands wherever key
// was already positioned).
func splitPrimitiveIntoOrdered(obj *OrderedObject, key string, v any) {
	switch x := v.(type) {
	case *Primitive:
		if x.Value != nil {
			obj.Set(key, Flatten(x.Value))
		}
		if len(x.Siblings) > 0 {
			obj.Set("_"+key, Flatten(x.Siblings))
		}
	case []any:
		values := make([]any, len(x))
		siblings := make([]any, len(x))
		anySibling := false
		for i, e := range x {
			if p, ok := e.(*Primitive); ok {
				values[i] = Flatten(p.Value)
				if len(p.Siblings) > 0 {
					siblings[i] = Flatten(p.Siblings)
					anySibling = true
				}
			} else {
				values[i] = Flatten(e)
			}
		}
		obj.Set(key, dropTrailingNulls(values))
		if anySibling {
			obj.Set("_"+key, dropTrailingNulls(siblings))
		}
	default:
		obj.Set(key, Flatten(v))
	}
}
