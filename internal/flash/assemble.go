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
	"context"
	"sort"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// assembleInstance builds the top-level object for a FlashBlock (spec
// 4.7 step 3's resource/complex-type branch, applied at the block
// level): evaluate every rule slot, group by child key, assign
// resourceType/meta.profile/id, enforce mandatory children, and order
// the result FHIR-style.
func assembleInstance(ctx context.Context, ev *eval.Evaluator, fr *eval.Frame, spec assembleSpec, input any) (*OrderedObject, error) {
	childResults, err := evalRuleSlice(ctx, ev, spec.Rules, spec.RefPrefix, input, fr)
	if err != nil {
		return nil, err
	}

	byKey := regroupByKey(childResults)
	children := ev.Defs.Children(spec.RefPrefix)
	out := NewOrderedObject()
	assignChildren(out, byKey, children)

	if err := checkMandatoryChildren(ctx, ev, children, out, spec.RefPrefix, input, fr, token.NoPos); err != nil {
		return nil, err
	}

	if spec.InstanceID != nil {
		out.Set("id", spec.InstanceID)
	}

	resourceType := ""
	if spec.Kind == resolver.KindResource {
		if tm, ok := ev.Defs.Type(spec.RefPrefix); ok {
			resourceType = tm.Type
			if tm.IsProfile() {
				injectMetaProfile(out, tm.URL)
			}
		}
	}

	return reorderForFhir(out, resourceType), nil
}

// finishComplexAssembly implements spec 4.7 step 3's complex-type/
// resource branch for a nested FlashRule (e.g. `* name.family = ...`
// with subrules building a HumanName): merge the inline seed, assign
// grouped children, enforce mandatory children, and order the result.
func finishComplexAssembly(ctx context.Context, ev *eval.Evaluator, el *resolver.Element, seed map[string]any, childResults map[string][]RuleResult, input any, fr *eval.Frame, pos token.Pos) (*OrderedObject, error) {
	byKey := regroupByKey(childResults)
	children := ev.Defs.Children(el.FlashPathRefKey)

	out := NewOrderedObject()
	seedKeys := make([]string, 0, len(seed))
	for k := range seed {
		seedKeys = append(seedKeys, k)
	}
	sort.Strings(seedKeys)
	for _, k := range seedKeys {
		out.Set(k, seed[k])
	}
	assignChildren(out, byKey, children)

	if err := checkMandatoryChildren(ctx, ev, children, out, el.FlashPathRefKey, input, fr, pos); err != nil {
		return nil, err
	}

	return out, nil
}

// regroupByKey flattens the groupKey()-bucketed ("key" or
// "key:sliceName") RuleResult map down to one bucket per plain json
// key, preserving the evaluation order of its members.
func regroupByKey(grouped map[string][]RuleResult) map[string][]RuleResult {
	out := make(map[string][]RuleResult, len(grouped))
	for _, gk := range sortedKeys(grouped) {
		for _, r := range grouped[gk] {
			out[r.Key] = append(out[r.Key], r)
		}
	}
	return out
}

// assignChildren writes each grouped key's collapsed value into obj in
// the FHIR-defined children order (spec 4.7 step 8: "order is restored
// at assignment time using the FHIR-defined children order"), consulting
// each child's resolved cardinality to decide array-vs-scalar and
// primitive-splitting. Keys with no resolved definition (inline
// properties on an unconstrained seed) land after the defined ones, in
// sorted order for determinism.
func assignChildren(obj *OrderedObject, byKey map[string][]RuleResult, children []*resolver.Element) {
	assigned := make(map[string]bool, len(byKey))
	for _, c := range children {
		for _, nm := range c.Names {
			results, ok := byKey[nm]
			if !ok || assigned[nm] || len(results) == 0 {
				continue
			}
			assigned[nm] = true
			assignOne(obj, nm, results, c)
		}
	}
	var rest []string
	for k := range byKey {
		if !assigned[k] && len(byKey[k]) > 0 {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		assignOne(obj, k, byKey[k], nil)
	}
}

func assignOne(obj *OrderedObject, key string, results []RuleResult, el *resolver.Element) {
	isArray := len(results) > 1
	if el != nil {
		isArray = isArray || el.IsArray
	}
	collapsed := collapseResults(results, isArray)
	if el != nil && el.Kind == resolver.KindPrimitiveType {
		splitPrimitiveIntoOrdered(obj, key, collapsed)
		return
	}
	obj.Set(key, collapsed)
}

// collapseResults reduces a key's RuleResults to the single value or
// array that key's assembled slot holds.
func collapseResults(results []RuleResult, isArray bool) any {
	if !isArray {
		return results[0].Value
	}
	arr := make([]any, 0, len(results))
	for _, r := range results {
		arr = append(arr, r.Value)
	}
	return arr
}

// checkMandatoryChildren implements spec 4.7 steps 5-6: a slice-bearing
// mandatory child missing every one of its slices first gets each
// mandatory slice auto-generated via a virtual rule (F5140 per slice
// that yields nothing); any other resolved child with Min>=1 that never
// received a value is reported as F5130 through the policy engine.
// Array-typed elements satisfy the check via any present slice of their
// base name, since slices share the base element's json key.
func checkMandatoryChildren(ctx context.Context, ev *eval.Evaluator, children []*resolver.Element, obj *OrderedObject, parentRef string, input any, fr *eval.Frame, pos token.Pos) error {
	for _, c := range children {
		if c.Min < 1 {
			continue
		}
		present := false
		for _, nm := range c.Names {
			if v, ok := obj.Get(nm); ok && !value.IsUndefined(v) {
				present = true
				break
			}
		}
		if present {
			continue
		}
		if len(c.SliceNames) > 0 {
			if err := generateMandatorySlices(ctx, ev, c, obj, parentRef, input, fr, pos); err != nil {
				return err
			}
			continue
		}
		if err := ev.Policy.Handle(ev.Diagnostics, ev.Logger, fr.Global().ExecutionID, "F5130", pos,
			fumierr.FhirContext{FhirElement: c.Path}, map[string]any{"fhirElement": c.Path, "min": c.Min}); err != nil {
			return err
		}
	}
	return nil
}

// mergePatternDefaults deep-merges a pattern[x] object's fixed
// sub-values as defaults underneath an explicitly assembled seed (spec
// 4.4/4.7, "pattern value... merged as defaults rather than short-
// circuiting assembly" — unlike fixedValue, a pattern only supplies
// values the rule's own rules didn't already set).
func mergePatternDefaults(seed map[string]any, pattern map[string]any) map[string]any {
	out := make(map[string]any, len(seed)+len(pattern))
	for k, v := range pattern {
		out[k] = v
	}
	for k, v := range seed {
		if existing, ok := out[k]; ok {
			if em, ok1 := existing.(map[string]any); ok1 {
				if vm, ok2 := v.(map[string]any); ok2 {
					out[k] = mergePatternDefaults(vm, em)
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}

// wrapFixedOrPattern builds the short-circuit value for a fixed-value
// element (spec 4.7 step 1, "fixed value short-circuits assembly"):
// a system element keeps the bare Go value, a primitive gets the two-
// key wrapper, anything else (a fixed complex-type object, rare but
// legal) passes through untouched.
func wrapFixedOrPattern(el *resolver.Element, v any) any {
	switch el.Kind {
	case resolver.KindPrimitiveType:
		return NewPrimitive(normalizeFhirPrimitiveScalar(el, v))
	default:
		return v
	}
}

// normalizeFhirPrimitiveScalar coerces an inline expression's result
// into the Go representation its FHIR primitive type code expects —
// JSONata arithmetic always yields float64, but integer/positiveInt/
// unsignedInt must serialize without a decimal point.
func normalizeFhirPrimitiveScalar(el *resolver.Element, v any) any {
	if v == nil {
		return nil
	}
	switch el.FhirTypeCode {
	case "integer", "positiveInt", "unsignedInt", "integer64":
		if f, ok := value.ToFloat64(v); ok {
			return int64(f)
		}
	}
	return v
}

// attachSiblings folds a primitive element's own subrules (`.id`,
// `.extension`) into its Siblings map, keyed by plain json name
// regardless of any slicing on `.extension` (spec 3, "FhirPrimitive{
// value, siblings }").
func attachSiblings(prim *Primitive, childResults map[string][]RuleResult) {
	byKey := regroupByKey(childResults)
	if len(byKey) == 0 {
		return
	}
	prim.Siblings = make(map[string]any, len(byKey))
	for _, k := range sortedKeys(byKey) {
		results := byKey[k]
		isArray := k == "extension" || len(results) > 1
		prim.Siblings[k] = collapseResults(results, isArray)
	}
}

func injectMetaProfile(obj *OrderedObject, profileURL string) {
	meta, _ := obj.Get("meta")
	m, _ := meta.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	profiles, _ := m["profile"].([]any)
	m["profile"] = append(profiles, profileURL)
	obj.Set("meta", m)
}
