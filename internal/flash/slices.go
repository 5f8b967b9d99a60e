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

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// generateMandatorySlices implements spec 4.7 step 5 for one absent,
// sliced, mandatory child: each of its mandatory slices is evaluated as
// a virtual rule — a synthetic flash-rule node at the slice's refKey
// with no inline expression or subrules, so the slice's fixed/pattern
// values are the only content it can produce. Generated values are
// written into obj under the child's json key; a mandatory slice whose
// virtual rule yields nothing is reported as F5140 through the policy
// engine.
func generateMandatorySlices(ctx context.Context, ev *eval.Evaluator, c *resolver.Element, obj *OrderedObject, parentRef string, input any, fr *eval.Frame, pos token.Pos) error {
	var generated []any
	for _, sliceName := range c.SliceNames {
		sliceKey := childRefKey(parentRef, lastPathSegment(c.Path)+"["+sliceName+"]")
		sliceEl, ok := ev.Defs.Element(sliceKey)
		if !ok || sliceEl.IsError {
			if err := handleDiag(ev, fr.Global().ExecutionID, "F5140", pos, c,
				map[string]any{"slice": sliceName, "fhirElement": c.Path}); err != nil {
				return err
			}
			continue
		}
		if sliceEl.Min < 1 {
			continue
		}
		virtual := ast.NewFlashRule(pos)
		virtual.Name = lastPathSegment(c.Path)
		virtual.FlashPathRefKey = sliceKey
		virtual.IsVirtual = true
		results, err := evalFlashRule(ctx, ev, virtual, parentRef, input, fr)
		if err != nil {
			return err
		}
		produced := false
		for _, r := range results {
			if !sliceYieldedNothing(r.Value) {
				generated = append(generated, r.Value)
				produced = true
			}
		}
		if !produced {
			if err := handleDiag(ev, fr.Global().ExecutionID, "F5140", pos, c,
				map[string]any{"slice": sliceName, "fhirElement": c.Path}); err != nil {
				return err
			}
		}
	}
	if len(generated) == 0 {
		return nil
	}
	key := c.Names[0]
	if c.IsArray {
		existing, _ := obj.Get(key)
		arr, _ := existing.([]any)
		obj.Set(key, append(arr, generated...))
		return nil
	}
	obj.Set(key, generated[0])
	return nil
}

// sliceYieldedNothing decides whether a virtual rule produced real
// content: undefined values and empty assembled objects both count as
// nothing (an empty OrderedObject is what a complex-type slice with no
// fixed/pattern values assembles to).
func sliceYieldedNothing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *OrderedObject:
		return x.Len() == 0
	case *Primitive:
		return x.Value == nil && len(x.Siblings) == 0
	default:
		return value.IsUndefined(v)
	}
}

// childRefKey extends a parent reference into one of its children's
// refKeys, using "::" at the instanceof boundary and "." below it (the
// same scheme the rewriter and resolver build their keys with).
func childRefKey(parentRef, segment string) string {
	if parentRef == "" {
		return segment
	}
	for i := 0; i+1 < len(parentRef); i++ {
		if parentRef[i] == ':' && parentRef[i+1] == ':' {
			return parentRef + "." + segment
		}
	}
	return parentRef + "::" + segment
}
