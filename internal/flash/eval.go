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
	"strings"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// Evaluate is the eval.FlashHook implementation: the entry point the
// tree-walking evaluator calls whenever it reaches a FlashBlock or
// FlashRule node (spec 4.7).
func Evaluate(ctx context.Context, ev *eval.Evaluator, n ast.Node, input any, fr *eval.Frame) (any, error) {
	switch v := n.(type) {
	case *ast.FlashBlock:
		return evalBlock(ctx, ev, v, input, fr)
	case *ast.FlashRule:
		return evalStandaloneRule(ctx, ev, v, input, fr)
	}
	return nil, fumierr.New("F3003", n.Pos(), map[string]any{"kind": "unknown"})
}

// evalBlock implements spec 4.7 for an `Instance:`/`InstanceOf:` block:
// it resolves the instance's type, evaluates its rules, assembles the
// result by kind (resource vs complex-type), injects resourceType/
// meta.profile, enforces mandatory children, and orders keys.
func evalBlock(ctx context.Context, ev *eval.Evaluator, n *ast.FlashBlock, input any, fr *eval.Frame) (any, error) {
	typeMeta, ok := ev.Defs.Type(n.InstanceOf)
	if !ok {
		return nil, fumierr.New("F3001", n.Pos(), map[string]any{"path": n.InstanceOf})
	}

	blockFr := fr.NewChildFrame()

	var instanceID any
	if n.InstanceExpr != nil {
		v, err := ev.Eval(ctx, n.InstanceExpr, input, blockFr)
		if err != nil {
			return nil, err
		}
		instanceID = value.Collapse(v)
	}

	kind := resolver.Kind(typeMeta.Kind)
	result, err := assembleInstance(ctx, ev, blockFr, assembleSpec{
		Kind:       kind,
		RefPrefix:  n.InstanceOf,
		Rules:      n.Rules,
		InstanceID: instanceID,
	}, input)
	if err != nil {
		return nil, err
	}
	return Flatten(result), nil
}

// evalStandaloneRule handles a FlashRule reached directly (not through
// the normal block/child dispatch) — spec 4.3 guarantees every
// FlashRule below the root is consumed by evalRuleEntry instead, so
// this path is only hit for a malformed/unresolved AST.
func evalStandaloneRule(ctx context.Context, ev *eval.Evaluator, n *ast.FlashRule, input any, fr *eval.Frame) (any, error) {
	results, err := evalRuleEntry(ctx, ev, n, "", input, fr)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return Flatten(results[0].Value), nil
}

// evalRuleEntry dispatches one rule-slot node (spec 4.7 step 2): a
// `$x := expr` bind is executed and discarded; a FlashRule produces one
// or more RuleResults, first re-pointing input at its optional
// `(expr).` context if present. A contextualized rule (the binary "."
// wrapper the post-parse pass builds) evaluates its rule once per
// context item, yielding one result per item.
func evalRuleEntry(ctx context.Context, ev *eval.Evaluator, n ast.Node, refPrefix string, input any, fr *eval.Frame) ([]RuleResult, error) {
	if b, ok := n.(*ast.Binary); ok && b.Op == "." {
		if rule, isRule := b.RHS.(*ast.FlashRule); isRule {
			ctxVal, err := ev.Eval(ctx, b.LHS, input, fr)
			if err != nil {
				return nil, err
			}
			var out []RuleResult
			for _, item := range value.ToSlice(value.Collapse(ctxVal)) {
				results, err := evalFlashRule(ctx, ev, rule, refPrefix, item, fr)
				if err != nil {
					return nil, err
				}
				out = append(out, results...)
			}
			return out, nil
		}
	}
	switch v := n.(type) {
	case *ast.Bind:
		_, err := ev.Eval(ctx, v.Value, input, fr)
		if err != nil {
			return nil, err
		}
		return nil, nil
	case *ast.FlashRule:
		ruleInput := input
		if v.Context != nil {
			ctxVal, err := ev.Eval(ctx, v.Context, input, fr)
			if err != nil {
				return nil, err
			}
			ruleInput = value.Collapse(ctxVal)
		}
		return evalFlashRule(ctx, ev, v, refPrefix, ruleInput, fr)
	default:
		_, err := ev.Eval(ctx, n, input, fr)
		return nil, err
	}
}

// evalFlashRule implements spec 4.7 steps 1-10 for a single, already-
// unchained FlashRule.
func evalFlashRule(ctx context.Context, ev *eval.Evaluator, n *ast.FlashRule, refPrefix string, input any, fr *eval.Frame) ([]RuleResult, error) {
	el, ok := ev.Defs.Element(n.FlashPathRefKey)
	if !ok || el.IsError {
		return nil, fumierr.New("F3001", n.Pos(), map[string]any{"path": n.FlashPathRefKey})
	}

	if el.Max == "0" {
		if err := ev.Policy.Handle(ev.Diagnostics, ev.Logger, fr.Global().ExecutionID, "F5131", n.Pos(),
			fumierr.FhirContext{FhirElement: el.Path}, map[string]any{"fhirElement": el.Path}); err != nil {
			return nil, err
		}
	}

	if el.FixedValue != nil {
		wrapped := wrapFixedOrPattern(el, el.FixedValue)
		return []RuleResult{{Key: jsonKeyFor(el), SliceName: nonBaseSlice(el), Value: wrapped}}, nil
	}

	ruleFr := fr.NewChildFrame()

	var inlineResult any
	var inlineSet bool
	if n.InlineExpression != nil {
		v, err := ev.Eval(ctx, n.InlineExpression, input, ruleFr)
		if err != nil {
			return nil, err
		}
		inlineResult = value.Collapse(v)
		inlineSet = true
	}

	if el.PatternValue != nil && !inlineSet && el.Kind != resolver.KindComplexType && el.Kind != resolver.KindResource {
		inlineResult = el.PatternValue
		inlineSet = true
	}

	childResults, err := evalRuleSlice(ctx, ev, n.Subrules, n.FlashPathRefKey, input, ruleFr)
	if err != nil {
		return nil, err
	}

	executionID := fr.Global().ExecutionID

	var value_ any
	switch el.Kind {
	case resolver.KindSystem:
		value_ = inlineResult
	case resolver.KindPrimitiveType:
		prim := NewPrimitive(normalizeFhirPrimitiveScalar(el, inlineResult))
		if err := ValidatePrimitive(ev, el, executionID, n.Pos(), prim.Value); err != nil {
			return nil, err
		}
		if err := validateBinding(ev, el, executionID, n.Pos(), prim.Value, nil); err != nil {
			return nil, err
		}
		attachSiblings(prim, childResults)
		value_ = prim
	case resolver.KindComplexType, resolver.KindResource:
		// An inline array assigned to a repeating complex element yields a
		// batch of results, one per item (spec 4.7 step 3); each item gets
		// the rule's subrule values and pattern defaults merged in.
		if items := inlineItems(inlineResult); len(items) > 1 {
			batch := make([]RuleResult, 0, len(items))
			for _, item := range items {
				assembled, aerr := assembleComplexItem(ctx, ev, el, item, childResults, input, ruleFr, n.Pos())
				if aerr != nil {
					return nil, aerr
				}
				if err := validateBinding(ev, el, executionID, n.Pos(), nil, assembled); err != nil {
					return nil, err
				}
				batch = append(batch, RuleResult{Key: jsonKeyFor(el), SliceName: nonBaseSlice(el), Value: assembled})
			}
			return batch, nil
		}
		assembled, aerr := assembleComplexItem(ctx, ev, el, inlineResult, childResults, input, ruleFr, n.Pos())
		if aerr != nil {
			return nil, aerr
		}
		if err := validateBinding(ev, el, executionID, n.Pos(), nil, assembled); err != nil {
			return nil, err
		}
		value_ = assembled
	default:
		value_ = inlineResult
	}

	return []RuleResult{{Key: jsonKeyFor(el), SliceName: nonBaseSlice(el), Value: value_}}, nil
}

// inlineItems returns the elements of an inline expression's result when
// it is an array/sequence, or nil for a scalar/object/undefined result.
func inlineItems(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case *value.Sequence:
		return x.Items
	default:
		return nil
	}
}

// assembleComplexItem builds one complex-type/resource value from an
// inline seed item plus the rule's grouped subrule results: the seed is
// normalized (a bare scalar against Quantity becomes {value: x}, spec
// 4.7 step 3), pattern defaults are merged underneath, and assembly
// finishes with child assignment and mandatory-child enforcement.
func assembleComplexItem(ctx context.Context, ev *eval.Evaluator, el *resolver.Element, item any, childResults map[string][]RuleResult, input any, fr *eval.Frame, pos token.Pos) (*OrderedObject, error) {
	seed, _ := item.(map[string]any)
	if seed == nil {
		seed = map[string]any{}
		if el.FhirTypeCode == "Quantity" && !value.IsUndefined(item) {
			if _, isNum := value.ToFloat64(item); isNum {
				seed["value"] = item
			}
		}
	}
	if el.PatternValue != nil {
		if pm, ok := el.PatternValue.(map[string]any); ok {
			seed = mergePatternDefaults(seed, pm)
		}
	}
	return finishComplexAssembly(ctx, ev, el, seed, childResults, input, fr, pos)
}

// evalRuleSlice runs a sequence of rule-slot nodes strictly in order
// (spec 5: "sub-expression evaluation is strictly sequential") and
// groups their RuleResults by json-name(:slice).
func evalRuleSlice(ctx context.Context, ev *eval.Evaluator, nodes []ast.Node, refPrefix string, input any, fr *eval.Frame) (map[string][]RuleResult, error) {
	groups := make(map[string][]RuleResult)
	for _, n := range nodes {
		results, err := evalRuleEntry(ctx, ev, n, refPrefix, input, fr)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			groups[r.groupKey()] = append(groups[r.groupKey()], r)
		}
	}
	return groups, nil
}

// assembleSpec carries the parameters assembleInstance needs to build a
// FlashBlock's top-level object (spec 4.7 step 3).
type assembleSpec struct {
	Kind       resolver.Kind
	RefPrefix  string // instanceof id
	Rules      []ast.Node
	InstanceID any
}

func jsonKeyFor(el *resolver.Element) string {
	if len(el.Names) == 1 {
		return el.Names[0]
	}
	if el.FhirTypeCode != "" {
		for _, name := range el.Names {
			if strings.HasSuffix(strings.ToLower(name), strings.ToLower(el.FhirTypeCode)) {
				return name
			}
		}
	}
	if len(el.Names) > 0 {
		return el.Names[0]
	}
	return lastPathSegment(el.Path)
}

func nonBaseSlice(el *resolver.Element) string {
	if el.SliceName == "" {
		return ""
	}
	return el.SliceName
}

func lastPathSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// sortedKeys gives assemble.go deterministic iteration order over a
// groupKey()-bucketed RuleResult map.
func sortedKeys(m map[string][]RuleResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
