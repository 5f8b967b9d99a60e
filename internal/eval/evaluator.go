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

package eval

import (
	"context"
	"sort"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
	"github.com/mechanik-daniel/fumifier/navigator"
)

// FlashHook lets the fumifier top-level package wire in spec 4.7's
// FLASH evaluator without creating an import cycle (eval cannot import
// internal/flash, since internal/flash needs to call back into eval to
// evaluate ordinary sub-expressions).
type FlashHook func(ctx context.Context, ev *Evaluator, n ast.Node, input any, fr *Frame) (any, error)

// Evaluator holds everything one compiled expression's evaluate() call
// needs beyond the per-node Frame chain: diagnostics, policy
// thresholds, and the FLASH hook.
type Evaluator struct {
	Diagnostics *fumierr.Bag
	Logger      fumierr.Logger
	Policy      Policy
	Flash       FlashHook

	// Defs and Navigator back the FLASH hook's definition lookups (spec
	// 4.7); eval carries them from the compiled expression through to the
	// Flash hook, and EvalString reads Navigator to resolve FLASH found
	// inside a $eval source.
	Defs      *resolver.Defs
	Navigator navigator.StructureNavigator

	// Functions not yet covered by the FlashHook indirection (e.g.
	// $eval's inner evaluate) call back into this Evaluator directly.
}

// Policy mirrors policy.Engine's method set without importing the
// policy package (kept here as a narrow interface so eval has no
// dependency on policy, matching the hook-based decoupling used for
// Flash); *policy.Engine satisfies this interface as-is.
type Policy interface {
	ShouldValidate(code string) bool
	Handle(bag *fumierr.Bag, logger fumierr.Logger, executionID string, code string, pos token.Pos, fhir fumierr.FhirContext, inserts map[string]any) error
}

// Eval dispatches on n's Kind and evaluates it against input in frame
// fr (spec 4.5, "Per-node semantics").
func (ev *Evaluator) Eval(ctx context.Context, n ast.Node, input any, fr *Frame) (any, error) {
	if g := fr.Global(); g != nil && g.EntryHook != nil {
		g.EntryHook(n, input, fr)
	}
	result, err := ev.evalDispatch(ctx, n, input, fr)
	if g := fr.Global(); g != nil && g.ExitHook != nil {
		g.ExitHook(n, input, result, fr)
	}
	return result, err
}

func (ev *Evaluator) evalDispatch(ctx context.Context, n ast.Node, input any, fr *Frame) (any, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return ev.evalLiteral(v)
	case *ast.Name:
		return ev.evalName(v, input, fr)
	case *ast.Variable:
		return ev.evalVariable(v, input, fr)
	case *ast.Wildcard:
		return evalWildcard(input)
	case *ast.Descendant:
		return evalDescendant(input)
	case *ast.Parent:
		return ev.evalParent(v, fr)
	case *ast.Regex:
		return ev.evalRegexLiteral(v)
	case *ast.Group:
		return ev.evalGroupStep(ctx, []any{input}, v, fr)
	case *ast.Path:
		return ev.evalPath(ctx, v, input, fr)
	case *ast.Binary:
		return ev.evalBinary(ctx, v, input, fr)
	case *ast.Negate:
		return ev.evalNegate(ctx, v, input, fr)
	case *ast.ArrayConstructor:
		return ev.evalArrayConstructor(ctx, v, input, fr)
	case *ast.ObjectConstructor:
		return ev.evalObjectConstructor(ctx, v, input, fr)
	case *ast.Block:
		return ev.evalBlock(ctx, v, input, fr)
	case *ast.Bind:
		return ev.evalBind(ctx, v, input, fr)
	case *ast.Condition:
		return ev.evalCondition(ctx, v, input, fr)
	case *ast.Coalesce:
		return ev.evalCoalesce(ctx, v, input, fr)
	case *ast.Elvis:
		return ev.evalElvis(ctx, v, input, fr)
	case *ast.Range:
		return ev.evalRange(ctx, v, input, fr)
	case *ast.Lambda:
		return ev.evalLambda(v, fr), nil
	case *ast.Call:
		return ev.evalCall(ctx, v, input, fr)
	case *ast.Sort:
		return ev.evalSortExpr(ctx, v, input, fr)
	case *ast.Apply:
		return ev.evalApply(ctx, v, input, fr)
	case *ast.Transform:
		return ev.evalTransform(v, fr), nil
	case *ast.Filter:
		return ev.Eval(ctx, v.Expr, input, fr)
	case *ast.FlashBlock, *ast.FlashRule:
		if ev.Flash == nil {
			return nil, fumierr.New("F3000", n.Pos(), nil)
		}
		return ev.Flash(ctx, ev, n, input, fr)
	case *ast.ErrorNode:
		return nil, fumierr.New(v.Code, n.Pos(), map[string]any{"message": v.Message})
	}
	return nil, fumierr.New("D1001", n.Pos(), map[string]any{"kind": n.Kind()})
}

func (ev *Evaluator) evalLiteral(n *ast.Literal) (any, error) {
	switch n.LitKind {
	case ast.LitNumber:
		return n.Num, nil
	case ast.LitString:
		return n.Str, nil
	case ast.LitBoolean:
		return n.Bool, nil
	default:
		return nil, nil
	}
}

func (ev *Evaluator) evalName(n *ast.Name, input any, fr *Frame) (any, error) {
	if n.Slot > 0 && n.Label != "" {
		fr.Bind(n.Label, input)
	}
	return lookupName(input, n.Text), nil
}

// lookupName implements JSONata's lookup semantics: a key against an
// object reads the property; against an array/sequence it maps over the
// elements, spreading array-valued results one level.
func lookupName(input any, key string) any {
	switch x := input.(type) {
	case map[string]any:
		return x[key]
	case []any:
		return lookupNameOver(x, key)
	case *value.Sequence:
		return lookupNameOver(x.Items, key)
	}
	return nil
}

func lookupNameOver(items []any, key string) any {
	seq := value.NewSequence()
	for _, e := range items {
		v := lookupName(e, key)
		if v == nil {
			continue
		}
		if arr, ok := v.([]any); ok {
			seq.Items = append(seq.Items, arr...)
			continue
		}
		seq.Push(v)
	}
	if len(seq.Items) == 0 {
		return nil
	}
	return seq
}

// evalParent implements spec 4.5's `%` step: retrieve the value an
// earlier named step in the same path stashed under this node's
// ancestor label (spec 4.3, "Ancestor resolution").
func (ev *Evaluator) evalParent(n *ast.Parent, fr *Frame) (any, error) {
	if n.Label == "" {
		return nil, fumierr.New("S0217", n.Pos(), nil)
	}
	v, _ := fr.Lookup(n.Label)
	return v, nil
}

// evalDescendant implements spec 4.5's `**` step: every descendant
// value of input, depth-first, keys visited in sorted order for
// determinism (spec 8, "Evaluation determinism").
func evalDescendant(input any) (any, error) {
	seq := value.NewSequence()
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				child := x[k]
				seq.Push(child)
				walk(child)
			}
		case []any:
			for _, e := range x {
				walk(e)
			}
		case *value.Sequence:
			for _, e := range x.Items {
				walk(e)
			}
		}
	}
	walk(input)
	return value.Collapse(seq), nil
}

// evalRegexLiteral implements spec 4.1/4.5's regex literal: it compiles
// to a *value.Regex matcher value rather than evaluating "as" a plain
// value, consumed by native functions like $match/$contains/$split/
// $replace (spec 4.9) and by the evaluator's own `in`/`~>` use sites.
func (ev *Evaluator) evalRegexLiteral(n *ast.Regex) (any, error) {
	return value.CompileRegex(n.Pattern, n.Flags, n.Pos())
}

// evalGroupStep implements spec 4.5's "group `{k:v,...}`": every key
// expression is evaluated per input item; items sharing an equal string
// key are bucketed together, and each bucket's value expression is then
// evaluated with the bucketed data (a single item, or an array when more
// than one shares the key) as its context. A key produced by a
// different key-expression position than the one that first claimed it
// is a conflict (D1009).
func (ev *Evaluator) evalGroupStep(ctx context.Context, cur []any, g *ast.Group, fr *Frame) (any, error) {
	keyOwner := make(map[string]int)
	buckets := make(map[string][]any)
	order := make([]string, 0)
	for _, item := range cur {
		for pi, pair := range g.Pairs {
			kv, err := ev.Eval(ctx, pair.Key, item, fr)
			if err != nil {
				return nil, err
			}
			kv = value.Collapse(kv)
			ks, ok := kv.(string)
			if !ok {
				if value.IsUndefined(kv) {
					continue
				}
				return nil, fumierr.New("T1003", pair.Key.Pos(), map[string]any{"type": "non-string"})
			}
			if owner, exists := keyOwner[ks]; exists {
				if owner != pi {
					return nil, fumierr.New("D1009", pair.Key.Pos(), map[string]any{"key": ks})
				}
			} else {
				keyOwner[ks] = pi
				order = append(order, ks)
			}
			buckets[ks] = append(buckets[ks], item)
		}
	}
	out := make(map[string]any, len(order))
	for _, ks := range order {
		items := buckets[ks]
		pi := keyOwner[ks]
		var data any
		if len(items) == 1 {
			data = items[0]
		} else {
			data = items
		}
		v, err := ev.Eval(ctx, g.Pairs[pi].Value, data, fr)
		if err != nil {
			return nil, err
		}
		out[ks] = value.Collapse(v)
	}
	return out, nil
}

func (ev *Evaluator) evalVariable(n *ast.Variable, input any, fr *Frame) (any, error) {
	if n.Name == "" {
		if s, ok := input.(*value.Sequence); ok && s.Outer {
			return value.Collapse(&value.Sequence{Items: s.Items}), nil
		}
		return input, nil
	}
	v, _ := fr.Lookup(n.Name)
	return v, nil
}

func evalWildcard(input any) (any, error) {
	m, ok := input.(map[string]any)
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seq := value.NewSequence()
	for _, k := range keys {
		seq.Push(m[k])
	}
	return value.Collapse(seq), nil
}

func (ev *Evaluator) evalNegate(ctx context.Context, n *ast.Negate, input any, fr *Frame) (any, error) {
	v, err := ev.Eval(ctx, n.Expr, input, fr)
	if err != nil {
		return nil, err
	}
	f, ok := value.ToFloat64(v)
	if !ok {
		return nil, fumierr.New("D1002", n.Pos(), nil)
	}
	return -f, nil
}

func (ev *Evaluator) evalBlock(ctx context.Context, n *ast.Block, input any, fr *Frame) (any, error) {
	child := fr.NewChildFrame()
	var result any
	for _, e := range n.Exprs {
		v, err := ev.Eval(ctx, e, input, child)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (ev *Evaluator) evalBind(ctx context.Context, n *ast.Bind, input any, fr *Frame) (any, error) {
	v, err := ev.Eval(ctx, n.Value, input, fr)
	if err != nil {
		return nil, err
	}
	fr.Bind(n.Name, v)
	return v, nil
}

func (ev *Evaluator) evalCondition(ctx context.Context, n *ast.Condition, input any, fr *Frame) (any, error) {
	cond, err := ev.Eval(ctx, n.Cond, input, fr)
	if err != nil {
		return nil, err
	}
	if value.IsTruthy(cond) {
		return ev.Eval(ctx, n.Then, input, fr)
	}
	if n.Else != nil {
		return ev.Eval(ctx, n.Else, input, fr)
	}
	return nil, nil
}

func (ev *Evaluator) evalCoalesce(ctx context.Context, n *ast.Coalesce, input any, fr *Frame) (any, error) {
	lhs, err := ev.Eval(ctx, n.LHS, input, fr)
	if err != nil {
		return nil, err
	}
	if !value.IsUndefined(lhs) {
		return lhs, nil
	}
	return ev.Eval(ctx, n.RHS, input, fr)
}

func (ev *Evaluator) evalElvis(ctx context.Context, n *ast.Elvis, input any, fr *Frame) (any, error) {
	lhs, err := ev.Eval(ctx, n.LHS, input, fr)
	if err != nil {
		return nil, err
	}
	if value.IsTruthy(lhs) {
		return lhs, nil
	}
	return ev.Eval(ctx, n.RHS, input, fr)
}

func (ev *Evaluator) evalRange(ctx context.Context, n *ast.Range, input any, fr *Frame) (any, error) {
	lo, err := ev.Eval(ctx, n.From, input, fr)
	if err != nil {
		return nil, err
	}
	hi, err := ev.Eval(ctx, n.To, input, fr)
	if err != nil {
		return nil, err
	}
	if value.IsUndefined(lo) || value.IsUndefined(hi) {
		return nil, nil
	}
	lof, _ := value.ToFloat64(lo)
	hif, _ := value.ToFloat64(hi)
	if lof > hif {
		return value.NewSequence(), nil
	}
	if hif-lof > 1e7 {
		return nil, fumierr.New("D2014", n.Pos(), nil)
	}
	seq := value.NewSequence()
	for i := lof; i <= hif; i++ {
		seq.Push(i)
	}
	return seq, nil
}

func (ev *Evaluator) evalArrayConstructor(ctx context.Context, n *ast.ArrayConstructor, input any, fr *Frame) (any, error) {
	out := make([]any, 0, len(n.Items))
	for i, item := range n.Items {
		if i == 1 && fr.global != nil {
			fr.global.IsParallelCall = true
		}
		v, err := ev.Eval(ctx, item, input, fr)
		if err != nil {
			return nil, err
		}
		// A sequence-valued item (e.g. a range) contributes its elements.
		if seq, ok := v.(*value.Sequence); ok {
			out = append(out, seq.Items...)
			continue
		}
		out = append(out, value.Collapse(v))
	}
	if n.Consolidate {
		return out, nil
	}
	return out, nil
}

func (ev *Evaluator) evalObjectConstructor(ctx context.Context, n *ast.ObjectConstructor, input any, fr *Frame) (any, error) {
	out := make(map[string]any, len(n.Pairs))
	items := value.ToSlice(input)
	if len(items) == 0 {
		items = []any{input}
	}
	for _, it := range items {
		for _, pair := range n.Pairs {
			k, err := ev.Eval(ctx, pair.Key, it, fr)
			if err != nil {
				return nil, err
			}
			ks, ok := k.(string)
			if !ok {
				return nil, fumierr.New("T1003", pair.Key.Pos(), nil)
			}
			v, err := ev.Eval(ctx, pair.Value, it, fr)
			if err != nil {
				return nil, err
			}
			out[ks] = value.Collapse(v)
		}
	}
	return out, nil
}
