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

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// evalPath implements spec 4.5's "path" semantics: steps are applied in
// sequence over a running list of context items, each ordinary step
// mapped per-element with result flattening, while sort/filter/index/
// focus steps receive and return the whole running list instead of
// being mapped per element.
func (ev *Evaluator) evalPath(ctx context.Context, n *ast.Path, input any, fr *Frame) (any, error) {
	cur := []any{input}
	// An array input maps the path over its elements, unless the first
	// step is absolute (a variable) — JSONata's sequence semantics.
	if len(n.Steps) > 0 {
		if _, isVar := n.Steps[0].(*ast.Variable); !isVar {
			switch x := input.(type) {
			case []any:
				cur = x
			case *value.Sequence:
				cur = x.Items
			}
		}
	}
	var indexVars, focusVars []string

	for _, step := range n.Steps {
		switch st := step.(type) {
		case *ast.Sort:
			sorted, err := ev.sortItems(ctx, cur, st, fr)
			if err != nil {
				return nil, err
			}
			cur = sorted
			continue
		case *ast.Filter:
			filtered, err := ev.filterItems(ctx, cur, st.Expr, fr)
			if err != nil {
				return nil, err
			}
			cur = filtered
			continue
		case *ast.Index:
			indexVars = append(indexVars, st.Var)
			continue
		case *ast.Focus:
			focusVars = append(focusVars, st.Var)
			continue
		case *ast.Group:
			obj, err := ev.evalGroupStep(ctx, cur, st, fr)
			if err != nil {
				return nil, err
			}
			cur = []any{obj}
			continue
		}

		next := make([]any, 0, len(cur))
		for i, item := range cur {
			stepFr := fr
			if len(indexVars) > 0 || len(focusVars) > 0 {
				stepFr = fr.NewChildFrame()
				for _, v := range indexVars {
					stepFr.Bind(v, float64(i))
				}
				for _, v := range focusVars {
					stepFr.Bind(v, item)
				}
			}
			v, err := ev.Eval(ctx, step, item, stepFr)
			if err != nil {
				return nil, err
			}
			appendFlattened(&next, v)
		}
		cur = next
	}

	switch {
	case len(cur) == 0:
		return nil, nil
	case len(cur) == 1 && !n.KeepSingleton:
		return cur[0], nil
	default:
		return &value.Sequence{Items: cur, KeepSingleton: n.KeepSingleton}, nil
	}
}

// appendFlattened spreads a step result into the running sequence:
// sequences and arrays contribute their elements (one level — nested
// arrays in the data survive as values), undefined contributes nothing.
func appendFlattened(out *[]any, v any) {
	switch x := v.(type) {
	case nil:
		return
	case *value.Sequence:
		*out = append(*out, x.Items...)
	case []any:
		*out = append(*out, x...)
	default:
		*out = append(*out, x)
	}
}

// filterItems implements spec 4.5's "filter [expr]": a numeric-literal
// predicate indexes directly (with negative-wrap); otherwise the
// predicate is evaluated per-element, a numeric result selects by
// index, any other truthy result retains the element.
func (ev *Evaluator) filterItems(ctx context.Context, cur []any, expr ast.Node, fr *Frame) ([]any, error) {
	if lit, ok := expr.(*ast.Literal); ok && lit.LitKind == ast.LitNumber {
		idx := int(lit.Num)
		if idx < 0 {
			idx += len(cur)
		}
		if idx >= 0 && idx < len(cur) {
			return []any{cur[idx]}, nil
		}
		return nil, nil
	}
	var out []any
	for i, item := range cur {
		r, err := ev.Eval(ctx, expr, item, fr)
		if err != nil {
			return nil, err
		}
		r = value.Collapse(r)
		if f, ok := value.ToFloat64(r); ok {
			idx := int(f)
			if idx < 0 {
				idx += len(cur)
			}
			if idx == i {
				out = append(out, item)
			}
			continue
		}
		if value.IsTruthy(r) {
			out = append(out, item)
		}
	}
	return out, nil
}
