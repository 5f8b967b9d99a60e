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
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// evalSortExpr handles an ast.Sort reached directly (outside a Path) —
// in practice the parser only ever produces Sort as a path step, but a
// bare input is sorted as a single-item sequence for robustness.
func (ev *Evaluator) evalSortExpr(ctx context.Context, n *ast.Sort, input any, fr *Frame) (any, error) {
	items := value.ToSlice(input)
	sorted, err := ev.sortItems(ctx, items, n, fr)
	if err != nil {
		return nil, err
	}
	if len(sorted) == 1 {
		return sorted[0], nil
	}
	return sorted, nil
}

// sortItems implements spec 4.5's "sort ^(...)": a pairwise comparator
// over the given terms, undefined values always sorting last, with a
// type error if two compared values are not both strings or both
// numbers.
func (ev *Evaluator) sortItems(ctx context.Context, items []any, n *ast.Sort, fr *Frame) ([]any, error) {
	out := make([]any, len(items))
	copy(out, items)

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := ev.sortLess(ctx, out[i], out[j], n.Terms, fr)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

func (ev *Evaluator) sortLess(ctx context.Context, a, b any, terms []ast.SortTerm, fr *Frame) (bool, error) {
	for _, term := range terms {
		av, err := ev.Eval(ctx, term.Expr, a, fr)
		if err != nil {
			return false, err
		}
		bv, err := ev.Eval(ctx, term.Expr, b, fr)
		if err != nil {
			return false, err
		}
		av, bv = value.Collapse(av), value.Collapse(bv)
		if value.IsUndefined(av) && value.IsUndefined(bv) {
			continue
		}
		if value.IsUndefined(av) {
			return false, nil
		}
		if value.IsUndefined(bv) {
			return true, nil
		}
		cmp, err := compareForSort(av, bv, term.Expr.Pos())
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			continue
		}
		if term.Descending {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}

func compareForSort(a, b any, pos token.Pos) (int, error) {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	af, aIsNum := value.ToFloat64(a)
	bf, bIsNum := value.ToFloat64(b)
	if aIsNum && bIsNum {
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if aIsStr != bIsStr {
		return 0, fumierr.New("T2007", pos, nil)
	}
	return 0, fumierr.New("T2008", pos, nil)
}
