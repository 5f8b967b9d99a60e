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
	"fmt"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// evalBinary implements spec 4.5's "binary boolean" short-circuit rule
// plus the ordinary arithmetic/comparison/string/membership operators
// JSONata defines.
func (ev *Evaluator) evalBinary(ctx context.Context, n *ast.Binary, input any, fr *Frame) (any, error) {
	if n.Op == "and" || n.Op == "or" {
		lhs, err := ev.Eval(ctx, n.LHS, input, fr)
		if err != nil {
			return nil, err
		}
		lt := value.IsTruthy(lhs)
		if n.Op == "and" && !lt {
			return false, nil
		}
		if n.Op == "or" && lt {
			return true, nil
		}
		rhs, err := ev.Eval(ctx, n.RHS, input, fr)
		if err != nil {
			return nil, err
		}
		return value.IsTruthy(rhs), nil
	}

	lhs, err := ev.Eval(ctx, n.LHS, input, fr)
	if err != nil {
		return nil, err
	}
	rhs, err := ev.Eval(ctx, n.RHS, input, fr)
	if err != nil {
		return nil, err
	}
	lhs, rhs = value.Collapse(lhs), value.Collapse(rhs)

	switch n.Op {
	case "+", "-", "*", "/", "%":
		return arith(n.Op, lhs, rhs, n.Pos())
	case "=":
		return value.DeepEqual(lhs, rhs), nil
	case "!=":
		return !value.DeepEqual(lhs, rhs), nil
	case "<", "<=", ">", ">=":
		return compareOp(n.Op, lhs, rhs, n.Pos())
	case "&":
		return fmt.Sprintf("%s%s", stringify(lhs), stringify(rhs)), nil
	case "in":
		for _, e := range value.ToSlice(rhs) {
			if value.DeepEqual(lhs, e) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fumierr.New("D1001", n.Pos(), map[string]any{"operator": n.Op})
}

func arith(op string, a, b any, pos token.Pos) (any, error) {
	af, aok := value.ToFloat64(a)
	bf, bok := value.ToFloat64(b)
	if !aok || !bok {
		return nil, fumierr.New("T2001", pos, nil)
	}
	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		return af / bf, nil
	case "%":
		if bf == 0 {
			return nil, nil
		}
		return float64(int64(af) % int64(bf)), nil
	}
	return nil, nil
}

func compareOp(op string, a, b any, pos token.Pos) (any, error) {
	af, aok := value.ToFloat64(a)
	bf, bok := value.ToFloat64(b)
	if aok && bok {
		return numCompare(op, af, bf), nil
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strCompare(op, as, bs), nil
	}
	return nil, fumierr.New("T2009", pos, nil)
}

func numCompare(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func strCompare(op string, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
