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

package parser

import (
	"testing"

	"github.com/mechanik-daniel/fumifier/ast"
)

func mustParse(t *testing.T, src string) ast.Node {
	t.Helper()
	root, errs := Parse(src, Options{})
	if len(errs) != 0 {
		t.Fatalf("Parse(%q): %v", src, errs)
	}
	return root
}

func TestParseArithmeticPrecedence(t *testing.T) {
	root := mustParse(t, "1 + 2 * 3")
	bin, ok := root.(*ast.Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("got %#v, want top-level '+' Binary", root)
	}
	rhs, ok := bin.RHS.(*ast.Binary)
	if !ok || rhs.Op != "*" {
		t.Fatalf("got %#v, want '*' nested on the right of '+'", bin.RHS)
	}
}

func TestParseDotPathCollapse(t *testing.T) {
	root := mustParse(t, "a.b.c")
	p, ok := root.(*ast.Path)
	if !ok {
		t.Fatalf("got %T, want *ast.Path", root)
	}
	if len(p.Steps) != 3 {
		t.Fatalf("got %d steps, want 3: %#v", len(p.Steps), p.Steps)
	}
	for i, want := range []string{"a", "b", "c"} {
		n, ok := p.Steps[i].(*ast.Name)
		if !ok || n.Text != want {
			t.Fatalf("step %d = %#v, want Name(%s)", i, p.Steps[i], want)
		}
	}
}

func TestParseFilterStep(t *testing.T) {
	root := mustParse(t, "a[b > 1]")
	p, ok := root.(*ast.Path)
	if !ok || len(p.Steps) != 2 {
		t.Fatalf("got %#v, want a 2-step path", root)
	}
	if _, ok := p.Steps[1].(*ast.Filter); !ok {
		t.Fatalf("second step = %#v, want *ast.Filter", p.Steps[1])
	}
}

func TestParseEmptyFilterSetsKeepSingleton(t *testing.T) {
	root := mustParse(t, "a[]")
	p, ok := root.(*ast.Path)
	if !ok {
		t.Fatalf("got %T, want *ast.Path", root)
	}
	if !p.KeepSingleton {
		t.Error("a[] should set KeepSingleton on the path")
	}
}

func TestParseArrayConstructorWithRange(t *testing.T) {
	root := mustParse(t, "[1, 2..4, 5]")
	arr, ok := root.(*ast.ArrayConstructor)
	if !ok || len(arr.Items) != 3 {
		t.Fatalf("got %#v, want a 3-item array constructor", root)
	}
	if _, ok := arr.Items[1].(*ast.Range); !ok {
		t.Fatalf("item 1 = %#v, want *ast.Range", arr.Items[1])
	}
}

func TestParseObjectConstructor(t *testing.T) {
	root := mustParse(t, `{"a": 1, "b": 2}`)
	obj, ok := root.(*ast.ObjectConstructor)
	if !ok || len(obj.Pairs) != 2 {
		t.Fatalf("got %#v, want a 2-pair object constructor", root)
	}
}

func TestParseVariableBind(t *testing.T) {
	root := mustParse(t, "$x := 5")
	bind, ok := root.(*ast.Bind)
	if !ok || bind.Name != "x" {
		t.Fatalf("got %#v, want Bind(x)", root)
	}
}

func TestParseLambdaWithSignature(t *testing.T) {
	root := mustParse(t, "function($x, $y)<nn:n>{ $x + $y }")
	lam, ok := root.(*ast.Lambda)
	if !ok {
		t.Fatalf("got %T, want *ast.Lambda", root)
	}
	if len(lam.Params) != 2 || lam.Params[0] != "x" || lam.Params[1] != "y" {
		t.Fatalf("got params %#v, want [x y]", lam.Params)
	}
	if lam.Signature == nil {
		t.Fatal("expected a parsed signature")
	}
}

func TestParseCallWithArgs(t *testing.T) {
	root := mustParse(t, `$uppercase("abc")`)
	call, ok := root.(*ast.Call)
	if !ok || len(call.Args) != 1 {
		t.Fatalf("got %#v, want a 1-arg Call", root)
	}
}

func TestParseConditional(t *testing.T) {
	root := mustParse(t, `a > 1 ? "y" : "n"`)
	cond, ok := root.(*ast.Condition)
	if !ok {
		t.Fatalf("got %T, want *ast.Condition", root)
	}
	if cond.Then == nil || cond.Else == nil {
		t.Fatal("expected both then and else branches")
	}
}

func TestParseBlockCollapsesSingleExpr(t *testing.T) {
	root := mustParse(t, "(1 + 2)")
	if _, ok := root.(*ast.Block); ok {
		t.Fatal("a single-expression block should collapse to the inner expression")
	}
	if _, ok := root.(*ast.Binary); !ok {
		t.Fatalf("got %T, want the collapsed *ast.Binary", root)
	}
}

func TestParseBlockKeepsMultipleExprs(t *testing.T) {
	root := mustParse(t, "($x := 1; $x + 1)")
	blk, ok := root.(*ast.Block)
	if !ok || len(blk.Exprs) != 2 {
		t.Fatalf("got %#v, want a 2-expression block", root)
	}
}

func TestParseUnmatchedBracketRecovers(t *testing.T) {
	root, errs := Parse("[1, 2", Options{Recover: true})
	if len(errs) == 0 {
		t.Fatal("expected a collected error for an unmatched '['")
	}
	if root == nil {
		t.Fatal("expected a non-nil root even in recover mode")
	}
}

func TestParseUnmatchedBracketFailsWithoutRecover(t *testing.T) {
	_, errs := Parse("[1, 2", Options{})
	if len(errs) == 0 {
		t.Fatal("expected an error for an unmatched '[' without recover")
	}
}

func TestParseTrailingTokensError(t *testing.T) {
	_, errs := Parse("1 + 2 3", Options{})
	if len(errs) == 0 {
		t.Fatal("expected an error for trailing tokens after a complete expression")
	}
}
