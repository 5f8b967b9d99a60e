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

package rewrite

import (
	"testing"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

func newRuleWithPath(steps ...ast.FlashPathStep) *ast.FlashRule {
	fr := ast.NewFlashRule(token.NoPos)
	fr.PathSteps = steps
	return fr
}

func TestUnchainSingleStep(t *testing.T) {
	fr := newRuleWithPath(ast.FlashPathStep{Name: "gender"})
	got := Unchain(fr).(*ast.FlashRule)
	if got.Name != "gender" || got.PathSteps != nil {
		t.Fatalf("single-step rule should just adopt its step: %+v", got)
	}
}

func TestUnchainMultiStep(t *testing.T) {
	inline := ast.NewLiteral(token.NoPos, ast.LitString)
	inline.Str = "Doe"
	fr := newRuleWithPath(
		ast.FlashPathStep{Name: "name"},
		ast.FlashPathStep{Name: "family"},
	)
	fr.InlineExpression = inline

	outer := Unchain(fr).(*ast.FlashRule)
	if outer.Name != "name" {
		t.Fatalf("outer rule name = %q, want name", outer.Name)
	}
	if outer.InlineExpression != nil {
		t.Fatalf("inline expression must move to the deepest rule")
	}
	if len(outer.Subrules) != 1 {
		t.Fatalf("outer should nest exactly one subrule, got %d", len(outer.Subrules))
	}
	inner := outer.Subrules[0].(*ast.FlashRule)
	if inner.Name != "family" {
		t.Fatalf("inner rule name = %q, want family", inner.Name)
	}
	if inner.InlineExpression != inline {
		t.Fatalf("inline expression did not reach the deepest rule")
	}
}

func TestUnchainPreservesSlices(t *testing.T) {
	fr := newRuleWithPath(
		ast.FlashPathStep{Name: "identifier", Slices: []string{"mrn"}},
		ast.FlashPathStep{Name: "value"},
	)
	outer := Unchain(fr).(*ast.FlashRule)
	if len(outer.Slices) != 1 || outer.Slices[0] != "mrn" {
		t.Fatalf("outer slices = %v, want [mrn]", outer.Slices)
	}
}

func TestProcessASTAssignsRefKeys(t *testing.T) {
	inner := ast.NewFlashRule(token.NoPos)
	inner.Name = "family"
	outer := ast.NewFlashRule(token.NoPos)
	outer.Name = "name"
	outer.Subrules = []ast.Node{inner}

	blk := ast.NewFlashBlock(token.NoPos)
	blk.InstanceOf = "Patient"
	blk.Rules = []ast.Node{outer}

	root, result := ProcessAST(blk)
	if !root.ContainsFlash() {
		t.Fatalf("containsFlash not stamped on root")
	}
	if outer.FlashPathRefKey != "Patient::name" {
		t.Fatalf("outer refKey = %q, want Patient::name", outer.FlashPathRefKey)
	}
	if inner.FlashPathRefKey != "Patient::name.family" {
		t.Fatalf("inner refKey = %q, want Patient::name.family", inner.FlashPathRefKey)
	}
	if _, ok := result.StructureDefinitionRefs["Patient"]; !ok {
		t.Fatalf("instanceof ref not collected")
	}
	for _, want := range []string{"Patient::name", "Patient::name.family"} {
		if _, ok := result.ElementDefinitionRefs[want]; !ok {
			t.Fatalf("element ref %q not collected; have %v", want, result.ElementDefinitionRefs)
		}
	}
}

func TestProcessASTSliceRefKey(t *testing.T) {
	rule := ast.NewFlashRule(token.NoPos)
	rule.Name = "identifier"
	rule.Slices = []string{"mrn"}

	blk := ast.NewFlashBlock(token.NoPos)
	blk.InstanceOf = "MyPatient"
	blk.Rules = []ast.Node{rule}

	ProcessAST(blk)
	if rule.FlashPathRefKey != "MyPatient::identifier[mrn]" {
		t.Fatalf("refKey = %q, want MyPatient::identifier[mrn]", rule.FlashPathRefKey)
	}
}

func TestProcessASTWrapsContext(t *testing.T) {
	rule := ast.NewFlashRule(token.NoPos)
	rule.Name = "name"
	rule.Context = ast.NewName(token.NoPos, "people")

	blk := ast.NewFlashBlock(token.NoPos)
	blk.InstanceOf = "Patient"
	blk.Rules = []ast.Node{rule}

	ProcessAST(blk)
	bin, ok := blk.Rules[0].(*ast.Binary)
	if !ok || bin.Op != "." {
		t.Fatalf("contextualized rule should become a binary '.', got %T", blk.Rules[0])
	}
	if _, ok := bin.RHS.(*ast.FlashRule); !ok {
		t.Fatalf("binary RHS should be the rule itself, got %T", bin.RHS)
	}
	if rule.Context != nil {
		t.Fatalf("context should be cleared from the wrapped rule")
	}
}

func TestRewriteTailCallThunksConditionBranches(t *testing.T) {
	// function($n, $acc){ $n = 0 ? $acc : $loop($n - 1, $acc + $n) } —
	// the recursive call in the else branch is in tail position and must
	// be thunked for the evaluator's trampoline.
	recCall := ast.NewCall(token.NoPos, ast.NewVariable(token.NoPos, "loop"))
	cond := ast.NewCondition(token.NoPos,
		ast.NewVariable(token.NoPos, "n"),
		ast.NewVariable(token.NoPos, "acc"),
		recCall,
	)
	lam := ast.NewLambda(token.NoPos)
	lam.Params = []string{"n", "acc"}
	lam.Body = cond

	RewriteTailCalls(lam)

	els, ok := cond.Else.(*ast.Lambda)
	if !ok || !els.Thunk {
		t.Fatalf("tail call in else branch should be thunked, got %T", cond.Else)
	}
	if els.Body != recCall {
		t.Fatalf("thunk body should be the original call")
	}
	if _, isThunk := cond.Then.(*ast.Lambda); isThunk {
		t.Fatalf("a plain variable in tail position must not be thunked")
	}
}

func TestRewriteKeepsNonFlashUntouched(t *testing.T) {
	lit := ast.NewLiteral(token.NoPos, ast.LitNumber)
	lit.Num = 42
	bin := ast.NewBinary(token.NoPos, "+", lit, lit)

	root, result := Rewrite(bin)
	if root.ContainsFlash() {
		t.Fatalf("non-flash tree marked containsFlash")
	}
	if len(result.StructureDefinitionRefs) != 0 || len(result.ElementDefinitionRefs) != 0 {
		t.Fatalf("non-flash tree should collect no refs")
	}
}
