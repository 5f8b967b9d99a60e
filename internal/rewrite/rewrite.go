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

// Package rewrite implements spec component D, the AST rewriter: the
// pre-flash unchain pass, post-parse processAST (refKey assignment,
// context wrapping, containsFlash propagation), tail-call rewriting,
// and ancestor-slot resolution (spec 4.3). Its pass-over-a-tagged-sum-
// type shape mirrors cue/internal/core/compile's use of a small
// recursive rewrite helper rather than a generic reflection-based
// visitor, which spec 9's AST design notes call for explicitly.
package rewrite

import "github.com/mechanik-daniel/fumifier/ast"

// VisitFunc is called on every node in a rewrite pass. It returns the
// (possibly replaced) node and whether Apply should continue recursing
// into that node's children using the generic per-kind rules below. A
// pass that performs its own manual recursion for a node kind (as
// processAST does for FlashBlock) returns recurse=false to avoid
// double traversal.
type VisitFunc func(ast.Node) (ast.Node, bool)

// Apply runs fn over n and, unless fn opts out, recurses into n's
// children in place, replacing each child slot with the result of
// recursively applying fn.
func Apply(n ast.Node, fn VisitFunc) ast.Node {
	if n == nil {
		return nil
	}
	n, recurse := fn(n)
	if recurse {
		mutateChildren(n, fn)
	}
	return n
}

// mutateChildren is a mutable mirror of ast.Children: instead of
// returning a read-only slice, it writes each (possibly replaced)
// child back into the parent's field.
func mutateChildren(n ast.Node, fn VisitFunc) {
	switch v := n.(type) {
	case *ast.Negate:
		v.Expr = Apply(v.Expr, fn)
	case *ast.ArrayConstructor:
		for i := range v.Items {
			v.Items[i] = Apply(v.Items[i], fn)
		}
	case *ast.ObjectConstructor:
		mutatePairs(v.Pairs, fn)
	case *ast.Binary:
		v.LHS = Apply(v.LHS, fn)
		v.RHS = Apply(v.RHS, fn)
	case *ast.Path:
		for i := range v.Steps {
			v.Steps[i] = Apply(v.Steps[i], fn)
		}
	case *ast.Filter:
		v.Expr = Apply(v.Expr, fn)
	case *ast.Sort:
		for i := range v.Terms {
			v.Terms[i].Expr = Apply(v.Terms[i].Expr, fn)
		}
	case *ast.Group:
		mutatePairs(v.Pairs, fn)
	case *ast.Bind:
		v.Value = Apply(v.Value, fn)
	case *ast.Apply:
		v.LHS = Apply(v.LHS, fn)
		v.RHS = Apply(v.RHS, fn)
	case *ast.Range:
		v.From = Apply(v.From, fn)
		v.To = Apply(v.To, fn)
	case *ast.Condition:
		v.Cond = Apply(v.Cond, fn)
		v.Then = Apply(v.Then, fn)
		if v.Else != nil {
			v.Else = Apply(v.Else, fn)
		}
	case *ast.Coalesce:
		v.LHS = Apply(v.LHS, fn)
		v.RHS = Apply(v.RHS, fn)
	case *ast.Elvis:
		v.LHS = Apply(v.LHS, fn)
		v.RHS = Apply(v.RHS, fn)
	case *ast.Block:
		for i := range v.Exprs {
			v.Exprs[i] = Apply(v.Exprs[i], fn)
		}
	case *ast.Lambda:
		if v.Body != nil {
			v.Body = Apply(v.Body, fn)
		}
	case *ast.Call:
		v.Callee = Apply(v.Callee, fn)
		for i := range v.Args {
			v.Args[i] = Apply(v.Args[i], fn)
		}
	case *ast.Transform:
		v.Pattern = Apply(v.Pattern, fn)
		v.Update = Apply(v.Update, fn)
		if v.Delete != nil {
			v.Delete = Apply(v.Delete, fn)
		}
	case *ast.FlashBlock:
		if v.InstanceExpr != nil {
			v.InstanceExpr = Apply(v.InstanceExpr, fn)
		}
		for i := range v.Rules {
			v.Rules[i] = Apply(v.Rules[i], fn)
		}
	case *ast.FlashRule:
		if v.Context != nil {
			v.Context = Apply(v.Context, fn)
		}
		if v.InlineExpression != nil {
			v.InlineExpression = Apply(v.InlineExpression, fn)
		}
		for i := range v.Subrules {
			v.Subrules[i] = Apply(v.Subrules[i], fn)
		}
	}
}

func mutatePairs(pairs []ast.Pair, fn VisitFunc) {
	for i := range pairs {
		if pairs[i].Key != nil {
			pairs[i].Key = Apply(pairs[i].Key, fn)
		}
		pairs[i].Value = Apply(pairs[i].Value, fn)
	}
}

// Result collects the reference tables the definition resolver (spec
// 4.4) consumes.
type Result struct {
	// StructureDefinitionRefs maps an instanceof target (canonical URL
	// or type/profile id) to every flashblock node that referenced it.
	StructureDefinitionRefs map[string][]ast.Node

	// ElementDefinitionRefs maps a flashPathRefKey to every flashrule
	// node that referenced it.
	ElementDefinitionRefs map[string][]ast.Node
}

func newResult() *Result {
	return &Result{
		StructureDefinitionRefs: make(map[string][]ast.Node),
		ElementDefinitionRefs:   make(map[string][]ast.Node),
	}
}

// Rewrite runs the full pipeline spec 4.3 describes: unchain, then
// processAST (refKey assignment + context wrapping + containsFlash),
// then tail-call rewriting, then ancestor-slot resolution.
func Rewrite(root ast.Node) (ast.Node, *Result) {
	root = Unchain(root)
	root, result := ProcessAST(root)
	root = RewriteTailCalls(root)
	root = ResolveAncestors(root)
	return root, result
}
