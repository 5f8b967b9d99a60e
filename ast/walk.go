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

package ast

// Children returns the direct child nodes of n, in evaluation order. It
// is used by the rewriter to propagate containsFlash bottom-up and by
// any pass that needs generic traversal without a type switch at every
// call site (spec 9, "tagged sum type... evaluator dispatches on the
// tag" — traversal utilities dispatch the same way).
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Literal, *Name, *Variable, *Wildcard, *Descendant, *Parent, *Regex,
		*PartialArg, *ErrorNode:
		return nil
	case *Negate:
		return []Node{v.Expr}
	case *ArrayConstructor:
		return v.Items
	case *ObjectConstructor:
		return pairChildren(v.Pairs)
	case *Binary:
		return []Node{v.LHS, v.RHS}
	case *Path:
		return v.Steps
	case *Filter:
		return []Node{v.Expr}
	case *Sort:
		out := make([]Node, 0, len(v.Terms))
		for _, t := range v.Terms {
			out = append(out, t.Expr)
		}
		return out
	case *Group:
		return pairChildren(v.Pairs)
	case *Bind:
		return []Node{v.Value}
	case *Focus, *Index:
		return nil
	case *Apply:
		return []Node{v.LHS, v.RHS}
	case *Range:
		return []Node{v.From, v.To}
	case *Condition:
		return []Node{v.Cond, v.Then, v.Else}
	case *Coalesce:
		return []Node{v.LHS, v.RHS}
	case *Elvis:
		return []Node{v.LHS, v.RHS}
	case *Block:
		return v.Exprs
	case *Lambda:
		if v.Body == nil {
			return nil
		}
		return []Node{v.Body}
	case *Call:
		out := make([]Node, 0, len(v.Args)+1)
		out = append(out, v.Callee)
		out = append(out, v.Args...)
		return out
	case *Transform:
		out := []Node{v.Pattern, v.Update}
		if v.Delete != nil {
			out = append(out, v.Delete)
		}
		return out
	case *FlashBlock:
		out := []Node{}
		if v.InstanceExpr != nil {
			out = append(out, v.InstanceExpr)
		}
		out = append(out, v.Rules...)
		return out
	case *FlashRule:
		out := []Node{}
		if v.Context != nil {
			out = append(out, v.Context)
		}
		if v.InlineExpression != nil {
			out = append(out, v.InlineExpression)
		}
		out = append(out, v.Subrules...)
		return out
	default:
		return nil
	}
}

func pairChildren(pairs []Pair) []Node {
	out := make([]Node, 0, len(pairs)*2)
	for _, p := range pairs {
		if p.Key != nil {
			out = append(out, p.Key)
		}
		out = append(out, p.Value)
	}
	return out
}

// Walk visits n and every descendant depth-first. before(n) is called
// first; if it returns false, n's children are skipped. after(n) is
// always called once before/after's children have been visited, unless
// before returned false.
func Walk(n Node, before func(Node) bool, after func(Node)) {
	if n == nil {
		return
	}
	if before != nil && !before(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, before, after)
	}
	if after != nil {
		after(n)
	}
}

// AnyContainsFlash reports whether n or any descendant is a FlashBlock
// or FlashRule — used to set the root's containsFlash flag (spec 4.3).
func AnyContainsFlash(n Node) bool {
	found := false
	Walk(n, func(x Node) bool {
		if found {
			return false
		}
		if x.Kind() == KindFlashBlock || x.Kind() == KindFlashRule {
			found = true
		}
		return !found
	}, nil)
	return found
}
