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

import "github.com/mechanik-daniel/fumifier/ast"

// RewriteTailCalls implements the tail-call rewrite (spec 4.3): inside
// every lambda body, a function call occupying a tail position (a
// conditional's then/else branch, the last expression of a block, or
// the final step of a path) is replaced by a thunked lambda — an empty-
// parameter lambda whose body is the original call — so the evaluator
// can unwind the recursion with a trampoline loop instead of growing
// the Go call stack.
func RewriteTailCalls(root ast.Node) ast.Node {
	visit := func(n ast.Node) (ast.Node, bool) {
		if lam, ok := n.(*ast.Lambda); ok && lam.Body != nil && !lam.Thunk {
			lam.Body = markTail(lam.Body)
		}
		return n, true
	}
	return Apply(root, visit)
}

// markTail walks down through the constructs that can occupy tail
// position without themselves being a new lambda boundary, thunking
// any ast.Call it bottoms out on.
func markTail(n ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Call:
		lam := ast.NewLambda(v.Pos())
		lam.Thunk = true
		lam.Body = v
		return lam
	case *ast.Condition:
		v.Then = markTail(v.Then)
		if v.Else != nil {
			v.Else = markTail(v.Else)
		}
		return v
	case *ast.Block:
		if n := len(v.Exprs); n > 0 {
			v.Exprs[n-1] = markTail(v.Exprs[n-1])
		}
		return v
	case *ast.Path:
		if n := len(v.Steps); n > 0 {
			if _, ok := v.Steps[n-1].(*ast.Call); ok {
				v.Steps[n-1] = markTail(v.Steps[n-1])
			}
		}
		return v
	default:
		return n
	}
}
