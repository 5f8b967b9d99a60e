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

// Unchain implements the pre-flash rewrite (spec 4.3): every flashrule
// whose path has more than one step is split into a nested chain of
// single-step flashrules, the first step staying at the outer level and
// each deeper step becoming the sole subrule of the one before it. The
// deepest node in the chain receives the original inline expression and
// indented subrules. Only the outermost node keeps the rule's context
// prefix, since it fires once per the whole chain.
func Unchain(root ast.Node) ast.Node {
	return Apply(root, unchainVisit)
}

func unchainVisit(n ast.Node) (ast.Node, bool) {
	if fr, ok := n.(*ast.FlashRule); ok {
		return unchainOne(fr), true
	}
	return n, true
}

func unchainOne(fr *ast.FlashRule) ast.Node {
	switch len(fr.PathSteps) {
	case 0:
		return fr
	case 1:
		step := fr.PathSteps[0]
		fr.Name = step.Name
		fr.Slices = step.Slices
		fr.PathSteps = nil
		return fr
	}

	steps := fr.PathSteps
	outer := ast.NewFlashRule(steps[0].Pos)
	outer.Name = steps[0].Name
	outer.Slices = steps[0].Slices
	outer.Context = fr.Context

	cur := outer
	for i := 1; i < len(steps); i++ {
		child := ast.NewFlashRule(steps[i].Pos)
		child.Name = steps[i].Name
		child.Slices = steps[i].Slices
		cur.Subrules = []ast.Node{child}
		cur = child
	}
	cur.InlineExpression = fr.InlineExpression
	cur.Subrules = append(cur.Subrules, fr.Subrules...)
	return outer
}
