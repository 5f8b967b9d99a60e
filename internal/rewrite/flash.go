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
	"strings"

	"github.com/mechanik-daniel/fumifier/ast"
)

// ProcessAST implements the post-parse processing pass (spec 4.3): it
// assigns each flashrule a stable flashPathRefKey built from its
// enclosing flashblock's instanceof plus accumulated path segments
// (slices formatted as name[slice]), collects the
// structureDefinitionRefs/elementDefinitionRefs tables the resolver
// needs, wraps a rule's optional context as a binary "." node, and
// finally stamps containsFlash on the root. Must run after Unchain, so
// every flashrule it sees has at most one path step.
func ProcessAST(root ast.Node) (ast.Node, *Result) {
	refs := newResult()

	var visit VisitFunc
	visit = func(n ast.Node) (ast.Node, bool) {
		blk, ok := n.(*ast.FlashBlock)
		if !ok {
			return n, true
		}
		refs.StructureDefinitionRefs[blk.InstanceOf] = append(refs.StructureDefinitionRefs[blk.InstanceOf], blk)
		if blk.InstanceExpr != nil {
			blk.InstanceExpr = Apply(blk.InstanceExpr, visit)
		}
		blk.Rules = processRuleSlice(blk.Rules, blk.InstanceOf, "", refs, visit)
		return blk, false
	}

	root = Apply(root, visit)
	root.SetContainsFlash(ast.AnyContainsFlash(root))
	return root, refs
}

func processRuleSlice(rules []ast.Node, refBase, parentPath string, refs *Result, visit VisitFunc) []ast.Node {
	out := make([]ast.Node, len(rules))
	for i, r := range rules {
		out[i] = processRuleEntry(r, refBase, parentPath, refs, visit)
	}
	return out
}

func processRuleEntry(n ast.Node, refBase, parentPath string, refs *Result, visit VisitFunc) ast.Node {
	// An already-wrapped contextualized rule (from a prior ProcessAST run
	// over a cached or re-hydrated tree) still needs its refKeys
	// re-collected; reprocess its RHS without wrapping again.
	if b, ok := n.(*ast.Binary); ok && b.Op == "." {
		if inner, ok := b.RHS.(*ast.FlashRule); ok {
			b.LHS = Apply(b.LHS, visit)
			b.RHS = processRuleEntry(inner, refBase, parentPath, refs, visit)
			return b
		}
	}
	fr, ok := n.(*ast.FlashRule)
	if !ok {
		// Not a flash rule — e.g. a `$x := ...` binding used as a rule
		// body. It is not unchained or refKey-assigned, but still needs
		// a generic pass in case it embeds a nested flashblock.
		return Apply(n, visit)
	}

	segment := fr.Name
	if len(fr.Slices) > 0 {
		segment = fr.Name + "[" + strings.Join(fr.Slices, "][") + "]"
	}
	fullPath := segment
	if parentPath != "" {
		fullPath = parentPath + "." + segment
	}
	fr.FullPath = fullPath
	refKey := refBase + "::" + fullPath
	fr.FlashPathRefKey = refKey
	refs.ElementDefinitionRefs[refKey] = append(refs.ElementDefinitionRefs[refKey], fr)

	if fr.InlineExpression != nil {
		fr.InlineExpression = Apply(fr.InlineExpression, visit)
	}
	fr.Subrules = processRuleSlice(fr.Subrules, refBase, fullPath, refs, visit)

	if fr.Context != nil {
		ctx := Apply(fr.Context, visit)
		fr.Context = nil
		return ast.NewBinary(fr.Pos(), ".", ctx, fr)
	}
	return fr
}
