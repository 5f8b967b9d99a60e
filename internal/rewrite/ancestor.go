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
	"fmt"

	"github.com/mechanik-daniel/fumifier/ast"
)

// ResolveAncestors implements spec 4.3's ancestor resolution: a path
// step that dereferences an outer context via `%` needs the evaluator
// to have kept that context around, so the nearest preceding named step
// is given a stable slot/label pair it can stash its per-iteration
// value under.
func ResolveAncestors(root ast.Node) ast.Node {
	counter := 0
	visit := func(n ast.Node) (ast.Node, bool) {
		if p, ok := n.(*ast.Path); ok {
			resolveAncestorsInPath(p, &counter)
		}
		return n, true
	}
	return Apply(root, visit)
}

func resolveAncestorsInPath(p *ast.Path, counter *int) {
	for i, step := range p.Steps {
		if !containsParentRef(step) {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			nm, ok := p.Steps[j].(*ast.Name)
			if !ok {
				continue
			}
			if nm.Slot == 0 {
				*counter++
				nm.Slot = *counter
				nm.Label = fmt.Sprintf("!%d", *counter)
			}
			break
		}
	}
}

func containsParentRef(n ast.Node) bool {
	found := false
	ast.Walk(n, func(x ast.Node) bool {
		if found {
			return false
		}
		if x.Kind() == ast.KindParent {
			found = true
		}
		return !found
	}, nil)
	return found
}
