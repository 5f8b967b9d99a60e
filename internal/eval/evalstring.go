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
	"strings"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/parser"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/rewrite"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// EvalString implements $eval's "parse and evaluate a string expression
// in the current environment" (spec 4.9): inner syntax errors surface as
// D3120, inner evaluation failures as D3121. If the inner AST contains
// FLASH and this Evaluator carries a Navigator, a fresh Defs bag is
// resolved for it and a child Evaluator overrides only that slot — the
// regex cache and logger remain inherited, matching the enclosing call's
// configuration (spec 4.9).
func (ev *Evaluator) EvalString(ctx context.Context, src string, input any, fr *Frame) (any, error) {
	node, errs := parser.Parse(src, parser.Options{Recover: false})
	if len(errs) > 0 {
		return nil, fumierr.New("D3120", token.NoPos, map[string]any{"message": joinErrs(errs)})
	}
	rewritten, result := rewrite.Rewrite(node)

	innerEv := ev
	if result != nil && rewritten.ContainsFlash() && ev.Navigator != nil {
		defs, _, err := resolver.Resolve(rewritten, result, ev.Navigator, resolver.Options{Recover: false})
		if err != nil {
			return nil, fumierr.New("D3120", token.NoPos, map[string]any{"message": err.Error()})
		}
		child := *ev
		child.Defs = defs
		innerEv = &child
	}

	child := fr.NewChildFrame()
	res, err := innerEv.Eval(ctx, rewritten, input, child)
	if err != nil {
		return nil, fumierr.New("D3121", token.NoPos, map[string]any{"message": err.Error()})
	}
	return res, nil
}

func joinErrs(errs []fumierr.Error) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Diagnose routes a policy-governed diagnostic (spec 4.9's $warn/$info/
// $trace, codes F5320/F5500/F5600) through this Evaluator's Policy and
// Diagnostics bag, the same path a resolved FLASH violation takes.
func (ev *Evaluator) Diagnose(fr *Frame, code string, inserts map[string]any) error {
	executionID := ""
	if g := fr.Global(); g != nil {
		executionID = g.ExecutionID
	}
	if ev.Policy == nil {
		return nil
	}
	return ev.Policy.Handle(ev.Diagnostics, ev.Logger, executionID, code, token.NoPos, fumierr.FhirContext{}, inserts)
}
