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

package value

import (
	"context"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// Function is the runtime representation of any callable: a compiled
// lambda closure or a native Go function. Both are validated against
// the same ast.Signature machinery (spec 4.6).
type Function struct {
	Name      string
	Signature *ast.Signature
	Arity     int // -1 when variadic/unconstrained

	// Native is set for builtins; Lambda* fields are set for compiled
	// user/FLASH-defined functions.
	Native func(ctx *CallContext, args []any) (any, error)

	LambdaParams []string
	LambdaBody   ast.Node
	// Closure is opaque to this package (an *eval.Frame); stored as any
	// to avoid an import cycle between internal/value and internal/eval.
	Closure any

	// Thunk marks a tail-call wrapper produced by the rewriter (spec
	// 4.3): applying it just re-enters LambdaBody, which the evaluator's
	// trampoline loop does without growing the Go call stack.
	Thunk bool
}

// CallContext is the "this"-like focus object native functions receive
// (spec 4.5: "They accept a this-like focus object {environment,
// input}").
type CallContext struct {
	Environment any // *eval.Frame, opaque here
	Input       any
	Pos         token.Pos
	Ctx         context.Context

	// Apply lets a higher-order native ($map, $filter, $reduce, $sift,
	// $each, $pMap, $pLimit) invoke a function value it received as an
	// argument, reusing this call's context/frame (spec 4.9). It is the
	// bridge across the internal/value <-> internal/eval import-cycle
	// boundary (spec 9's "symbol-keyed environment slots" note): a
	// closure, not a method the function-value type itself can own.
	Apply func(fn *Function, args []any) (any, error)

	// EvalString bridges $eval (spec 4.9) the same way: parse+evaluate a
	// string expression in the calling frame's environment.
	EvalString func(src string, input any) (any, error)

	// Diagnose bridges $warn/$info/$trace (spec 4.9): route a
	// policy-governed diagnostic through the evaluator's Policy and
	// Diagnostics bag.
	Diagnose func(code string, inserts map[string]any) error
}

// ValidateAndCoerce checks args against sig and returns the coerced
// argument list, applying array-wrapping for array-of-T params and
// filling in the context value for `-` (contextable) params that were
// omitted (spec 4.6).
func ValidateAndCoerce(sig *ast.Signature, args []any, context any, pos token.Pos) ([]any, error) {
	if sig == nil {
		return args, nil
	}
	out := make([]any, 0, len(sig.Params))
	ai := 0
	for _, p := range sig.Params {
		var a any
		have := ai < len(args)
		if have {
			a = args[ai]
		}
		if !have && p.Contextable {
			a = context
			have = true
		} else if have {
			ai++
		}
		if !have {
			if p.Optional {
				out = append(out, nil)
				continue
			}
			return nil, fumierr.New("T0410", pos, map[string]any{"param": p.Type.Code})
		}
		coerced, err := coerceParam(p, a, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, coerced)
	}
	// remaining args beyond the signature's param count are passed
	// through unchanged (one-or-more handling at the final param is the
	// common case; additional strict-arity checking is left to the
	// native function itself).
	for ; ai < len(args); ai++ {
		out = append(out, args[ai])
	}
	return out, nil
}

func coerceParam(p ast.SigParam, a any, pos token.Pos) (any, error) {
	if a == nil {
		if p.Optional {
			return nil, nil
		}
	}
	if p.Type != nil && p.Type.Code == 'a' {
		// Single values coerce to a one-element array (spec 4.6).
		arr := ToSlice(Collapse(a))
		if p.Type.Elem != nil {
			for _, e := range arr {
				if err := checkType(p.Type.Elem, e, pos); err != nil {
					return nil, fumierr.New("T0412", pos, map[string]any{"element": e})
				}
			}
		}
		return arr, nil
	}
	if err := checkType(p.Type, a, pos); err != nil {
		return nil, err
	}
	return a, nil
}

func checkType(t *ast.SigType, a any, pos token.Pos) error {
	if t == nil || a == nil {
		return nil
	}
	if len(t.Union) > 0 {
		for _, alt := range t.Union {
			if checkType(alt, a, pos) == nil {
				return nil
			}
		}
		return fumierr.New("T0410", pos, map[string]any{"value": a})
	}
	switch t.Code {
	case 's':
		if _, ok := a.(string); !ok {
			return fumierr.New("T0410", pos, map[string]any{"expected": "string"})
		}
	case 'n':
		if _, ok := ToFloat64(a); !ok {
			return fumierr.New("T0410", pos, map[string]any{"expected": "number"})
		}
	case 'b':
		if _, ok := a.(bool); !ok {
			return fumierr.New("T0410", pos, map[string]any{"expected": "boolean"})
		}
	case 'o':
		if _, ok := a.(map[string]any); !ok {
			return fumierr.New("T0410", pos, map[string]any{"expected": "object"})
		}
	case 'a':
		switch a.(type) {
		case []any, *Sequence:
		default:
			return fumierr.New("T0410", pos, map[string]any{"expected": "array"})
		}
	case 'f':
		if _, ok := a.(*Function); !ok {
			return fumierr.New("T0410", pos, map[string]any{"expected": "function"})
		}
	case 'j', 'x':
		// any JSON scalar/composite or anything at all — always matches.
	}
	return nil
}
