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

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

func (ev *Evaluator) evalLambda(n *ast.Lambda, fr *Frame) *value.Function {
	return &value.Function{
		Name:         n.Name,
		Signature:    n.Signature,
		Arity:        len(n.Params),
		LambdaParams: n.Params,
		LambdaBody:   n.Body,
		Closure:      fr,
		Thunk:        n.Thunk,
	}
}

// evalCall implements spec 4.5's "function call": evaluate the callee,
// evaluate arguments eagerly, then apply — trampolining through any
// chain of thunked tail calls instead of recursing in Go.
func (ev *Evaluator) evalCall(ctx context.Context, n *ast.Call, input any, fr *Frame) (any, error) {
	calleeV, err := ev.Eval(ctx, n.Callee, input, fr)
	if err != nil {
		return nil, err
	}
	fn, ok := calleeV.(*value.Function)
	if !ok {
		if nm, ok := n.Callee.(*ast.Name); ok {
			return nil, fumierr.New("T1005", n.Pos(), map[string]any{"name": nm.Text})
		}
		return nil, fumierr.New("T1006", n.Pos(), nil)
	}

	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		if _, ok := a.(*ast.PartialArg); ok {
			args = append(args, a)
			continue
		}
		v, err := ev.Eval(ctx, a, input, fr)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	if n.Partial {
		return ev.partialApply(fn, args, fr), nil
	}

	return ev.apply(ctx, fn, args, input, fr)
}

// apply invokes fn with args, trampolining while the result is itself a
// thunked tail call (spec 4.3/4.5). fr is the calling frame, threaded
// through to native functions via CallContext.Environment so natives
// like $eval and registerFunction-installed closures can see the
// caller's bindings and per-call global state (spec 4.5/4.9).
func (ev *Evaluator) apply(ctx context.Context, fn *value.Function, args []any, input any, fr *Frame) (any, error) {
	for {
		if fn.Native != nil {
			cctx := &value.CallContext{
				Input:       input,
				Ctx:         ctx,
				Environment: fr,
				Apply: func(f *value.Function, a []any) (any, error) {
					return ev.apply(ctx, f, a, input, fr)
				},
				EvalString: func(src string, evalInput any) (any, error) {
					return ev.EvalString(ctx, src, evalInput, fr)
				},
				Diagnose: func(code string, inserts map[string]any) error {
					return ev.Diagnose(fr, code, inserts)
				},
			}
			callArgs := args
			if fn.Signature != nil {
				coerced, err := value.ValidateAndCoerce(fn.Signature, args, input, cctx.Pos)
				if err == nil {
					callArgs = coerced
				}
			}
			res, err := fn.Native(cctx, callArgs)
			if err != nil {
				return nil, err
			}
			fn2, isThunk := res.(*value.Function)
			if isThunk && fn2.Thunk {
				fn, args = fn2, nil
				continue
			}
			return res, nil
		}

		closure, _ := fn.Closure.(*Frame)
		if closure == nil {
			closure = ev.rootFrame()
		}
		callFr := closure.NewChildFrame()
		for i, p := range fn.LambdaParams {
			if i < len(args) {
				callFr.Bind(p, args[i])
			}
		}
		var focus any
		if len(args) > 0 {
			focus = args[0]
		}
		if fn.Signature != nil {
			coerced, err := value.ValidateAndCoerce(fn.Signature, args, focus, fn.LambdaBody.Pos())
			if err == nil {
				for i, p := range fn.LambdaParams {
					if i < len(coerced) {
						callFr.Bind(p, coerced[i])
					}
				}
			}
		}

		if fn.Thunk {
			// LambdaBody is exactly the tail call the rewriter thunked
			// (spec 4.3); unwrap it here instead of letting ev.Eval
			// recurse into evalCall, so the loop — not the Go call
			// stack — carries the recursion.
			call, ok := fn.LambdaBody.(*ast.Call)
			if !ok {
				return ev.Eval(ctx, fn.LambdaBody, focus, callFr)
			}
			calleeV, err := ev.Eval(ctx, call.Callee, focus, callFr)
			if err != nil {
				return nil, err
			}
			next, ok := calleeV.(*value.Function)
			if !ok {
				return nil, fumierr.New("T1006", call.Pos(), nil)
			}
			nextArgs := make([]any, 0, len(call.Args))
			for _, a := range call.Args {
				v, err := ev.Eval(ctx, a, focus, callFr)
				if err != nil {
					return nil, err
				}
				nextArgs = append(nextArgs, v)
			}
			fn, args = next, nextArgs
			continue
		}

		res, err := ev.Eval(ctx, fn.LambdaBody, focus, callFr)
		if err != nil {
			return nil, err
		}
		// A body that bottoms out on a thunked tail call evaluates to the
		// thunk function itself; keep trampolining instead of returning it.
		if fn2, ok := res.(*value.Function); ok && fn2.Thunk {
			fn, args = fn2, nil
			continue
		}
		return res, nil
	}
}

// rootFrame is used when a native-produced function has no captured
// closure of its own.
func (ev *Evaluator) rootFrame() *Frame {
	return &Frame{bindings: make(map[string]any)}
}

// Apply exposes apply to callers outside this package (the flash
// package's virtual-rule evaluation and $eval's inner invocation need
// to invoke a *value.Function the same way a Call node does).
func (ev *Evaluator) Apply(ctx context.Context, fn *value.Function, args []any, input any, fr *Frame) (any, error) {
	return ev.apply(ctx, fn, args, input, fr)
}

// partialApply implements JSONata's `fn(?, x)`-style partial
// application: positions holding a PartialArg placeholder are filled
// from the eventual call's arguments, in order; every other position is
// bound now.
func (ev *Evaluator) partialApply(fn *value.Function, bound []any, fr *Frame) *value.Function {
	wrapped := &value.Function{Name: fn.Name + "(partial)"}
	wrapped.Native = func(cctx *value.CallContext, callArgs []any) (any, error) {
		merged := make([]any, len(bound))
		ci := 0
		for i, b := range bound {
			if _, isPartial := b.(*ast.PartialArg); isPartial {
				if ci < len(callArgs) {
					merged[i] = callArgs[ci]
					ci++
				}
				continue
			}
			merged[i] = b
		}
		ctx := cctx.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		return ev.apply(ctx, fn, merged, cctx.Input, fr)
	}
	return wrapped
}

// evalApply implements spec 4.5's "apply ~>": LHS piped as the RHS
// call's first argument, or function composition when both sides are
// functions.
func (ev *Evaluator) evalApply(ctx context.Context, n *ast.Apply, input any, fr *Frame) (any, error) {
	lhs, err := ev.Eval(ctx, n.LHS, input, fr)
	if err != nil {
		return nil, err
	}
	if call, ok := n.RHS.(*ast.Call); ok {
		calleeV, err := ev.Eval(ctx, call.Callee, input, fr)
		if err != nil {
			return nil, err
		}
		fn, ok := calleeV.(*value.Function)
		if !ok {
			return nil, fumierr.New("T1006", n.Pos(), nil)
		}
		args := []any{lhs}
		for _, a := range call.Args {
			v, err := ev.Eval(ctx, a, input, fr)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return ev.apply(ctx, fn, args, input, fr)
	}

	rhs, err := ev.Eval(ctx, n.RHS, input, fr)
	if err != nil {
		return nil, err
	}
	lfn, lok := lhs.(*value.Function)
	rfn, rok := rhs.(*value.Function)
	if lok && rok {
		composed := &value.Function{Name: lfn.Name + "~>" + rfn.Name}
		composed.Native = func(cctx *value.CallContext, args []any) (any, error) {
			mid, err := ev.apply(ctx, lfn, args, cctx.Input, fr)
			if err != nil {
				return nil, err
			}
			return ev.apply(ctx, rfn, []any{mid}, cctx.Input, fr)
		}
		return composed, nil
	}
	if rok {
		// value ~> fn applies fn to the value (covers transform and
		// partially-applied functions on the RHS).
		return ev.apply(ctx, rfn, []any{lhs}, input, fr)
	}
	return nil, fumierr.New("T2006", n.Pos(), nil)
}

func (ev *Evaluator) evalTransform(n *ast.Transform, fr *Frame) *value.Function {
	fn := &value.Function{Name: "transform"}
	fn.Native = func(cctx *value.CallContext, args []any) (any, error) {
		if len(args) == 0 {
			return nil, nil
		}
		ctx := context.Background()
		return ev.applyTransform(ctx, n, args[0], fr)
	}
	return fn
}
