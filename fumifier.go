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

// Package fumifier compiles and evaluates FLASH-capable expressions:
// JSONata-style data transformations extended with a block syntax that
// constructs FHIR resources directly against a structure definition
// (spec component list A-J). Compile parses and statically resolves an
// expression once; the returned *Expr evaluates repeatedly against
// different inputs, the way a compiled cue.Value is built once and
// queried many times.
package fumifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/builtin"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/flash"
	"github.com/mechanik-daniel/fumifier/internal/parser"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/rewrite"
	"github.com/mechanik-daniel/fumifier/internal/value"
	"github.com/mechanik-daniel/fumifier/navigator"
	"github.com/mechanik-daniel/fumifier/policy"
)

// sharedRoot is the static native-function frame every compiled
// expression's scope descends from (spec 9: "Global static frame built
// once, cloned per compiled expression so user assign/registerFunction
// calls stay local"). Built lazily so a program that never compiles an
// expression never pays the registration cost.
var (
	sharedRootOnce sync.Once
	sharedRoot     *eval.Frame
)

func rootFrame() *eval.Frame {
	sharedRootOnce.Do(func() { sharedRoot = builtin.NewRootFrame() })
	return sharedRoot
}

// Expr is a compiled expression: its AST, resolved FHIR definitions (if
// any), and the per-expression scope holding whatever Assign/
// RegisterFunction calls have added (spec 3, "A compiled expression owns
// its AST, its resolved-definitions bag, its static function table, and
// references to the navigator and AST cache").
type Expr struct {
	root ast.Node

	navigator navigator.StructureNavigator
	defs      *resolver.Defs

	scope  *eval.Frame
	logger fumierr.Logger
	policy *policy.Engine

	compileErrs []fumierr.Error
}

// Compile parses src and statically resolves it against any configured
// navigator (spec 6, "compile(source, options?)").
func Compile(src string, opts ...Option) (*Expr, error) {
	cfg := newConfig(opts)

	var root ast.Node
	var parseErrs []fumierr.Error

	if cfg.cache != nil {
		if n, ok := cfg.cache.Get(src); ok {
			root = n
		}
	}
	if root == nil {
		// A cache that also supports in-flight lease dedup (the bundled
		// astcache.LRU) avoids two concurrent Compile calls for the same
		// source parsing it twice (spec 5, "Shared-resource policy").
		if leaser, ok := cfg.cache.(interface {
			Lease(string) (func(), bool)
		}); ok {
			release, isLeader := leaser.Lease(src)
			if !isLeader {
				release()
				if n, ok := cfg.cache.Get(src); ok {
					root = n
				}
			} else {
				defer release()
			}
		}
	}
	if root == nil {
		root, parseErrs = parser.Parse(src, parser.Options{Recover: cfg.recover})
		if len(parseErrs) > 0 && !cfg.recover {
			return nil, parseErrs[0]
		}
		if cfg.cache != nil {
			cfg.cache.Set(src, root)
		}
	}

	return compile(root, parseErrs, cfg)
}

// CompileAST skips parsing, statically resolving an already-built AST
// (spec 6, "compile from a pre-parsed tree" — used by hosts that parse
// once and fan the same tree out to several navigators/policies).
func CompileAST(n ast.Node, opts ...Option) (*Expr, error) {
	cfg := newConfig(opts)
	return compile(n, nil, cfg)
}

func compile(root ast.Node, parseErrs []fumierr.Error, cfg *compileConfig) (*Expr, error) {
	rewritten, result := rewrite.Rewrite(root)

	e := &Expr{
		root:        rewritten,
		navigator:   cfg.navigator,
		scope:       rootFrame().NewChildFrame(),
		logger:      fumierr.NopLogger{},
		policy:      policy.New(),
		compileErrs: parseErrs,
	}

	if rewritten.ContainsFlash() {
		if cfg.navigator == nil {
			return nil, fumierr.New("F3000", rewritten.Pos(), nil)
		}
		defs, resErrs, err := resolver.Resolve(rewritten, result, cfg.navigator, resolver.Options{Recover: cfg.recover})
		if err != nil {
			return nil, err
		}
		e.defs = defs
		e.compileErrs = append(e.compileErrs, resErrs...)
	}

	return e, nil
}

// Evaluate runs the compiled expression against input with the given
// variable bindings (spec 6, "evaluate(input, bindings?)"), returning
// the collapsed result value or the first fatal diagnostic as an error.
func (e *Expr) Evaluate(ctx context.Context, input any, bindings map[string]any) (any, error) {
	res, bag, _, err := e.run(ctx, input, bindings)
	_ = bag
	return res, err
}

// EvaluateVerbose runs the same way as Evaluate but always returns the
// full diagnostics bag alongside the result (spec 6,
// "evaluateVerbose(input, bindings?)"), even when nothing was thrown.
// Status is derived per spec 7: a fatal entry (sev<10) or a returned err
// means 422; an invalid entry (10<=sev<20) or anything collected below
// throwLevel means 206 (partial); otherwise 200.
func (e *Expr) EvaluateVerbose(ctx context.Context, input any, bindings map[string]any) *Report {
	res, bag, executionID, err := e.run(ctx, input, bindings)

	ok := err == nil && !bag.HasFatal()
	status := 200
	switch {
	case err != nil || bag.HasFatal():
		status = 422
	case bag.HasInvalid() || bag.HasBelow(e.policy.ThrowLevel):
		status = 206
	}

	return &Report{
		Ok:          ok,
		Status:      status,
		Result:      res,
		Err:         err,
		Diagnostics: bag,
		ExecutionID: executionID,
	}
}

func (e *Expr) run(ctx context.Context, input any, bindings map[string]any) (any, *fumierr.Bag, string, error) {
	global := &eval.Global{
		Timestamp:   time.Now().UnixMilli(),
		ExecutionID: uuid.NewString(),
	}
	callFr := e.scope.NewCallFrame(global)
	callFr.Bind("executionId", global.ExecutionID)
	for k, v := range bindings {
		callFr.Bind(k, v)
	}

	bag := fumierr.NewBag()
	ev := &eval.Evaluator{
		Diagnostics: bag,
		Logger:      e.logger,
		Policy:      e.policy,
		Flash:       flash.Evaluate,
		Defs:        e.defs,
		Navigator:   e.navigator,
	}

	res, err := ev.Eval(ctx, e.root, input, callFr)
	return value.Collapse(res), bag, global.ExecutionID, err
}

// Assign binds name to v in this expression's local scope (spec 6,
// "assign(name, value)"); it does not affect any other compiled
// expression sharing the same native-function root.
func (e *Expr) Assign(name string, v any) {
	e.scope.Bind(name, v)
}

// RegisterFunction installs a custom native function under name, scoped
// to this expression only (spec 6, "registerFunction(name, impl,
// signature?)"). An empty signature skips argument validation/coercion.
func (e *Expr) RegisterFunction(name, signature string, native func(*value.CallContext, []any) (any, error)) error {
	var sig *ast.Signature
	if signature != "" {
		parsed, err := parser.ParseSignatureString(signature)
		if err != nil {
			return err
		}
		sig = parsed
	}
	e.scope.Bind(name, &value.Function{Name: name, Signature: sig, Native: native})
	return nil
}

// SetLogger installs the logger this expression's evaluations route
// $warn/$info/$trace and policy-logged diagnostics through (spec 6,
// "setLogger(logger)").
func (e *Expr) SetLogger(l fumierr.Logger) {
	if l == nil {
		l = fumierr.NopLogger{}
	}
	e.logger = l
}

// SetPolicy overrides the four threshold scope-variables spec 4.8
// defines (throwLevel/logLevel/collectLevel/validationLevel).
func (e *Expr) SetPolicy(throwLevel, logLevel, collectLevel, validationLevel int) {
	e.policy = &policy.Engine{
		ThrowLevel:      throwLevel,
		LogLevel:        logLevel,
		CollectLevel:    collectLevel,
		ValidationLevel: validationLevel,
	}
}

// AST returns the compiled, rewritten tree.
func (e *Expr) AST() ast.Node { return e.root }

// Errors returns the compile-time diagnostics collected when the
// expression was compiled with WithRecover; empty otherwise.
func (e *Expr) Errors() []fumierr.Error { return e.compileErrs }
