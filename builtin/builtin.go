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

// Package builtin implements spec component J, fumifier's native
// function library: the aggregate/string/math/date-time/logic functions
// every compiled expression's root scope carries (spec 4.9). Grouped
// into one registration file per spec category the way cue/pkg groups
// strings/list/math/time into sibling packages, each registered through
// a single builder (cue/pkg.Register's role, here NewRootFrame) so a
// compiled expression's `assign`/`registerFunction` calls stay local
// instead of mutating a shared global table.
package builtin

import (
	"fmt"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/parser"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// NewRootFrame builds the static root *eval.Frame every compiled
// expression clones its scope from (spec 9: "Global static frame...
// cloned per compiled expression so user assign/registerFunction calls
// stay local").
func NewRootFrame() *eval.Frame {
	root := eval.NewRootFrame()
	registerAggregate(root)
	registerStrings(root)
	registerMath(root)
	registerDatetime(root)
	registerLogic(root)
	return root
}

// register compiles sig once (spec 4.6: "Signatures... are parsed
// once") and binds name to a *value.Function wrapping native in root.
func register(root *eval.Frame, name, sig string, native func(*value.CallContext, []any) (any, error)) {
	var parsed *ast.Signature
	if sig != "" {
		s, err := parser.ParseSignatureString(sig)
		if err == nil {
			parsed = s
		}
	}
	root.Bind(name, &value.Function{Name: name, Signature: parsed, Native: native})
}

// errf builds a generic native-function diagnostic (D3050, spec 4.9 has
// no code of its own for most runtime-only native failures; it follows
// the same "{{{message}}}" passthrough shape as F5320/F5500/F5600).
func errf(name, format string, a ...any) error {
	return fumierr.New("D3050", token.NoPos, map[string]any{
		"message": fmt.Sprintf("$%s: %s", name, fmt.Sprintf(format, a...)),
	})
}

func arg(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

func argStr(name string, args []any, i int) (string, error) {
	v := value.Collapse(arg(args, i))
	s, ok := v.(string)
	if !ok {
		if value.IsUndefined(v) {
			return "", nil
		}
		return "", errf(name, "argument %d must be a string", i+1)
	}
	return s, nil
}

func argNum(name string, args []any, i int) (float64, bool, error) {
	v := value.Collapse(arg(args, i))
	if value.IsUndefined(v) {
		return 0, false, nil
	}
	f, ok := value.ToFloat64(v)
	if !ok {
		return 0, false, errf(name, "argument %d must be a number", i+1)
	}
	return f, true, nil
}

func argFn(name string, args []any, i int) (*value.Function, error) {
	v := value.Collapse(arg(args, i))
	fn, ok := v.(*value.Function)
	if !ok {
		return nil, errf(name, "argument %d must be a function", i+1)
	}
	return fn, nil
}
