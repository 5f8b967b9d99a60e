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

package builtin

import (
	"github.com/google/uuid"

	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// registerLogic installs spec 4.9's logic/meta functions: boolean, not,
// type, error, assert, eval, clone, uuid, reference, trace, warn, info.
func registerLogic(root *eval.Frame) {
	register(root, "boolean", "<x-:b>", biBoolean)
	register(root, "not", "<x-:b>", biNot)
	register(root, "type", "<x:s>", biType)
	register(root, "error", "<s?:x>", biError)
	register(root, "assert", "<bs?:x>", biAssert)
	register(root, "eval", "<s-x?:x>", biEval)
	register(root, "clone", "<x-:x>", biClone)
	register(root, "uuid", "<:s>", biUuid)
	register(root, "reference", "<o:s>", biReference)
	register(root, "trace", "<x-s?:x>", biTrace)
	register(root, "warn", "<s-o?:x>", biWarn)
	register(root, "info", "<s-o?:x>", biInfo)
}

func biBoolean(cctx *value.CallContext, args []any) (any, error) {
	return value.IsTruthy(value.Collapse(arg(args, 0))), nil
}

func biNot(cctx *value.CallContext, args []any) (any, error) {
	return !value.IsTruthy(value.Collapse(arg(args, 0))), nil
}

// biType implements $type, returning JSONata's coarse runtime kind name.
func biType(cctx *value.CallContext, args []any) (any, error) {
	v := value.Collapse(arg(args, 0))
	switch v.(type) {
	case nil:
		return "null", nil
	case bool:
		return "boolean", nil
	case string:
		return "string", nil
	case float64:
		return "number", nil
	case map[string]any:
		return "object", nil
	case []any, *value.Sequence:
		return "array", nil
	case *value.Function:
		return "function", nil
	case *value.Regex:
		return "function", nil
	default:
		if _, ok := value.ToFloat64(v); ok {
			return "number", nil
		}
		return "object", nil
	}
}

// biError implements $error(message?): throws a user-raised D3050
// runtime error carrying message (spec 4.9).
func biError(cctx *value.CallContext, args []any) (any, error) {
	msg := "$error() function evaluated"
	if s, err := argStr("error", args, 0); err == nil && s != "" {
		msg = s
	}
	return nil, errf("error", "%s", msg)
}

// biAssert implements $assert(condition, message?): throws when
// condition is falsy.
func biAssert(cctx *value.CallContext, args []any) (any, error) {
	cond := value.IsTruthy(value.Collapse(arg(args, 0)))
	if cond {
		return nil, nil
	}
	msg := "$assert() statement failed"
	if s, err := argStr("assert", args, 1); err == nil && s != "" {
		msg = s
	}
	return nil, errf("assert", "%s", msg)
}

func biEval(cctx *value.CallContext, args []any) (any, error) {
	src, err := argStr("eval", args, 0)
	if err != nil {
		return nil, err
	}
	input := cctx.Input
	if len(args) > 1 {
		input = value.Collapse(args[1])
	}
	if cctx.EvalString == nil {
		return nil, errf("eval", "no evaluator context available")
	}
	return cctx.EvalString(src, input)
}

func biClone(cctx *value.CallContext, args []any) (any, error) {
	return deepClone(value.Collapse(arg(args, 0))), nil
}

func deepClone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = deepClone(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = deepClone(it)
		}
		return out
	case *value.Sequence:
		items := make([]any, len(x.Items))
		for i, it := range x.Items {
			items[i] = deepClone(it)
		}
		return &value.Sequence{Items: items, KeepSingleton: x.KeepSingleton}
	default:
		return x
	}
}

func biUuid(cctx *value.CallContext, args []any) (any, error) {
	return uuid.NewString(), nil
}

// biReference implements $reference(resource): the default fullUrl
// generator spec 4.7's Bundle assembly step 7 falls back to when no
// user-registered $reference is provided — "resourceType/id".
func biReference(cctx *value.CallContext, args []any) (any, error) {
	m, ok := value.Collapse(arg(args, 0)).(map[string]any)
	if !ok {
		return nil, errf("reference", "argument must be a FHIR resource object")
	}
	rt, _ := m["resourceType"].(string)
	id, _ := m["id"].(string)
	if rt == "" || id == "" {
		return nil, errf("reference", "resource must have resourceType and id to be referenced")
	}
	return rt + "/" + id, nil
}

func biTrace(cctx *value.CallContext, args []any) (any, error) {
	v := value.Collapse(arg(args, 0))
	label := ""
	if s, err := argStr("trace", args, 1); err == nil {
		label = s
	}
	if cctx.Diagnose != nil {
		s, _ := jsonOf(v)
		_ = cctx.Diagnose("F5600", map[string]any{"message": traceMessage(label, s)})
	}
	return v, nil
}

func traceMessage(label, value string) string {
	if label == "" {
		return value
	}
	return label + ": " + value
}

func biWarn(cctx *value.CallContext, args []any) (any, error) {
	msg, err := argStr("warn", args, 0)
	if err != nil {
		return nil, err
	}
	if cctx.Diagnose != nil {
		return nil, cctx.Diagnose("F5320", map[string]any{"message": msg})
	}
	return nil, nil
}

func biInfo(cctx *value.CallContext, args []any) (any, error) {
	msg, err := argStr("info", args, 0)
	if err != nil {
		return nil, err
	}
	if cctx.Diagnose != nil {
		return nil, cctx.Diagnose("F5500", map[string]any{"message": msg})
	}
	return nil, nil
}
