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
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// applyTransform implements spec 4.5's "transform |p|u|d|": clone the
// input, select matches via pattern p, merge each match's updates via
// u, and optionally delete keys via d. Matches are plain Go maps, so
// mutating them in place mutates the clone directly — no copy-back
// step is needed.
func (ev *Evaluator) applyTransform(ctx context.Context, n *ast.Transform, input any, fr *Frame) (any, error) {
	cloned := cloneValue(input)

	matched, err := ev.Eval(ctx, n.Pattern, cloned, fr)
	if err != nil {
		return nil, err
	}

	for _, m := range value.ToSlice(matched) {
		obj, ok := m.(map[string]any)
		if !ok {
			continue
		}
		updates, err := ev.Eval(ctx, n.Update, obj, fr)
		if err != nil {
			return nil, err
		}
		if upd, ok := updates.(map[string]any); ok {
			for k, v := range upd {
				obj[k] = v
			}
		}
		if n.Delete != nil {
			toDelete, err := ev.Eval(ctx, n.Delete, obj, fr)
			if err != nil {
				return nil, err
			}
			for _, k := range value.ToSlice(toDelete) {
				if ks, ok := k.(string); ok {
					delete(obj, ks)
				}
			}
		}
	}
	return cloned, nil
}

// cloneValue deep-copies a runtime JSON-shaped value (maps/slices);
// scalars are immutable and returned as-is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
