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

// Package eval implements spec component F, the tree-walking
// evaluator: a Frame/scope chain modeled on JSONata's own environment
// object, dispatch by ast.Kind type switch (spec 9's tagged-union
// design extended to the evaluator, not just the AST), and a trampoline
// loop for tail-thunked lambda calls (spec 4.3/4.5).
package eval

// Global carries the state shared by every Frame created during one
// evaluate() call (spec 4.5: "Frames carry a shared global slot").
type Global struct {
	Timestamp      int64
	ExecutionID    string
	IsParallelCall bool
	Async          bool

	// EntryHook/ExitHook implement __evaluate_entry/__evaluate_exit
	// (spec 5): called before/after every node evaluation. Either may be
	// nil.
	EntryHook func(node any, input any, fr *Frame)
	ExitHook  func(node any, input any, result any, fr *Frame)

	// FramePushHook implements __createFrame_push (spec 5).
	FramePushHook func(fr *Frame)
}

// Frame is one lexical scope: a set of variable bindings plus a parent
// link for lookup fallthrough.
type Frame struct {
	bindings map[string]any
	parent   *Frame
	global   *Global
}

// NewRootFrame creates the top-level frame native functions are
// registered into; it is shared (read-only after compile) across every
// evaluate() call as the root of that call's frame chain.
func NewRootFrame() *Frame {
	return &Frame{bindings: make(map[string]any)}
}

// NewChildFrame creates a new frame as a child of f, sharing f's global
// state, and fires the __createFrame_push hook if bound.
func (f *Frame) NewChildFrame() *Frame {
	child := &Frame{bindings: make(map[string]any), parent: f, global: f.global}
	if child.global != nil && child.global.FramePushHook != nil {
		child.global.FramePushHook(child)
	}
	return child
}

// NewCallFrame creates the frame used as the root of one evaluate()
// call, owning its own Global (spec 4.5: "Per-call setup: fresh
// diagnostics bag, fresh execution id...").
func (f *Frame) NewCallFrame(g *Global) *Frame {
	child := &Frame{bindings: make(map[string]any), parent: f, global: g}
	return child
}

// Bind sets name in this frame (local scope — `$v := e` always binds in
// the current frame, never an ancestor's).
func (f *Frame) Bind(name string, v any) {
	f.bindings[name] = v
}

// Lookup walks the frame chain outward for name, returning (value,
// true) or (nil, false) if unbound anywhere (spec 4.5, "variable").
func (f *Frame) Lookup(name string) (any, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if v, ok := fr.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Global returns the frame's shared call-global state.
func (f *Frame) Global() *Global { return f.global }
