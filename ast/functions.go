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

package ast

import "github.com/mechanik-daniel/fumifier/internal/token"

// Signature is a parsed function type signature string (spec 4.6),
// e.g. "<s-n?s?:s>".
type Signature struct {
	Params []SigParam
	Return *SigType
	Raw    string
}

// SigType is one entry of the closed grammar in spec 4.6: a base type
// code, an optional element type for arrays (`<a<s>>`), or a union.
type SigType struct {
	Code     byte // 's','n','b','o','a','f','j','x', or 0 for union
	Elem     *SigType
	Union    []*SigType
}

// SigParam is one parameter slot: a type plus cardinality/context
// markers.
type SigParam struct {
	Type        *SigType
	Optional    bool // '?'
	OneOrMore   bool // '+'
	Contextable bool // '-': may be omitted, defaulting to the call's focus
}

// Lambda is `function(params){body}` / `λ(params){body}`, optionally
// preceded by a `<signature>`.
type Lambda struct {
	base
	Params    []string
	Signature *Signature
	Body      Node
	// Thunk marks a synthetic zero-arg lambda produced by the tail-call
	// rewrite (spec 4.3): `{ thunk: true, body: <original call> }`.
	Thunk bool
	Name  string // best-effort name for diagnostics, e.g. from `$f := function(){}`
}

func NewLambda(pos token.Pos) *Lambda { return &Lambda{base: newBase(KindLambda, pos)} }

// Call is a function invocation `callee(args...)`. A bare `?` argument
// anywhere in Args flags Partial; PartialArg nodes mark its position(s).
type Call struct {
	base
	Callee  Node
	Args    []Node
	Partial bool
}

func NewCall(pos token.Pos, callee Node) *Call {
	return &Call{base: newBase(KindCall, pos), Callee: callee}
}

// PartialArg is the `?` placeholder argument used in partial application.
type PartialArg struct{ base }

func NewPartialArg(pos token.Pos) *PartialArg { return &PartialArg{newBase(KindPartialArg, pos)} }
