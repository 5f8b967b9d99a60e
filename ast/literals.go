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

// LiteralKind distinguishes the four literal value shapes (spec 3).
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBoolean
	LitNull
)

// Literal is a number/string/boolean/null literal. Number is parsed
// eagerly to float64; string values have already had escapes decoded by
// the lexer.
type Literal struct {
	base
	LitKind LiteralKind
	Str     string
	Num     float64
	Bool    bool
}

func NewLiteral(pos token.Pos, lk LiteralKind) *Literal {
	return &Literal{base: newBase(KindLiteral, pos), LitKind: lk}
}

// Name is a single unquoted or backtick-quoted path segment, e.g. `foo`
// in `a.foo`.
type Name struct {
	base
	Text string
	// Slot, when >0, marks that this step must bind its input as an
	// ancestor-accessible value for a later %-step to reference (spec
	// 4.3, "Ancestor resolution").
	Slot  int
	Label string
}

func NewName(pos token.Pos, text string) *Name {
	return &Name{base: newBase(KindName, pos), Text: text}
}

// Variable is $name, or the bare $ (current context) when Name == "".
type Variable struct {
	base
	Name string
}

func NewVariable(pos token.Pos, name string) *Variable {
	return &Variable{base: newBase(KindVariable, pos), Name: name}
}

// Wildcard is the path step `*`.
type Wildcard struct{ base }

func NewWildcard(pos token.Pos) *Wildcard { return &Wildcard{newBase(KindWildcard, pos)} }

// Descendant is the path step `**`.
type Descendant struct{ base }

func NewDescendant(pos token.Pos) *Descendant { return &Descendant{newBase(KindDescendant, pos)} }

// Parent is `%`, optionally `%.%` chained; Slot/Label identify which
// ancestor frame it resolves to after the rewriter's ancestor pass.
type Parent struct {
	base
	Slot  int
	Label string
}

func NewParent(pos token.Pos) *Parent { return &Parent{base: newBase(KindParent, pos)} }

// Regex is a /pattern/flags literal; it evaluates to a match-producing
// function value (spec 3: "closure-producing match function").
type Regex struct {
	base
	Pattern string
	Flags   string
}

func NewRegex(pos token.Pos, pattern, flags string) *Regex {
	return &Regex{base: newBase(KindRegex, pos), Pattern: pattern, Flags: flags}
}
