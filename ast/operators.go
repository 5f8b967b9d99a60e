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

// Negate is unary "-".
type Negate struct {
	base
	Expr Node
}

func NewNegate(pos token.Pos, expr Node) *Negate {
	return &Negate{base: newBase(KindNegate, pos), Expr: expr}
}

// ArrayConstructor is `[a, b, c]`.
type ArrayConstructor struct {
	base
	Items []Node
	// Consolidate mirrors JSONata's internal "consArray" marker: a
	// singleton array constructor result should not be unwrapped to a
	// scalar by path flattening.
	Consolidate bool
}

func NewArrayConstructor(pos token.Pos) *ArrayConstructor {
	return &ArrayConstructor{base: newBase(KindArrayConstructor, pos)}
}

// Pair is one key:value entry of an object constructor or group.
type Pair struct {
	Key   Node
	Value Node
}

// ObjectConstructor is `{k: v, ...}`.
type ObjectConstructor struct {
	base
	Pairs []Pair
}

func NewObjectConstructor(pos token.Pos) *ObjectConstructor {
	return &ObjectConstructor{base: newBase(KindObjectConstructor, pos)}
}

// Binary covers the generic left/right operators that don't need extra
// structure: arithmetic, comparison, equality, concat (&), `in`.
type Binary struct {
	base
	Op  string
	LHS Node
	RHS Node
}

func NewBinary(pos token.Pos, op string, lhs, rhs Node) *Binary {
	return &Binary{base: newBase(KindBinary, pos), Op: op, LHS: lhs, RHS: rhs}
}

// Path is an ordered list of steps joined by `.`; produced directly by
// the parser for simple chains and reconstituted by the rewriter when
// collapsing nested binary "." nodes (spec 4.3, "path collapsing").
type Path struct {
	base
	Steps           []Node
	KeepSingleton   bool
}

func NewPath(pos token.Pos, steps ...Node) *Path {
	return &Path{base: newBase(KindPath, pos), Steps: steps}
}

// Filter is a path predicate/index step `[expr]` applied to LHS.
type Filter struct {
	base
	Expr Node
}

func NewFilter(pos token.Pos, expr Node) *Filter {
	return &Filter{base: newBase(KindFilter, pos), Expr: expr}
}

// SortTerm is one term of a `^(term, term, ...)` clause.
type SortTerm struct {
	Expr       Node
	Descending bool
}

// Sort is the `^(...)` order-by step.
type Sort struct {
	base
	Terms []SortTerm
}

func NewSort(pos token.Pos) *Sort { return &Sort{base: newBase(KindSort, pos)} }

// Group is the `{k: v, ...}` step applied to a preceding tuple stream
// or sequence (spec 4.5, "group").
type Group struct {
	base
	Pairs []Pair
}

func NewGroup(pos token.Pos) *Group { return &Group{base: newBase(KindGroup, pos)} }

// Bind is `$name := expr`.
type Bind struct {
	base
	Name  string
	Value Node
}

func NewBind(pos token.Pos, name string, value Node) *Bind {
	return &Bind{base: newBase(KindBind, pos), Name: name, Value: value}
}

// Focus is the `@$v` step binding the per-element focus variable.
type Focus struct {
	base
	Var string
}

func NewFocus(pos token.Pos, v string) *Focus { return &Focus{base: newBase(KindFocus, pos), Var: v} }

// Index is the `#$i` step binding the per-element positional index.
type Index struct {
	base
	Var string
}

func NewIndex(pos token.Pos, v string) *Index { return &Index{base: newBase(KindIndex, pos), Var: v} }

// Apply is `lhs ~> rhs`.
type Apply struct {
	base
	LHS Node
	RHS Node
}

func NewApply(pos token.Pos, lhs, rhs Node) *Apply {
	return &Apply{base: newBase(KindApply, pos), LHS: lhs, RHS: rhs}
}

// Range is `from..to`.
type Range struct {
	base
	From Node
	To   Node
}

func NewRange(pos token.Pos, from, to Node) *Range {
	return &Range{base: newBase(KindRange, pos), From: from, To: to}
}

// Condition is the ternary `cond ? then : else`.
type Condition struct {
	base
	Cond Node
	Then Node
	Else Node
}

func NewCondition(pos token.Pos, cond, then, els Node) *Condition {
	return &Condition{base: newBase(KindCondition, pos), Cond: cond, Then: then, Else: els}
}

// Coalesce is `lhs ?? rhs`.
type Coalesce struct {
	base
	LHS Node
	RHS Node
}

func NewCoalesce(pos token.Pos, lhs, rhs Node) *Coalesce {
	return &Coalesce{base: newBase(KindCoalesce, pos), LHS: lhs, RHS: rhs}
}

// Elvis is `lhs ?: rhs`.
type Elvis struct {
	base
	LHS Node
	RHS Node
}

func NewElvis(pos token.Pos, lhs, rhs Node) *Elvis {
	return &Elvis{base: newBase(KindElvis, pos), LHS: lhs, RHS: rhs}
}

// Block is a parenthesized sequence of expressions `(a; b; c)`; only the
// final expression's value is the block's result, but every expression
// is evaluated in turn so earlier ones may bind variables.
type Block struct {
	base
	Exprs []Node
}

func NewBlock(pos token.Pos) *Block { return &Block{base: newBase(KindBlock, pos)} }

// Transform is `|pattern|update|delete|`.
type Transform struct {
	base
	Pattern Node
	Update  Node
	Delete  Node
}

func NewTransform(pos token.Pos, pattern, update, del Node) *Transform {
	return &Transform{base: newBase(KindTransform, pos), Pattern: pattern, Update: update, Delete: del}
}
