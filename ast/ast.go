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

// Package ast defines fumifier's abstract syntax tree: a tagged sum type
// with one Go struct per node variant (spec 9, "Dynamic typing / duck-
// typed AST... use a tagged sum type with one variant per node kind").
// Every node implements Node, giving it a stable Kind tag and a source
// Position; the rewriter and resolver packages add fields onto these
// structs (e.g. FlashPathRefKey) rather than mutating a dynamic map, so
// mutation is visible at compile time instead of via stringly-typed
// property bags.
package ast

import "github.com/mechanik-daniel/fumifier/internal/token"

// Kind tags every node variant (spec 3, "AST node").
type Kind int

const (
	KindLiteral Kind = iota
	KindName
	KindVariable
	KindWildcard
	KindDescendant
	KindParent
	KindRegex
	KindNegate
	KindArrayConstructor
	KindObjectConstructor
	KindBinary
	KindPath
	KindFilter
	KindSort
	KindGroup
	KindBind
	KindFocus
	KindIndex
	KindApply
	KindRange
	KindCondition
	KindCoalesce
	KindElvis
	KindBlock
	KindLambda
	KindCall
	KindPartialArg
	KindTransform
	KindFlashPath
	KindFlashBlock
	KindFlashRule
	KindError
)

// Node is implemented by every AST variant.
type Node interface {
	Kind() Kind
	Pos() token.Pos
	// ContainsFlash reports whether this subtree (cached at rewrite
	// time) contains any FlashBlock/FlashRule construct (spec 3,
	// "A subtree flagged containsFlash=true...").
	ContainsFlash() bool
	SetContainsFlash(bool)
}

// base is embedded by every concrete node type; it carries the fields
// common to all variants (spec 3: "kind tag, source position").
type base struct {
	kind     Kind
	position token.Pos
	flash    bool
}

func (b *base) Kind() Kind                { return b.kind }
func (b *base) Pos() token.Pos            { return b.position }
func (b *base) ContainsFlash() bool       { return b.flash }
func (b *base) SetContainsFlash(v bool)   { b.flash = v }

func newBase(k Kind, pos token.Pos) base { return base{kind: k, position: pos} }
