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

// FlashPathStep is one `name[slice1-slice2-...]` segment of a flash
// path (spec 4.2, "Flash path grammar").
type FlashPathStep struct {
	Name   string
	Slices []string
	Pos    token.Pos
}

// FlashPath is the raw parse of `* a.b[slice].c = ...`'s path, before
// the pre-flash rewrite unchains it into nested single-step FlashRule
// nodes.
type FlashPath struct {
	base
	Steps []FlashPathStep
}

func NewFlashPath(pos token.Pos) *FlashPath { return &FlashPath{base: newBase(KindFlashPath, pos)} }

// FlashBlock is an `Instance:`/`InstanceOf:` declaration (spec 3,
// "flashblock").
type FlashBlock struct {
	base
	InstanceExpr Node   // nil for a plain InstanceOf: (profile-only) block
	InstanceOf   string // FHIR canonical URL or type/profile id
	Rules        []Node // top-level FlashRule (or contextualized Binary ".") children

	// StructureDefinitionRef records the InstanceOf token's position so
	// the resolver (spec 4.4 pass 1) can report a precise location if
	// the target cannot be found.
	StructureDefinitionRef token.Pos
}

func NewFlashBlock(pos token.Pos) *FlashBlock {
	return &FlashBlock{base: newBase(KindFlashBlock, pos)}
}

// FlashRule is a single `* path = expr` rule, after the pre-flash
// unchain rewrite has reduced its path to exactly one step (spec 3,
// "flashrule"; spec 4.3 invariant "every flashrule has at most one path
// step").
type FlashRule struct {
	base
	Name             string   // the JSON element name this rule targets (the unchained step's Name)
	Slices           []string // slice names/numbers on this step, if any
	FullPath         string   // dotted path from the enclosing InstanceOf, slices formatted as name[slice]
	Context          Node     // optional `(expr).` prefix
	InlineExpression Node     // optional `= expr` after the path
	Subrules         []Node   // indented child rules
	FlashPathRefKey  string   // stable lookup key into the resolved-definitions bag

	// PathSteps holds the raw, possibly multi-step flash path as parsed
	// (spec 4.2, "Flash path grammar"); the pre-flash unchain rewrite
	// (spec 4.3) consumes this into a chain of single-step FlashRule
	// nodes and clears it. A rule with len(PathSteps) > 1 has not yet
	// been unchained.
	PathSteps []FlashPathStep

	// IsVirtual marks a synthetic rule generated by the FLASH evaluator
	// to satisfy a missing mandatory slice (spec 4.7 step 5); virtual
	// rules are never produced by the parser.
	IsVirtual bool
}

func NewFlashRule(pos token.Pos) *FlashRule {
	return &FlashRule{base: newBase(KindFlashRule, pos)}
}

// ErrorNode is inserted into the tree by the parser's recovery mode in
// place of a construct that failed to parse (spec 4.2, "Error
// recovery"; spec 9, "Recovery mode's error nodes").
type ErrorNode struct {
	base
	Code      string
	Message   string
	Remaining []token.Token
	NodeType  string
}

func NewErrorNode(pos token.Pos, code, message string) *ErrorNode {
	return &ErrorNode{base: newBase(KindError, pos), Code: code, Message: message}
}
