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

package parser

import (
	"strings"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// parseFlashBlockEntry handles the synthetic BLOCKINDENT token the
// lexer emits just before an Instance:/InstanceOf: keyword (spec 4.1),
// capturing the block's root indentation before dispatching to the
// matching production.
func (p *Parser) parseFlashBlockEntry(tok token.Token) (ast.Node, error) {
	rootIndent := tok.Indent
	p.advance()
	switch p.cur.Kind {
	case token.INSTANCE:
		return p.parseInstance(p.cur, rootIndent)
	case token.INSTANCEOF:
		return p.parseInstanceOf(p.cur, nil, rootIndent)
	default:
		return nil, p.errorf("F1010", p.cur.Start, nil)
	}
}

// parseInstance handles `Instance: <id-expr>` which must be followed,
// at the same indentation, by `InstanceOf: <profile>` (spec 4.2).
func (p *Parser) parseInstance(tok token.Token, rootIndent int) (ast.Node, error) {
	p.advance()
	idExpr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	// The next line must be a BLOCKINDENT + InstanceOf: at the same
	// indentation (spec 4.2: "require InstanceOf: on the next line with
	// identical indentation").
	if p.cur.Kind != token.BLOCKINDENT || p.cur.Indent != rootIndent {
		return nil, p.errorf("F1011", p.cur.Start, nil)
	}
	p.advance()
	if p.cur.Kind != token.INSTANCEOF {
		return nil, p.errorf("F1011", p.cur.Start, nil)
	}
	return p.parseInstanceOf(p.cur, idExpr, rootIndent)
}

// parseInstanceOf handles `InstanceOf: <profile>` and collects the
// block's rules.
func (p *Parser) parseInstanceOf(tok token.Token, instanceExpr ast.Node, rootIndent int) (ast.Node, error) {
	p.advance()
	if p.cur.Kind != token.NAME && p.cur.Kind != token.URL {
		return nil, p.errorf("F1010", p.cur.Start, nil)
	}
	profile := p.cur.Value
	profilePos := p.cur.Start

	blk := ast.NewFlashBlock(tok.Start)
	blk.InstanceExpr = instanceExpr
	blk.InstanceOf = profile
	blk.StructureDefinitionRef = profilePos

	// Arm indent-aware mode before consuming the profile token: the
	// lexer decides whether a line-leading '*'/'$' yields an INDENT at
	// scan time, and the very next scan reads the first rule line.
	wasActive := p.flashDepth > 0
	p.flashDepth++
	p.lex.SetFlashActive(true)
	p.advance()
	// Top-level rules sit at the block's own indentation; only subrules
	// step in by two (spec 4.2's S4 shape).
	rules, err := p.parseIndentedRules(rootIndent)
	if !wasActive {
		p.lex.SetFlashActive(false)
	}
	p.flashDepth--
	if err != nil {
		return nil, err
	}
	blk.Rules = rules
	return blk, nil
}

// parseIndentedRules collects zero or more rule-lines at exactly
// expectedIndent, terminating (without consuming) at the first token
// that is not an INDENT at that level (spec 4.2, "Indentation rules
// during rule collection").
func (p *Parser) parseIndentedRules(expectedIndent int) ([]ast.Node, error) {
	var rules []ast.Node
	for {
		if p.cur.Kind != token.INDENT {
			break
		}
		if p.cur.Indent%2 != 0 {
			return nil, p.errorf("F1021", p.cur.Start, nil)
		}
		if p.cur.Indent < expectedIndent {
			break // terminates this block; the enclosing call sees it next
		}
		if p.cur.Indent > expectedIndent {
			return nil, p.errorf("F1017", p.cur.Start, nil)
		}
		savedIndent := p.pendingRuleIndent
		p.pendingRuleIndent = p.cur.Indent
		p.advance()
		rule, err := p.parseExpression(0)
		p.pendingRuleIndent = savedIndent
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// parseFlashRule handles the `*` prefix: optional context `(expr).`,
// then a flash path, optional inline `= expr`, optional indented
// subrules (spec 4.2).
func (p *Parser) parseFlashRule(tok token.Token) (ast.Node, error) {
	ruleIndent := p.pendingRuleIndent
	p.advance() // consume '*'
	rule := ast.NewFlashRule(tok.Start)

	if p.cur.Is("(") {
		p.advance()
		ctx, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		if err := p.expectOp("."); err != nil {
			return nil, err
		}
		rule.Context = ctx
	}

	steps, err := p.parseFlashPathSteps()
	if err != nil {
		return nil, err
	}
	rule.PathSteps = steps

	if p.cur.Is("=") {
		p.advance()
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		rule.InlineExpression = expr
	}

	subrules, err := p.parseIndentedRules(ruleIndent + 2)
	if err != nil {
		return nil, err
	}
	rule.Subrules = subrules
	return rule, nil
}

// parseFlashPathSteps parses a chain of `name([slice])*` segments
// joined by `.` (spec 4.2, "Flash path grammar"). The path must remain
// on a single line and must not start with `$` or end with a bare `=`.
func (p *Parser) parseFlashPathSteps() ([]ast.FlashPathStep, error) {
	var steps []ast.FlashPathStep
	for {
		if p.cur.Kind != token.NAME {
			return nil, p.errorf("F1001", p.cur.Start, map[string]any{"path": p.cur.Value})
		}
		step := ast.FlashPathStep{Name: p.cur.Value, Pos: p.cur.Start}
		p.advance()
		for p.cur.Is("[") {
			p.advance()
			slice, err := p.parseSliceName()
			if err != nil {
				return nil, err
			}
			step.Slices = append(step.Slices, slice)
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
		}
		steps = append(steps, step)
		if p.cur.Is(".") {
			p.advance()
			continue
		}
		break
	}
	return steps, nil
}

// parseSliceName reads a `[name]`, `[number]`, or `[name-name-...]`
// slice specifier's contents (spec 4.2).
func (p *Parser) parseSliceName() (string, error) {
	var parts []string
	for {
		switch p.cur.Kind {
		case token.NAME:
			parts = append(parts, p.cur.Value)
			p.advance()
		case token.NUMBER:
			parts = append(parts, p.cur.Value)
			p.advance()
		default:
			return "", p.errorf("F1110", p.cur.Start, nil)
		}
		if p.cur.Is("-") {
			p.advance()
			continue
		}
		break
	}
	if len(parts) == 0 {
		return "", p.errorf("F1110", p.cur.Start, nil)
	}
	return strings.Join(parts, "-"), nil
}
