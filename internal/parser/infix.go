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
	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// parseInfix folds operator op (already peeked as p.cur) into left,
// dispatching to the specific led handler spec 4.2 lists: binary
// arithmetic/comparison/logical, path '.', filter '[', call '(',
// order-by '^', group '{', bind ':=', focus '@', index '#', conditional
// '?:', coalesce '??', elvis '?:', apply '~>', range '..'.
func (p *Parser) parseInfix(left ast.Node, op string, bp int) (ast.Node, error) {
	pos := p.cur.Start
	switch op {
	case ".":
		return p.parseDotPath(left, pos)
	case "[":
		return p.parseFilterStep(left, pos)
	case "(":
		return p.parseCall(left, pos)
	case "^":
		return p.parseSort(left, pos)
	case "{":
		return p.parseGroupStep(left, pos)
	case ":=":
		return p.parseBind(left, pos)
	case "@":
		return p.parseFocus(left, pos)
	case "#":
		return p.parseIndexStep(left, pos)
	case "?":
		return p.parseConditional(left, pos)
	case "??":
		p.advance()
		rhs, err := p.parseExpression(bp)
		if err != nil {
			return nil, err
		}
		return ast.NewCoalesce(pos, left, rhs), nil
	case "?:":
		p.advance()
		rhs, err := p.parseExpression(bp)
		if err != nil {
			return nil, err
		}
		return ast.NewElvis(pos, left, rhs), nil
	case "~>":
		p.advance()
		rhs, err := p.parseExpression(bp)
		if err != nil {
			return nil, err
		}
		return ast.NewApply(pos, left, rhs), nil
	case "..":
		p.advance()
		rhs, err := p.parseExpression(bp)
		if err != nil {
			return nil, err
		}
		return ast.NewRange(pos, left, rhs), nil
	default:
		p.advance()
		rhs, err := p.parseExpression(bp)
		if err != nil {
			return nil, err
		}
		return ast.NewBinary(pos, op, left, rhs), nil
	}
}

// parseDotPath folds a "." step into left, collapsing chains of "."
// into a single Path node directly at parse time (the rewriter's path-
// collapsing pass, spec 4.3, handles the remaining cases produced by
// FLASH context-wrapping).
func (p *Parser) parseDotPath(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	step, err := p.parseExpression(75)
	if err != nil {
		return nil, err
	}
	if path, ok := left.(*ast.Path); ok {
		path.Steps = append(path.Steps, step)
		return path, nil
	}
	return ast.NewPath(pos, left, step), nil
}

func (p *Parser) parseFilterStep(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	if p.cur.Is("]") {
		// Empty predicate `[]` — JSONata treats this as "keep as array"
		// (spec 4.5, keepSingletonArray).
		p.advance()
		if path, ok := left.(*ast.Path); ok {
			path.KeepSingleton = true
			return path, nil
		}
		pth := ast.NewPath(pos, left)
		pth.KeepSingleton = true
		return pth, nil
	}
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("]"); err != nil {
		return nil, p.errorf("F1100", p.cur.Start, map[string]any{"bracket": "]"})
	}
	return appendStep(left, ast.NewFilter(pos, expr)), nil
}

func (p *Parser) parseIndexStep(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	v := ""
	if p.cur.Kind == token.VARIABLE {
		v = p.cur.Value
		p.advance()
	}
	return appendStep(left, ast.NewIndex(pos, v)), nil
}

func (p *Parser) parseFocus(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	if p.cur.Kind != token.VARIABLE {
		return nil, p.errorf("S0214", p.cur.Start, map[string]any{"operator": "@"})
	}
	v := p.cur.Value
	p.advance()
	return appendStep(left, ast.NewFocus(pos, v)), nil
}

func appendStep(left ast.Node, step ast.Node) ast.Node {
	if path, ok := left.(*ast.Path); ok {
		path.Steps = append(path.Steps, step)
		return path
	}
	return ast.NewPath(left.Pos(), left, step)
}

func (p *Parser) parseSort(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	sort := ast.NewSort(pos)
	for {
		desc := false
		if p.cur.Is(">") {
			desc = true
			p.advance()
		} else if p.cur.Is("<") {
			p.advance()
		}
		term, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		sort.Terms = append(sort.Terms, ast.SortTerm{Expr: term, Descending: desc})
		if p.cur.Is(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return appendStep(left, sort), nil
}

func (p *Parser) parseGroupStep(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	grp := ast.NewGroup(pos)
	for !p.cur.Is("}") {
		key, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		grp.Pairs = append(grp.Pairs, ast.Pair{Key: key, Value: val})
		if p.cur.Is(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return appendStep(left, grp), nil
}

func (p *Parser) parseBind(left ast.Node, pos token.Pos) (ast.Node, error) {
	v, ok := left.(*ast.Variable)
	if !ok {
		return nil, p.errorf("S0214", pos, map[string]any{"operator": ":="})
	}
	p.advance()
	rhs, err := p.parseExpression(9) // right-assoc: bp-1
	if err != nil {
		return nil, err
	}
	return ast.NewBind(pos, v.Name, rhs), nil
}

func (p *Parser) parseConditional(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	var els ast.Node
	if p.cur.Is(":") {
		p.advance()
		els, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	return ast.NewCondition(pos, left, then, els), nil
}

func (p *Parser) parseCall(left ast.Node, pos token.Pos) (ast.Node, error) {
	p.advance()
	call := ast.NewCall(pos, left)
	for !p.cur.Is(")") {
		if p.cur.Is("?") {
			call.Args = append(call.Args, ast.NewPartialArg(p.cur.Start))
			call.Partial = true
			p.advance()
		} else {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		if p.cur.Is(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, p.errorf("F1100", p.cur.Start, map[string]any{"bracket": ")"})
	}
	return call, nil
}
