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
	"strconv"
	"strings"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// parsePrefix dispatches on the current token to produce a "nud"
// (prefix) node: literals, names, variables, array/object
// constructors, unary -, descendant **, parent %, transform |...|,
// regex, Instance:/InstanceOf: blocks, and '*' (flash rule when
// indent-aware, else wildcard) — spec 4.2.
func (p *Parser) parsePrefix() (ast.Node, error) {
	tok := p.cur
	switch tok.Kind {
	case token.NUMBER:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("S0102", tok.Start, map[string]any{"value": tok.Value})
		}
		lit := ast.NewLiteral(tok.Start, ast.LitNumber)
		lit.Num = f
		return lit, nil

	case token.STRING:
		p.advance()
		lit := ast.NewLiteral(tok.Start, ast.LitString)
		lit.Str = tok.Value
		return lit, nil

	case token.VALUE:
		p.advance()
		switch tok.Value {
		case "true":
			lit := ast.NewLiteral(tok.Start, ast.LitBoolean)
			lit.Bool = true
			return lit, nil
		case "false":
			return ast.NewLiteral(tok.Start, ast.LitBoolean), nil
		default:
			return ast.NewLiteral(tok.Start, ast.LitNull), nil
		}

	case token.VARIABLE:
		p.advance()
		return ast.NewVariable(tok.Start, tok.Value), nil

	case token.URL:
		p.advance()
		lit := ast.NewLiteral(tok.Start, ast.LitString)
		lit.Str = tok.Value
		return lit, nil

	case token.NAME:
		if tok.Value == "function" || tok.Value == "λ" {
			return p.parseLambda(tok)
		}
		return p.parseNameOrKeywordPrefix(tok)

	case token.INSTANCEOF:
		return p.parseInstanceOf(tok, nil, 0)

	case token.INSTANCE:
		return p.parseInstance(tok, 0)

	case token.BLOCKINDENT:
		return p.parseFlashBlockEntry(tok)

	case token.OPERATOR:
		return p.parseOperatorPrefix(tok)
	}
	return nil, p.errorf("S0211", tok.Start, map[string]any{"token": tok.Value})
}

func (p *Parser) parseNameOrKeywordPrefix(tok token.Token) (ast.Node, error) {
	p.advance()
	return ast.NewName(tok.Start, tok.Value), nil
}

func (p *Parser) parseOperatorPrefix(tok token.Token) (ast.Node, error) {
	switch tok.Value {
	case "-":
		p.advance()
		expr, err := p.parseExpression(70)
		if err != nil {
			return nil, err
		}
		return ast.NewNegate(tok.Start, expr), nil

	case "*":
		if p.flashDepth > 0 {
			return p.parseFlashRule(tok)
		}
		p.advance()
		return ast.NewWildcard(tok.Start), nil

	case "**":
		p.advance()
		return ast.NewDescendant(tok.Start), nil

	case "%":
		p.advance()
		return ast.NewParent(tok.Start), nil

	case "(":
		p.advance()
		blk := ast.NewBlock(tok.Start)
		for {
			if p.cur.Is(")") {
				break
			}
			e, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			blk.Exprs = append(blk.Exprs, e)
			if p.cur.Is(";") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		if len(blk.Exprs) == 1 {
			return blk.Exprs[0], nil
		}
		return blk, nil

	case "[":
		return p.parseArrayConstructor(tok)

	case "{":
		return p.parseObjectConstructor(tok)

	case "|":
		return p.parseTransform(tok)

	case "/":
		reTok, err := p.lex.RescanRegex()
		if err != nil {
			return nil, err
		}
		parts := strings.SplitN(reTok.Value, "\x00", 2)
		pattern, flags := parts[0], ""
		if len(parts) == 2 {
			flags = parts[1]
		}
		p.advance() // move past the regex literal onto the following token
		return ast.NewRegex(reTok.Start, pattern, flags), nil
	}
	return nil, p.errorf("S0211", tok.Start, map[string]any{"token": tok.Value})
}

func (p *Parser) parseArrayConstructor(tok token.Token) (ast.Node, error) {
	p.advance()
	arr := ast.NewArrayConstructor(tok.Start)
	for !p.cur.Is("]") {
		item, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if p.cur.Is("..") {
			p.advance()
			hi, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			item = ast.NewRange(tok.Start, item, hi)
		}
		arr.Items = append(arr.Items, item)
		if p.cur.Is(",") {
			p.advance()
			if p.cur.Is(",") {
				return nil, p.errorf("F1103", p.cur.Start, nil)
			}
			continue
		}
		break
	}
	if err := p.expectOp("]"); err != nil {
		return nil, p.errorf("F1100", p.cur.Start, map[string]any{"bracket": "]"})
	}
	return arr, nil
}

func (p *Parser) parseObjectConstructor(tok token.Token) (ast.Node, error) {
	p.advance()
	obj := ast.NewObjectConstructor(tok.Start)
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
		obj.Pairs = append(obj.Pairs, ast.Pair{Key: key, Value: val})
		if p.cur.Is(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp("}"); err != nil {
		return nil, p.errorf("F1100", p.cur.Start, map[string]any{"bracket": "}"})
	}
	return obj, nil
}

func (p *Parser) parseTransform(tok token.Token) (ast.Node, error) {
	p.advance()
	pattern, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("|"); err != nil {
		return nil, err
	}
	update, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	var del ast.Node
	if p.cur.Is("|") {
		p.advance()
		del, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectOp("|"); err != nil {
		return nil, err
	}
	return ast.NewTransform(tok.Start, pattern, update, del), nil
}

func (p *Parser) parseLambda(tok token.Token) (ast.Node, error) {
	p.advance()
	lam := ast.NewLambda(tok.Start)
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	for !p.cur.Is(")") {
		if p.cur.Kind != token.VARIABLE {
			return nil, p.errorf("S0214", p.cur.Start, map[string]any{"operator": "function params"})
		}
		lam.Params = append(lam.Params, p.cur.Value)
		p.advance()
		if p.cur.Is(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	if p.cur.Is("<") {
		sig, err := p.parseSignature()
		if err != nil {
			return nil, err
		}
		lam.Signature = sig
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	lam.Body = body
	return lam, nil
}
