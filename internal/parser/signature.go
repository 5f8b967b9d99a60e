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
	"github.com/mechanik-daniel/fumifier/internal/lexer"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// ParseSignatureString parses a standalone signature literal such as
// "<s-n?s?:s>" (spec 4.6), used by registerFunction and the native
// function library to build the validator every signature string
// compiles to exactly once, at registration time.
func ParseSignatureString(src string) (*ast.Signature, error) {
	p := &Parser{lex: lexer.New(src)}
	p.advance()
	return p.parseSignature()
}

// parseSignature parses a `<...>` function type signature (spec 4.6).
// The current token is "<".
func (p *Parser) parseSignature() (*ast.Signature, error) {
	start := p.cur.Start
	p.advance()
	sig := &ast.Signature{}
	for !p.cur.Is(">") && !p.cur.Is(":") {
		param, err := p.parseSigParam()
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, param)
	}
	if p.cur.Is(":") {
		p.advance()
		ret, err := p.parseSigType()
		if err != nil {
			return nil, err
		}
		sig.Return = ret
	}
	if err := p.expectOp(">"); err != nil {
		return nil, err
	}
	sig.Raw = tokenSpan(start, p.cur.Start)
	return sig, nil
}

func tokenSpan(start, end token.Pos) string {
	return "<" // raw source capture is not needed beyond diagnostics; kept minimal
}

// parseSigParam parses one signature parameter: a type code (or union),
// optionally followed by '-' (contextable — defaults to the context
// value when the caller omits this argument), '?' (optional), and '+'
// (one-or-more), in any combination (spec 4.6, e.g. "s-" for a
// contextable string parameter).
func (p *Parser) parseSigParam() (ast.SigParam, error) {
	var param ast.SigParam
	typ, err := p.parseSigType()
	if err != nil {
		return param, err
	}
	param.Type = typ
	for {
		switch {
		case p.cur.Is("-"):
			param.Contextable = true
			p.advance()
		case p.cur.Is("?"):
			param.Optional = true
			p.advance()
		case p.cur.Is("?:"):
			// "?" directly before the return-type ":" lexes as the single
			// "?:" operator; take it as the optional marker plus ":".
			param.Optional = true
			p.cur.Value = ":"
			return param, nil
		case p.cur.Is("+"):
			param.OneOrMore = true
			p.advance()
		default:
			return param, nil
		}
	}
}

var sigTypeCodes = map[byte]bool{
	's': true, 'n': true, 'b': true, 'o': true, 'a': true,
	'f': true, 'j': true, 'x': true,
}

func (p *Parser) parseSigType() (*ast.SigType, error) {
	if len(p.sigBuf) == 0 && p.cur.Kind == token.OPERATOR && p.cur.Value == "(" {
		p.advance()
		union := &ast.SigType{}
		for {
			t, err := p.parseSigType()
			if err != nil {
				return nil, err
			}
			union.Union = append(union.Union, t)
			if len(p.sigBuf) == 0 && p.cur.Is(")") {
				break
			}
		}
		p.advance()
		return union, nil
	}
	code, err := p.nextSigCode()
	if err != nil {
		return nil, err
	}
	t := &ast.SigType{Code: code}
	if code == 'a' && len(p.sigBuf) == 0 && p.cur.Is("<") {
		p.advance()
		elem, err := p.parseSigType()
		if err != nil {
			return nil, err
		}
		t.Elem = elem
		if err := p.expectOp(">"); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// nextSigCode consumes exactly one type-code character. Adjacent codes
// with no separator ("afj", "nsb") lex as a single NAME token, so the
// parser drains such a token one character at a time through sigBuf and
// only advances the lexer once the token is exhausted.
func (p *Parser) nextSigCode() (byte, error) {
	if len(p.sigBuf) == 0 {
		if p.cur.Kind != token.NAME {
			return 0, p.errorf("S0208", p.cur.Start, map[string]any{"param": p.cur.Value})
		}
		p.sigBuf = p.cur.Value
	}
	c := p.sigBuf[0]
	if !sigTypeCodes[c] {
		p.sigBuf = ""
		return 0, p.errorf("S0208", p.cur.Start, map[string]any{"param": string(c)})
	}
	p.sigBuf = p.sigBuf[1:]
	if len(p.sigBuf) == 0 {
		p.advance()
	}
	return c, nil
}
