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

// Package parser implements spec component C: a Pratt top-down
// operator-precedence parser for FLASH, extended with indentation-
// sensitive blocks and optional error recovery. Its control-flow shape
// (a parser struct holding one token of lookahead plus next/expect/
// errorf helpers) follows cue/parser.parser; the binding-power table
// and prefix/infix dispatch follow classic Pratt parsing as JSONata
// itself implements it, which spec 4.2 cites directly.
package parser

import (
	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/lexer"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// Options configure a parse.
type Options struct {
	Recover bool
}

// Parser holds parsing state for a single source text.
type Parser struct {
	lex     *lexer.Lexer
	opts    Options
	cur     token.Token
	curErr  error
	errs    []fumierr.Error

	// flashDepth > 0 while inside the rule-body of an open FLASH block;
	// it arms indent-aware termination (spec 4.2) and is also mirrored
	// into the lexer so it can emit INDENT tokens for '*'/'$'.
	flashDepth int

	// indentStack holds the expected indentation level at each open
	// flash nesting level, used to validate the +2 increment rule and
	// to detect block termination (spec 4.2, "Indentation rules").
	indentStack []int

	// pendingRuleIndent carries the INDENT level of the rule-line
	// currently being parsed from parseIndentedRules down into
	// parseFlashRule, which needs it to compute its subrules' expected
	// indentation (current + 2).
	pendingRuleIndent int

	// sigBuf holds the not-yet-consumed characters of a multi-code NAME
	// token inside a signature literal (see nextSigCode).
	sigBuf string
}

// Parse tokenizes and parses src, returning the root AST node. If
// opts.Recover is true, syntax errors are captured as ast.ErrorNode
// values instead of aborting; callers should then inspect Errors().
func Parse(src string, opts Options) (ast.Node, []fumierr.Error) {
	p := &Parser{lex: lexer.New(src), opts: opts}
	p.advance()
	root, err := p.parseExpression(0)
	if err != nil {
		root = p.recoverOrFail(err)
	}
	if root != nil && p.cur.Kind != token.EOF && !p.failed() {
		// trailing tokens after a complete expression
		err := fumierr.New("S0201", p.cur.Start, map[string]any{"token": p.cur.Value})
		if p.opts.Recover {
			p.errs = append(p.errs, err)
		} else {
			return root, append(p.errs, err)
		}
	}
	root.SetContainsFlash(ast.AnyContainsFlash(root))
	return root, p.errs
}

func (p *Parser) failed() bool { return false }

// advance consumes the current token and scans the next, skipping any
// stray BLOCKINDENT/INDENT tokens when not in flash-aware mode (spec
// 4.2: "outside this mode indent tokens are silently consumed").
func (p *Parser) advance() {
	for {
		tok, err := p.lex.Next()
		if err != nil {
			p.cur = token.Token{Kind: token.EOF}
			p.curErr = err
			return
		}
		p.curErr = nil
		if (tok.Kind == token.INDENT) && p.flashDepth == 0 {
			continue
		}
		p.cur = tok
		return
	}
}

func (p *Parser) peek() (token.Token, error) {
	return p.lex.Peek()
}

// inFlashTerminator reports whether the current token should stop
// expression parsing because we're in indent-aware mode and hit a
// block boundary (spec 4.2).
func (p *Parser) inFlashTerminator() bool {
	if p.flashDepth == 0 {
		return false
	}
	switch p.cur.Kind {
	case token.INDENT, token.EOF, token.INSTANCEOF, token.INSTANCE, token.BLOCKINDENT:
		return true
	}
	return false
}

func (p *Parser) errorf(code string, pos token.Pos, inserts map[string]any) error {
	return fumierr.New(code, pos, inserts)
}

// expectOp consumes the current token if it is the operator op,
// otherwise returns a syntax error.
func (p *Parser) expectOp(op string) error {
	if p.cur.Kind == token.OPERATOR && p.cur.Value == op {
		p.advance()
		return nil
	}
	return p.errorf("S0202", p.cur.Start, map[string]any{"expected": op, "actual": p.cur.Value})
}

// recoverOrFail implements spec 4.2's "Error recovery" for the top-level
// Parse entry: the error becomes an ast.ErrorNode root and is appended
// to p.errs. It does this whether or not Recover is set; parsing does
// not resume after the error in either mode.
func (p *Parser) recoverOrFail(err error) ast.Node {
	fe, _ := err.(fumierr.Error)
	code := "S0201"
	if fe != nil {
		code = fe.Code()
	}
	node := ast.NewErrorNode(p.cur.Start, code, err.Error())
	if fe != nil {
		p.errs = append(p.errs, fe)
	}
	return node
}
