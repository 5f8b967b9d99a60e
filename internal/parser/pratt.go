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

// bindingPower is the fixed operator table spec 4.2 samples: "."=75,
// "["=80, "("=80, "*"/"/"/"%"/"&"=50-60, "+"/"-"=50,
// comparisons/"in"/"^"=40, "?:"/"??"=40, "and"=30, "or"=25, "?"=20,
// ":="=10.
var bindingPower = map[string]int{
	".":  75,
	"[":  80,
	"(":  80,
	"{":  80,
	"@":  80,
	"#":  80,
	"*":  60,
	"/":  60,
	"%":  60,
	"&":  50,
	"+":  50,
	"-":  50,
	"<":  40,
	">":  40,
	"<=": 40,
	">=": 40,
	"!=": 40,
	"=":  40,
	"in": 40,
	"^":  40,
	"~>": 40,
	"??": 40,
	"?:": 40,
	"..": 20,
	"and": 30,
	"or":  25,
	"?":   20,
	":=":  10,
}

// rightAssoc marks operators whose RHS is parsed with bp-1 (spec 4.2:
// "Right-associative operators (:=) scan their RHS with bp-1").
var rightAssoc = map[string]bool{":=": true}

func (p *Parser) currentOp() (string, bool) {
	switch p.cur.Kind {
	case token.OPERATOR:
		return p.cur.Value, true
	case token.NAME:
		if p.cur.Value == "and" || p.cur.Value == "or" || p.cur.Value == "in" {
			return p.cur.Value, true
		}
	}
	return "", false
}

// parseExpression is the Pratt loop: parse a prefix (nud), then
// repeatedly fold in infix/postfix (led) operators whose binding power
// exceeds minBp.
func (p *Parser) parseExpression(minBp int) (ast.Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		if p.inFlashTerminator() {
			break
		}
		op, ok := p.currentOp()
		if !ok {
			break
		}
		bp, ok := bindingPower[op]
		if !ok || bp <= minBp {
			break
		}
		left, err = p.parseInfix(left, op, bp)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}
