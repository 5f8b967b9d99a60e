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

package lexer

import (
	"testing"

	"github.com/mechanik-daniel/fumifier/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("scanning %q: %v", src, err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanVariable(t *testing.T) {
	toks := scanAll(t, "$foo")
	if len(toks) != 2 || toks[0].Kind != token.VARIABLE || toks[0].Value != "foo" {
		t.Fatalf("got %#v, want a single VARIABLE(foo) token", toks)
	}
}

func TestScanBareVariable(t *testing.T) {
	toks := scanAll(t, "$")
	if len(toks) != 2 || toks[0].Kind != token.VARIABLE || toks[0].Value != "" {
		t.Fatalf("got %#v, want a single VARIABLE(\"\") token", toks)
	}
}

func TestScanVariableFollowedByDot(t *testing.T) {
	toks := scanAll(t, "$.a")
	if len(toks) != 4 {
		t.Fatalf("got %#v, want VARIABLE, '.', NAME, EOF", toks)
	}
	if toks[0].Kind != token.VARIABLE || toks[0].Value != "" {
		t.Fatalf("got %#v, want bare VARIABLE first", toks[0])
	}
	if !toks[1].Is(".") {
		t.Fatalf("got %#v, want '.' operator", toks[1])
	}
	if toks[2].Kind != token.NAME || toks[2].Value != "a" {
		t.Fatalf("got %#v, want NAME(a)", toks[2])
	}
}

func TestScanNumberLiteral(t *testing.T) {
	toks := scanAll(t, "42 3.14 1e10")
	if len(toks) != 4 {
		t.Fatalf("got %d tokens, want 4: %#v", len(toks), toks)
	}
	want := []string{"42", "3.14", "1e10"}
	for i, w := range want {
		if toks[i].Kind != token.NUMBER || toks[i].Value != w {
			t.Errorf("token %d = %#v, want NUMBER(%s)", i, toks[i], w)
		}
	}
}

func TestScanStringEscapes(t *testing.T) {
	toks := scanAll(t, `"a\tb\"c"`)
	if toks[0].Kind != token.STRING || toks[0].Value != "a\tb\"c" {
		t.Fatalf("got %#v, want STRING(a\\tb\"c)", toks[0])
	}
}

func TestScanUnterminatedStringErrors(t *testing.T) {
	l := New(`"unterminated`)
	if _, err := l.Next(); err == nil {
		t.Fatal("expected an error for an unterminated string literal")
	}
}

func TestScanKeywordValues(t *testing.T) {
	toks := scanAll(t, "true false null")
	if len(toks) != 4 {
		t.Fatalf("got %#v, want 3 VALUE tokens plus EOF", toks)
	}
	for i, want := range []string{"true", "false", "null"} {
		if toks[i].Kind != token.VALUE || toks[i].Value != want {
			t.Errorf("token %d = %#v, want VALUE(%s)", i, toks[i], want)
		}
	}
}

func TestScanURL(t *testing.T) {
	toks := scanAll(t, "http://example.com/fhir/StructureDefinition/Patient")
	if toks[0].Kind != token.URL {
		t.Fatalf("got %#v, want a URL token", toks[0])
	}
}

func TestScanMultiCharOperators(t *testing.T) {
	toks := scanAll(t, ":= ~> .. ?: ?? != >= <= **")
	want := []string{":=", "~>", "..", "?:", "??", "!=", ">=", "<=", "**"}
	for i, w := range want {
		if !toks[i].Is(w) {
			t.Errorf("token %d = %#v, want operator %q", i, toks[i], w)
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("$x + 1")
	first, err := l.Peek()
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	second, err := l.Peek()
	if err != nil {
		t.Fatalf("second Peek: %v", err)
	}
	if first != second {
		t.Fatalf("repeated Peek returned different tokens: %#v vs %#v", first, second)
	}
	consumed, err := l.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if consumed != first {
		t.Fatalf("Next() = %#v, want the peeked token %#v", consumed, first)
	}
}

func TestUnknownOperatorErrors(t *testing.T) {
	l := New("\x01")
	if _, err := l.Next(); err == nil {
		t.Fatal("expected an error for an unrecognized byte")
	}
}
