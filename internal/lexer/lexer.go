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

// Package lexer implements spec component B: a pull-based tokenizer for
// FLASH source text. It is modeled on cue/scanner.Scanner's style (an
// offset/line/rdOffset cursor advanced rune-by-rune by next()) extended
// with indentation tracking, URL/URN literals, and the FLASH
// Instance:/InstanceOf:/*/$ productions spec 4.1 describes.
package lexer

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// Lexer tokenizes src on demand, buffering at most one token of
// lookahead (spec 4.1, "single-token lookahead").
type Lexer struct {
	src []byte

	offset   int  // current byte offset
	line     int  // current line, 1-based
	lineStart int // byte offset of the start of the current line
	lineIndent int // accumulated indent count for the current line (space=1, tab=2)

	indentEmittedLine int // last line for which a synthetic indent/blockindent token fired

	prev   token.Token
	havePrev bool

	peeked      *token.Token
	peekErr     error
	peekSavedAt state // lexer state as of just before scanning the peeked token

	lastTokenStart state // lexer state as of just before the last token Next() returned

	// flashActive is toggled by the parser while inside an open FLASH
	// block; it gates the '*'/'$' line-start indent production.
	flashActive bool
}

// state is the mutable cursor snapshot restorable for regex rescans.
type state struct {
	offset, line, lineStart, lineIndent int
}

// New returns a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: []byte(src), line: 1}
}

// SetFlashActive toggles whether the '*'/'$' line-start indent
// production is armed (spec 4.1).
func (l *Lexer) SetFlashActive(active bool) { l.flashActive = active }

func (l *Lexer) snapshot() state {
	return state{l.offset, l.line, l.lineStart, l.lineIndent}
}

func (l *Lexer) restore(s state) {
	l.offset, l.line, l.lineStart, l.lineIndent = s.offset, s.line, s.lineStart, s.lineIndent
}

// Peek returns, without consuming, the next token.
func (l *Lexer) Peek() (token.Token, error) {
	if l.peeked == nil && l.peekErr == nil {
		saved := l.snapshot()
		tok, err := l.scan()
		l.peekSavedAt = saved
		if err != nil {
			l.peekErr = err
			return token.Token{}, err
		}
		l.peeked = &tok
	}
	if l.peekErr != nil {
		return token.Token{}, l.peekErr
	}
	return *l.peeked, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (token.Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		l.lastTokenStart = l.peekSavedAt
		l.prev, l.havePrev = tok, true
		return tok, nil
	}
	if l.peekErr != nil {
		err := l.peekErr
		l.peekErr = nil
		return token.Token{}, err
	}
	saved := l.snapshot()
	tok, err := l.scan()
	if err != nil {
		return token.Token{}, err
	}
	l.lastTokenStart = saved
	l.prev, l.havePrev = tok, true
	return tok, nil
}

// RescanRegex rewinds to the start of the last token Next() returned
// and rescans from there as a regex literal (spec 4.1: "Regex tokens
// only scan when the parser requests a prefix"). Must be called only
// when the last token Next() returned was an OPERATOR token spelled
// "/".
func (l *Lexer) RescanRegex() (token.Token, error) {
	l.restore(l.lastTokenStart)
	l.peeked = nil
	l.peekErr = nil
	tok, err := l.scanRegex()
	if err != nil {
		return token.Token{}, err
	}
	l.prev, l.havePrev = tok, true
	return tok, nil
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Offset: l.offset, Line: l.line, Column: l.offset - l.lineStart + 1}
}

func (l *Lexer) eof() bool { return l.offset >= len(l.src) }

func (l *Lexer) peekByte() byte {
	if l.eof() {
		return 0
	}
	return l.src[l.offset]
}

func (l *Lexer) peekByteAt(n int) byte {
	if l.offset+n >= len(l.src) {
		return 0
	}
	return l.src[l.offset+n]
}

func (l *Lexer) peekRune() (rune, int) {
	if l.eof() {
		return -1, 0
	}
	if l.src[l.offset] < utf8.RuneSelf {
		return rune(l.src[l.offset]), 1
	}
	return utf8.DecodeRune(l.src[l.offset:])
}

func (l *Lexer) advance(n int) { l.offset += n }

func (l *Lexer) newline() {
	l.line++
	l.offset++
	l.lineStart = l.offset
	l.lineIndent = 0
}

// skipWhitespaceAndComments advances past spaces, tabs, newlines, and
// comments, accumulating indent on the current line as it goes, and
// returns whether a newline was crossed (the parser needs to know this
// to decide when the "start of line" productions apply).
func (l *Lexer) skipWhitespaceAndComments() (crossedNewline bool, err error) {
	for !l.eof() {
		c := l.src[l.offset]
		switch {
		case c == ' ':
			l.lineIndent++
			l.offset++
		case c == '\t':
			l.lineIndent += 2
			l.offset++
		case c == '\r':
			if l.peekByteAt(1) == '\n' {
				l.offset++
			}
			crossedNewline = true
			l.newline()
		case c == '\n':
			crossedNewline = true
			l.newline()
		case c == '/' && l.peekByteAt(1) == '/':
			for !l.eof() && l.src[l.offset] != '\n' && l.src[l.offset] != '\r' {
				l.offset++
			}
		case c == '/' && l.peekByteAt(1) == '*':
			start := l.pos()
			l.offset += 2
			terminated := false
			for !l.eof() {
				if l.src[l.offset] == '*' && l.peekByteAt(1) == '/' {
					l.offset += 2
					terminated = true
					break
				}
				if l.src[l.offset] == '\n' {
					crossedNewline = true
					l.newline()
					continue
				}
				l.offset++
			}
			if !terminated {
				return crossedNewline, fumierr.New("S0106", start, nil)
			}
		default:
			return crossedNewline, nil
		}
	}
	return crossedNewline, nil
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scan is the core tokenizer: produces exactly one token from the
// current cursor position.
func (l *Lexer) scan() (token.Token, error) {
	crossedNewline, err := l.skipWhitespaceAndComments()
	if err != nil {
		return token.Token{}, err
	}
	lineStartIndent := l.lineIndent

	if l.eof() {
		p := l.pos()
		return token.Token{Kind: token.EOF, Start: p, End: p, Line: l.line}, nil
	}

	start := l.pos()
	c := l.peekByte()

	// FLASH: Instance:/InstanceOf: at start of a non-blank line. The
	// synthetic indent token consumes no input, so after emitting one the
	// next scan is still at line start — l.indentEmittedLine == l.line
	// re-arms the line-start productions for that second scan.
	if crossedNewline || l.offset == 0 || l.indentEmittedLine == l.line {
		if word, ok := l.lookaheadWord(); ok && (word == "Instance" || word == "InstanceOf") && l.peekByteAt(len(word)) == ':' {
			if l.indentEmittedLine != l.line {
				l.indentEmittedLine = l.line
				return token.Token{Kind: token.BLOCKINDENT, Value: strconv.Itoa(lineStartIndent), Start: start, End: start, Line: l.line, Indent: lineStartIndent}, nil
			}
			l.advance(len(word) + 1)
			end := l.pos()
			kind := token.INSTANCE
			if word == "InstanceOf" {
				kind = token.INSTANCEOF
			}
			return token.Token{Kind: kind, Value: word, Start: start, End: end, Line: l.line}, nil
		}
		if l.flashActive && (c == '*' || c == '$') && l.indentEmittedLine != l.line {
			l.indentEmittedLine = l.line
			return token.Token{Kind: token.INDENT, Value: strconv.Itoa(lineStartIndent), Start: start, End: start, Line: l.line, Indent: lineStartIndent}, nil
		}
	}

	switch {
	case c == '"' || c == '\'':
		return l.scanString(c)
	case c == '`':
		return l.scanQuotedName()
	case isDigit(c):
		return l.scanNumber()
	case c == '.' && isDigit(l.peekByteAt(1)):
		return l.scanNumber()
	case c == '$':
		return l.scanVariable()
	case isNameStartByte(c):
		return l.scanNameOrURL()
	default:
		return l.scanOperator()
	}
}

// scanVariable reads $name or the bare $ (current context), spec 4.1's
// VARIABLE token.
func (l *Lexer) scanVariable() (token.Token, error) {
	start := l.pos()
	l.advance(1) // consume '$'
	i := l.offset
	for i < len(l.src) {
		r, w := decodeAt(l.src, i)
		if i == l.offset {
			if !isNameStart(r) {
				break
			}
		} else if !isNameRune(r) {
			break
		}
		i += w
	}
	name := string(l.src[l.offset:i])
	l.advance(i - l.offset)
	return token.Token{Kind: token.VARIABLE, Value: name, Start: start, End: l.pos(), Line: l.line}, nil
}

func (l *Lexer) lookaheadWord() (string, bool) {
	i := l.offset
	for i < len(l.src) && (isNameRuneByte(l.src[i])) {
		i++
	}
	if i == l.offset {
		return "", false
	}
	return string(l.src[l.offset:i]), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStartByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isNameRuneByte(c byte) bool {
	return isNameStartByte(c) || isDigit(c)
}

func (l *Lexer) scanNameOrURL() (token.Token, error) {
	start := l.pos()
	// URL/URN literals: http://, https://, urn:
	if rest := string(l.src[l.offset:]); strings.HasPrefix(rest, "http://") || strings.HasPrefix(rest, "https://") || strings.HasPrefix(rest, "urn:") {
		i := l.offset
		for i < len(l.src) {
			c := l.src[i]
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ')' {
				break
			}
			i++
		}
		val := string(l.src[l.offset:i])
		l.advance(i - l.offset)
		return token.Token{Kind: token.URL, Value: val, Start: start, End: l.pos(), Line: l.line}, nil
	}

	i := l.offset
	for i < len(l.src) {
		r, w := decodeAt(l.src, i)
		if i == l.offset {
			if !isNameStart(r) {
				break
			}
		} else if !isNameRune(r) {
			break
		}
		i += w
	}
	name := string(l.src[l.offset:i])
	l.advance(i - l.offset)
	end := l.pos()

	switch name {
	case "true", "false", "null":
		return token.Token{Kind: token.VALUE, Value: name, Start: start, End: end, Line: l.line}, nil
	}
	return token.Token{Kind: token.NAME, Value: name, Start: start, End: end, Line: l.line}, nil
}

func decodeAt(src []byte, i int) (rune, int) {
	if src[i] < utf8.RuneSelf {
		return rune(src[i]), 1
	}
	return utf8.DecodeRune(src[i:])
}

func (l *Lexer) scanQuotedName() (token.Token, error) {
	start := l.pos()
	l.advance(1) // consume opening backtick
	begin := l.offset
	for {
		if l.eof() {
			return token.Token{}, fumierr.New("S0105", start, nil)
		}
		if l.src[l.offset] == '`' {
			name := string(l.src[begin:l.offset])
			l.advance(1)
			return token.Token{Kind: token.NAME, Value: name, Start: start, End: l.pos(), Line: l.line}, nil
		}
		if l.src[l.offset] == '\n' {
			return token.Token{}, fumierr.New("S0105", start, nil)
		}
		l.advance(1)
	}
}

var simpleEscapes = map[byte]byte{
	'"': '"', '\'': '\'', '\\': '\\', '/': '/',
	'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
}

func (l *Lexer) scanString(quote byte) (token.Token, error) {
	start := l.pos()
	l.advance(1)
	var b strings.Builder
	for {
		if l.eof() {
			return token.Token{}, fumierr.New("S0101", start, nil)
		}
		c := l.src[l.offset]
		if c == quote {
			l.advance(1)
			return token.Token{Kind: token.STRING, Value: b.String(), Start: start, End: l.pos(), Line: l.line}, nil
		}
		if c == '\n' {
			return token.Token{}, fumierr.New("S0101", start, nil)
		}
		if c == '\\' {
			esc := l.peekByteAt(1)
			if esc == 'u' {
				if l.offset+6 > len(l.src) {
					return token.Token{}, fumierr.New("S0104", l.pos(), map[string]any{"code": string(l.src[l.offset:])})
				}
				hex := string(l.src[l.offset+2 : l.offset+6])
				n, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return token.Token{}, fumierr.New("S0104", l.pos(), map[string]any{"code": hex})
				}
				b.WriteRune(rune(n))
				l.advance(6)
				continue
			}
			if repl, ok := simpleEscapes[esc]; ok {
				b.WriteByte(repl)
				l.advance(2)
				continue
			}
			return token.Token{}, fumierr.New("S0103", l.pos(), map[string]any{"char": string(esc)})
		}
		r, w := decodeAt(l.src, l.offset)
		b.WriteRune(r)
		l.advance(w)
	}
}

var numberPattern = func(s []byte) (int, bool) {
	// -?(0|[1-9]\d*)(\.\d+)?([eE][-+]?\d+)?
	i := 0
	n := len(s)
	if i < n && s[i] == '-' {
		i++
	}
	if i >= n || !isDigit(s[i]) {
		return 0, false
	}
	if s[i] == '0' {
		i++
	} else {
		for i < n && isDigit(s[i]) {
			i++
		}
	}
	if i < n && s[i] == '.' {
		j := i + 1
		if j < n && isDigit(s[j]) {
			i = j
			for i < n && isDigit(s[i]) {
				i++
			}
		}
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < n && isDigit(s[j]) {
			i = j
			for i < n && isDigit(s[i]) {
				i++
			}
		}
	}
	return i, true
}

func (l *Lexer) scanNumber() (token.Token, error) {
	start := l.pos()
	n, ok := numberPattern(l.src[l.offset:])
	if !ok || n == 0 {
		return token.Token{}, fumierr.New("S0102", start, map[string]any{"value": string(l.peekByte())})
	}
	text := string(l.src[l.offset : l.offset+n])
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return token.Token{}, fumierr.New("S0102", start, map[string]any{"value": text})
	}
	l.advance(n)
	return token.Token{Kind: token.NUMBER, Value: text, Start: start, End: l.pos(), Line: l.line}, nil
}

// operators is the fixed set of operator spellings, multi-character
// ones first so the scanner's greedy match prefers them over their
// single-character prefixes.
var operators = []string{
	":=", "~>", "..", "?:", "??", "!=", ">=", "<=", "**", "and", "or", "in",
	"(", ")", "[", "]", "{", "}", ".", ",", ":", ";", "@", "#",
	"+", "-", "*", "/", "%", "&", "=", "<", ">", "?", "^", "|", "~", "!",
}

func (l *Lexer) scanOperator() (token.Token, error) {
	start := l.pos()
	rest := string(l.src[l.offset:])
	for _, op := range operators {
		if op == "and" || op == "or" || op == "in" {
			continue // produced via scanNameOrURL, not this punctuation table
		}
		if strings.HasPrefix(rest, op) {
			l.advance(len(op))
			return token.Token{Kind: token.OPERATOR, Value: op, Start: start, End: l.pos(), Line: l.line}, nil
		}
	}
	r, w := l.peekRune()
	l.advance(w) // move past the illegal byte so scanning can continue/terminate
	return token.Token{}, fumierr.New("S0204", start, map[string]any{"token": string(r)})
}

// scanRegex reads a /pattern/flags literal. The opening '/' is at the
// current cursor. Depth is counted across ()[]{} (ignoring escaped
// characters) so a '/' inside a character class or group does not
// terminate the literal early; flags i, m, g are recognized (spec 4.1).
func (l *Lexer) scanRegex() (token.Token, error) {
	start := l.pos()
	l.advance(1) // consume opening '/'
	patStart := l.offset
	depth := 0
	for {
		if l.eof() || l.src[l.offset] == '\n' {
			return token.Token{}, fumierr.New("S0302", start, nil)
		}
		c := l.src[l.offset]
		if c == '\\' {
			l.advance(2)
			continue
		}
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 {
				goto closed
			}
		}
		l.advance(1)
	}
closed:
	pattern := string(l.src[patStart:l.offset])
	if pattern == "" {
		return token.Token{}, fumierr.New("S0301", start, nil)
	}
	l.advance(1) // consume closing '/'
	flagStart := l.offset
	for !l.eof() && (l.src[l.offset] == 'i' || l.src[l.offset] == 'm' || l.src[l.offset] == 'g') {
		l.advance(1)
	}
	flags := string(l.src[flagStart:l.offset])
	return token.Token{Kind: token.REGEX, Value: pattern + "\x00" + flags, Start: start, End: l.pos(), Line: l.line}, nil
}
