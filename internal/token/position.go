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

// Package token defines token kinds and source positions shared by the
// fumifier lexer, parser, and diagnostics.
package token

import "fmt"

// Pos is a compact source position: a byte offset plus the line/column it
// was found on. Unlike cue/token.Pos it does not carry a *File back
// reference — fumifier's lexer computes line/column eagerly as it scans,
// so positions are self-contained and safe to copy into AST nodes.
type Pos struct {
	Offset int // byte offset, starting at 0
	Line   int // line number, starting at 1
	Column int // column number, starting at 1 (byte count, not rune count)
}

// NoPos is the zero value of Pos; it is never a valid position.
var NoPos = Pos{}

// IsValid reports whether p is a valid, resolved position.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Compare orders positions by offset, matching source order.
func (p Pos) Compare(q Pos) int {
	switch {
	case p.Offset < q.Offset:
		return -1
	case p.Offset > q.Offset:
		return 1
	default:
		return 0
	}
}
