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

import (
	"testing"

	"github.com/mechanik-daniel/fumifier/internal/token"
)

func TestChildrenLeaves(t *testing.T) {
	lit := NewLiteral(token.NoPos, LitNumber)
	if got := Children(lit); got != nil {
		t.Errorf("Children(Literal) = %#v, want nil", got)
	}
	v := NewVariable(token.NoPos, "x")
	if got := Children(v); got != nil {
		t.Errorf("Children(Variable) = %#v, want nil", got)
	}
}

func TestChildrenBinary(t *testing.T) {
	lhs := NewLiteral(token.NoPos, LitNumber)
	rhs := NewLiteral(token.NoPos, LitNumber)
	bin := NewBinary(token.NoPos, "+", lhs, rhs)
	got := Children(bin)
	if len(got) != 2 || got[0] != Node(lhs) || got[1] != Node(rhs) {
		t.Fatalf("Children(Binary) = %#v, want [lhs rhs]", got)
	}
}

func TestChildrenObjectConstructor(t *testing.T) {
	k := NewLiteral(token.NoPos, LitString)
	v := NewLiteral(token.NoPos, LitNumber)
	obj := NewObjectConstructor(token.NoPos)
	obj.Pairs = []Pair{{Key: k, Value: v}}
	got := Children(obj)
	if len(got) != 2 || got[0] != Node(k) || got[1] != Node(v) {
		t.Fatalf("Children(ObjectConstructor) = %#v, want [key value]", got)
	}
}

func TestChildrenCall(t *testing.T) {
	callee := NewVariable(token.NoPos, "f")
	arg := NewLiteral(token.NoPos, LitNumber)
	call := NewCall(token.NoPos, callee)
	call.Args = []Node{arg}
	got := Children(call)
	if len(got) != 2 || got[0] != Node(callee) || got[1] != Node(arg) {
		t.Fatalf("Children(Call) = %#v, want [callee arg]", got)
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	lhs := NewLiteral(token.NoPos, LitNumber)
	rhs := NewLiteral(token.NoPos, LitNumber)
	bin := NewBinary(token.NoPos, "+", lhs, rhs)

	var visited []Node
	Walk(bin, func(n Node) bool {
		visited = append(visited, n)
		return true
	}, nil)

	if len(visited) != 3 {
		t.Fatalf("got %d visited nodes, want 3 (root + 2 leaves): %#v", len(visited), visited)
	}
}

func TestWalkBeforeFalseSkipsChildren(t *testing.T) {
	lhs := NewLiteral(token.NoPos, LitNumber)
	rhs := NewLiteral(token.NoPos, LitNumber)
	bin := NewBinary(token.NoPos, "+", lhs, rhs)

	var visited int
	Walk(bin, func(n Node) bool {
		visited++
		return false
	}, nil)

	if visited != 1 {
		t.Fatalf("got %d visited nodes, want 1 (root only, children skipped)", visited)
	}
}

func TestAnyContainsFlash(t *testing.T) {
	lit := NewLiteral(token.NoPos, LitNumber)
	if AnyContainsFlash(lit) {
		t.Error("a plain literal tree should not contain flash")
	}

	rule := NewFlashRule(token.NoPos)
	bin := NewBinary(token.NoPos, "+", lit, rule)
	if !AnyContainsFlash(bin) {
		t.Error("a tree with a FlashRule descendant should report containsFlash")
	}
}
