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

package astcache

import (
	"strings"
	"sync"
	"testing"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

func node() ast.Node {
	return ast.NewLiteral(token.NoPos, ast.LitNumber)
}

func TestLRUGetSet(t *testing.T) {
	c := NewLRU(0)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("empty cache should miss")
	}
	n := node()
	c.Set("a", n)
	got, ok := c.Get("a")
	if !ok || got != n {
		t.Fatalf("expected the cached node back")
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	key := strings.Repeat("x", 100)
	budget := 2 * (len(key+"1") + perEntryOverhead)
	c := NewLRU(budget)

	c.Set(key+"1", node())
	c.Set(key+"2", node())
	c.Get(key + "1") // promote 1; 2 is now least recently used
	c.Set(key+"3", node())

	if _, ok := c.Get(key + "2"); ok {
		t.Fatalf("least-recently-used entry should have been evicted")
	}
	if _, ok := c.Get(key + "1"); !ok {
		t.Fatalf("promoted entry should survive")
	}
	if _, ok := c.Get(key + "3"); !ok {
		t.Fatalf("newest entry should survive")
	}
}

func TestLRUOverwriteKeepsSingleEntry(t *testing.T) {
	c := NewLRU(0)
	c.Set("a", node())
	n2 := node()
	c.Set("a", n2)
	got, _ := c.Get("a")
	if got != n2 {
		t.Fatalf("overwrite should replace the stored node")
	}
}

func TestLeaseDedupesConcurrentParses(t *testing.T) {
	c := NewLRU(0)

	release, leader := c.Lease("k")
	if !leader {
		t.Fatalf("first caller should win the lease")
	}

	wait, leader2 := c.Lease("k")
	if leader2 {
		t.Fatalf("second caller should not win an in-flight lease")
	}

	var followerDone sync.WaitGroup
	followerDone.Add(1)
	go func() {
		defer followerDone.Done()
		wait() // blocks until the leader releases
		if _, ok := c.Get("k"); !ok {
			t.Errorf("follower should see the leader's parse result after waiting")
		}
	}()

	c.Set("k", node())
	release()
	followerDone.Wait()

	// The lease is gone; a new caller becomes leader again.
	release2, leader3 := c.Lease("k")
	if !leader3 {
		t.Fatalf("lease should reset after release")
	}
	release2()
}
