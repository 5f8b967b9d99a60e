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

package value

import (
	"regexp"
	"strings"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// Regex is the runtime value a `/pattern/flags` literal evaluates to
// (spec 3: "regex (closure-producing match function)"; spec 9 replaces
// the generator-style match iterator with an explicit object bearing
// match/start/end/groups — Match below is that object, and FindFirst's
// from offset steps to the next one). Native
// functions ($match, $contains, $split, $replace) detect this type by
// assertion rather than treating it as a generic *Function, since a Go
// regexp.Regexp has no natural "call" shape.
type Regex struct {
	Source  string
	Flags   string
	Global  bool
	re      *regexp.Regexp
}

// CompileRegex compiles pattern with JSONata's `i`/`m`/`g` flags (spec
// 4.1): `g` selects repeated matching in native callers, `i`/`m` map to
// Go's inline (?i)/(?m) modifiers.
func CompileRegex(pattern, flags string, pos token.Pos) (*Regex, error) {
	var mods string
	global := false
	for _, f := range flags {
		switch f {
		case 'i':
			mods += "i"
		case 'm':
			mods += "m"
		case 'g':
			global = true
		}
	}
	src := pattern
	if mods != "" {
		src = "(?" + mods + ")" + pattern
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fumierr.New("S0302", pos, map[string]any{"message": err.Error()})
	}
	return &Regex{Source: pattern, Flags: flags, Global: global, re: re}, nil
}

// Match is one regex match result, shaped per spec 9's explicit
// iterator object (match/start/end/groups). Start and End are byte
// offsets into the searched string.
type Match struct {
	Value  string
	Start  int
	End    int
	Groups []string
}

// FindFirst returns the first match in s at or after byte offset from,
// or ok=false if the pattern never matches.
func (r *Regex) FindFirst(s string, from int) (Match, bool) {
	if from > len(s) {
		return Match{}, false
	}
	loc := r.re.FindStringSubmatchIndex(s[from:])
	if loc == nil {
		return Match{}, false
	}
	return r.toMatch(s, loc, from), true
}

// FindAll returns every non-overlapping match in s, in order.
func (r *Regex) FindAll(s string) []Match {
	locs := r.re.FindAllStringSubmatchIndex(s, -1)
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		out = append(out, r.toMatch(s, loc, 0))
	}
	return out
}

// Test reports whether s contains any match (used by $contains and
// the `~` `in` style membership checks).
func (r *Regex) Test(s string) bool {
	return r.re.MatchString(s)
}

// ReplaceAll substitutes every match of r in s using repl, where repl
// may reference captured groups with $1, $2, ... (Go regexp syntax).
func (r *Regex) ReplaceAll(s, repl string) string {
	return r.re.ReplaceAllString(s, repl)
}

func (r *Regex) toMatch(s string, loc []int, offset int) Match {
	m := Match{
		Value: s[offset+loc[0] : offset+loc[1]],
		Start: offset + loc[0],
		End:   offset + loc[1],
	}
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			m.Groups = append(m.Groups, "")
			continue
		}
		m.Groups = append(m.Groups, s[offset+loc[i]:offset+loc[i+1]])
	}
	return m
}

// String renders a Regex the way JSONata stringifies a regex value,
// used when a regex literal leaks into string-coercion contexts.
func (r *Regex) String() string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(r.Source)
	b.WriteByte('/')
	b.WriteString(r.Flags)
	return b.String()
}
