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

package fumierr

import (
	"errors"
	"testing"

	"github.com/mechanik-daniel/fumifier/internal/token"
)

func TestSeverityOf(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"F5114", 11},
		{"F5330", 33},
		{"T1006", 0},
		{"S0101", 0},
		{"D1009", 0},
	}
	for _, c := range cases {
		if got := SeverityOf(c.code); got != c.want {
			t.Errorf("SeverityOf(%q) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestIsPolicyGoverned(t *testing.T) {
	if !IsPolicyGoverned("F5114") {
		t.Error("F5114 should be policy-governed")
	}
	if IsPolicyGoverned("T1006") {
		t.Error("T1006 should not be policy-governed")
	}
}

func TestLevelName(t *testing.T) {
	cases := []struct {
		sev  int
		want string
	}{
		{0, "error"},
		{19, "error"},
		{20, "error"},
		{29, "error"},
		{30, "warning"},
		{39, "warning"},
		{40, "debug"},
		{99, "debug"},
	}
	for _, c := range cases {
		if got := LevelName(c.sev); got != c.want {
			t.Errorf("LevelName(%d) = %q, want %q", c.sev, got, c.want)
		}
	}
}

func TestRender(t *testing.T) {
	got := Render("S0102", map[string]any{"value": "1e999"})
	want := "Number out of range: 1e999"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}

	got = Render("D1009", map[string]any{"key": []any{"a", "b"}})
	want = `Multiple key definitions evaluate to same key: [a b]`
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}

	got = Render("UNKNOWN-CODE", nil)
	if got == "" {
		t.Error("Render of an unknown code should still produce a message")
	}
}

func TestNewErrorPositionAndCode(t *testing.T) {
	pos := token.Pos{Offset: 10, Line: 1, Column: 11}
	err := New("T1006", pos, nil)
	if err.Code() != "T1006" {
		t.Errorf("Code() = %q, want T1006", err.Code())
	}
	if err.Position() != pos {
		t.Errorf("Position() = %v, want %v", err.Position(), pos)
	}
	if err.Severity() != 0 {
		t.Errorf("Severity() = %d, want 0", err.Severity())
	}
	if err.Error() == "" {
		t.Error("Error() should not be empty")
	}
}

func TestNewWithFhir(t *testing.T) {
	fhir := FhirContext{FhirParent: "Patient", FhirElement: "Patient.name"}
	err := NewWithFhir("F5130", token.NoPos, map[string]any{"fhirElement": "Patient.name", "min": 1}, fhir)
	ce, ok := err.(interface{ Fhir() *FhirContext })
	if !ok {
		t.Fatal("expected the concrete error to expose Fhir()")
	}
	if ce.Fhir().FhirElement != "Patient.name" {
		t.Errorf("FhirElement = %q, want Patient.name", ce.Fhir().FhirElement)
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap("D3120", token.NoPos, map[string]any{"message": "boom"}, cause)
	if errors.Unwrap(err) != cause {
		t.Error("Wrap should preserve the cause for errors.Unwrap")
	}
}
