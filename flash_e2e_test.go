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

package fumifier_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mechanik-daniel/fumifier"
	"github.com/mechanik-daniel/fumifier/internal/navtest"
	"github.com/mechanik-daniel/fumifier/navigator"
)

const adminGenderVS = "http://hl7.org/fhir/ValueSet/administrative-gender"

// newPatientNavigator builds the minimal fake definition source the
// FLASH scenarios below need: a Patient resource with id/name/gender, a
// HumanName complex type, the primitive types behind them, and the
// administrative-gender value set.
func newPatientNavigator() *navtest.Fake {
	nav := navtest.New()
	pkg := navigator.PackageRef{ID: "hl7.fhir.r4.core", Version: "4.0.1"}

	nav.Types["Patient"] = &navigator.TypeMeta{
		Kind:       "resource",
		URL:        "http://hl7.org/fhir/StructureDefinition/Patient",
		Type:       "Patient",
		Derivation: "specialization",
		Package:    pkg,
	}
	for code, kind := range map[string]string{
		"id": "primitive-type", "string": "primitive-type", "code": "primitive-type",
		"HumanName": "complex-type", "Identifier": "complex-type",
	} {
		nav.BaseTypes[code] = &navigator.TypeMeta{Kind: kind, Type: code, Package: pkg}
	}

	idElem := navigator.ElementDefinition{
		Path: "Patient.id", Min: 0, Max: "1", BaseMax: "1",
		Types: []navigator.ElementType{{Code: "id"}},
	}
	nameElem := navigator.ElementDefinition{
		Path: "Patient.name", Min: 0, Max: "*", BaseMax: "*",
		Types: []navigator.ElementType{{Code: "HumanName"}},
	}
	genderElem := navigator.ElementDefinition{
		Path: "Patient.gender", Min: 0, Max: "1", BaseMax: "1",
		Types:           []navigator.ElementType{{Code: "code"}},
		BindingStrength: "required",
		BindingValueSet: adminGenderVS,
	}
	nav.PutChildren("Patient", "", []navigator.ElementDefinition{idElem, nameElem, genderElem})
	nav.PutElement("Patient", "id", idElem)
	nav.PutElement("Patient", "name", nameElem)
	nav.PutElement("Patient", "gender", genderElem)

	givenElem := navigator.ElementDefinition{
		Path: "HumanName.given", Min: 0, Max: "*", BaseMax: "*",
		Types: []navigator.ElementType{{Code: "string"}},
	}
	familyElem := navigator.ElementDefinition{
		Path: "HumanName.family", Min: 0, Max: "1", BaseMax: "1",
		Types: []navigator.ElementType{{Code: "string"}},
	}
	nav.PutChildren("HumanName", "Patient.name", []navigator.ElementDefinition{givenElem, familyElem})
	nav.PutElement("Patient", "name.given", navigator.ElementDefinition{
		Path: "Patient.name.given", Min: 0, Max: "*", BaseMax: "*",
		Types: []navigator.ElementType{{Code: "string"}},
	})
	nav.PutElement("Patient", "name.family", navigator.ElementDefinition{
		Path: "Patient.name.family", Min: 0, Max: "1", BaseMax: "1",
		Types: []navigator.ElementType{{Code: "string"}},
	})

	nav.PutElement("id", "id.value", navigator.ElementDefinition{
		Path:  "id.value",
		Types: []navigator.ElementType{{Code: "http://hl7.org/fhirpath/System.String"}},
		Regex: `[A-Za-z0-9\-\.]{1,64}`,
	})
	nav.PutElement("string", "string.value", navigator.ElementDefinition{
		Path:  "string.value",
		Types: []navigator.ElementType{{Code: "http://hl7.org/fhirpath/System.String"}},
		Regex: `[ \r\n\t\S]+`,
	})
	nav.PutElement("code", "code.value", navigator.ElementDefinition{
		Path:  "code.value",
		Types: []navigator.ElementType{{Code: "http://hl7.org/fhirpath/System.String"}},
		Regex: `[^\s]+(\s[^\s]+)*`,
	})

	nav.ValueSets[adminGenderVS] = navigator.ExpandedValueSet{
		"http://hl7.org/fhir/administrative-gender": {
			"male":    {Code: "male"},
			"female":  {Code: "female"},
			"other":   {Code: "other"},
			"unknown": {Code: "unknown"},
		},
	}
	return nav
}

func marshalResult(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return string(b)
}

// TestFlashPatientInstance covers spec 8 scenario S4: a full
// InstanceOf: Patient block with nested name subrules, checking both
// content and FHIR key order.
func TestFlashPatientInstance(t *testing.T) {
	src := `InstanceOf: Patient
* id = 'x'
* name
  * given = "A"
  * family = "B"
* gender = "unknown"
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := expr.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := `{"resourceType":"Patient","id":"x","name":[{"given":["A"],"family":"B"}],"gender":"unknown"}`
	if s := marshalResult(t, got); s != want {
		t.Fatalf("got  %s\nwant %s", s, want)
	}
}

// TestFlashInstanceDeclaration exercises the `Instance:` form: the
// instance-id expression becomes the resource's id.
func TestFlashInstanceDeclaration(t *testing.T) {
	src := `Instance: $pid
InstanceOf: Patient
* gender = "female"
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := expr.Evaluate(context.Background(), nil, map[string]any{"pid": "p1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := `{"resourceType":"Patient","id":"p1","gender":"female"}`
	if s := marshalResult(t, got); s != want {
		t.Fatalf("got  %s\nwant %s", s, want)
	}
}

// TestFlashRuleFromInput exercises inline expressions reading the
// evaluation input, including a multi-step path unchained into nested
// rules.
func TestFlashRuleFromInput(t *testing.T) {
	src := `InstanceOf: Patient
* name.family = last
* gender = sex
`
	input := map[string]any{"last": "Doe", "sex": "male"}
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := expr.Evaluate(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := `{"resourceType":"Patient","name":[{"family":"Doe"}],"gender":"male"}`
	if s := marshalResult(t, got); s != want {
		t.Fatalf("got  %s\nwant %s", s, want)
	}
}

// TestFlashContextualizedRule exercises the `(expr).` context prefix: the
// rule fires once per context item, producing one name per element.
func TestFlashContextualizedRule(t *testing.T) {
	src := `InstanceOf: Patient
* (people).name
  * family = surname
`
	input := map[string]any{"people": []any{
		map[string]any{"surname": "One"},
		map[string]any{"surname": "Two"},
	}}
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := expr.Evaluate(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := `{"resourceType":"Patient","name":[{"family":"One"},{"family":"Two"}]}`
	if s := marshalResult(t, got); s != want {
		t.Fatalf("got  %s\nwant %s", s, want)
	}
}

// TestFlashRequiredBindingVerbose covers spec 8 scenario S6: with
// throwLevel lowered to 0, a failing required binding is collected
// rather than thrown, the report status is 206, and the partially built
// resource still comes back.
func TestFlashRequiredBindingVerbose(t *testing.T) {
	src := `InstanceOf: Patient
* gender = "banana"
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	expr.SetPolicy(0, 40, 70, 30)

	report := expr.EvaluateVerbose(context.Background(), nil, nil)
	if report.Err != nil {
		t.Fatalf("verbose evaluation should not throw: %v", report.Err)
	}
	if report.Status != 206 {
		t.Fatalf("status = %d, want 206", report.Status)
	}
	found := false
	for _, e := range report.Diagnostics.Error {
		if strings.HasPrefix(e.Code, "F512") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a required-binding diagnostic in the error bucket, got %+v", report.Diagnostics.Error)
	}
	if report.Result == nil {
		t.Fatalf("expected a partially built resource alongside the diagnostics")
	}
}

// TestFlashRequiredBindingThrows checks the default policy: a failing
// required binding (severity 12, below throwLevel 30) aborts Evaluate.
func TestFlashRequiredBindingThrows(t *testing.T) {
	src := `InstanceOf: Patient
* gender = "banana"
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := expr.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected a required-binding violation to throw under default policy")
	}
}

// TestFlashPrimitiveRegexViolation exercises F5110: an id value that
// fails the primitive's regex throws under the default policy.
func TestFlashPrimitiveRegexViolation(t *testing.T) {
	src := `InstanceOf: Patient
* id = 'not a valid id!'
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(newPatientNavigator()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := expr.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected a regex violation to throw under default policy")
	}
}

// TestFlashWithoutNavigatorFails: compiling FLASH without a navigator is
// F3000.
func TestFlashWithoutNavigatorFails(t *testing.T) {
	src := `InstanceOf: Patient
* gender = "male"
`
	if _, err := fumifier.Compile(src); err == nil {
		t.Fatalf("expected Compile to fail without a navigator")
	}
}

// TestFlashMandatorySliceGeneration exercises the virtual-rule path: a
// profile with a mandatory identifier slice carrying a fixed value gets
// that slice auto-generated when the block never mentions it.
func TestFlashMandatorySliceGeneration(t *testing.T) {
	nav := newPatientNavigator()
	pkg := navigator.PackageRef{ID: "example.fhir.profiles", Version: "1.0.0"}
	nav.Types["MyPatient"] = &navigator.TypeMeta{
		Kind:       "resource",
		URL:        "http://example.org/StructureDefinition/MyPatient",
		Type:       "Patient",
		Derivation: "constraint",
		Package:    pkg,
	}
	identifierBase := navigator.ElementDefinition{
		Path: "Patient.identifier", Min: 1, Max: "*", BaseMax: "*",
		Types:      []navigator.ElementType{{Code: "Identifier"}},
		SliceNames: []string{"mrn"},
	}
	identifierMrn := navigator.ElementDefinition{
		Path: "Patient.identifier", SliceName: "mrn", Min: 1, Max: "1", BaseMax: "*",
		Types:      []navigator.ElementType{{Code: "Identifier"}},
		FixedValue: map[string]any{"system": "http://hospital.example.org/mrn"},
	}
	genderElem := navigator.ElementDefinition{
		Path: "Patient.gender", Min: 0, Max: "1", BaseMax: "1",
		Types: []navigator.ElementType{{Code: "code"}},
	}
	nav.PutChildren("MyPatient", "", []navigator.ElementDefinition{identifierBase, identifierMrn, genderElem})
	nav.PutElement("MyPatient", "gender", genderElem)

	src := `InstanceOf: MyPatient
* gender = "other"
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(nav))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := expr.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	s := marshalResult(t, got)
	if !strings.Contains(s, `"identifier":[{"system":"http://hospital.example.org/mrn"}]`) {
		t.Fatalf("expected the mandatory mrn slice to be auto-generated, got %s", s)
	}
	if !strings.Contains(s, `"meta":{"profile":["http://example.org/StructureDefinition/MyPatient"]}`) {
		t.Fatalf("expected meta.profile injection for the constrained profile, got %s", s)
	}
}

// TestFlashMissingMandatoryThrows: a mandatory element with no slices
// and no value fails with F5130 under the default policy.
func TestFlashMissingMandatoryThrows(t *testing.T) {
	nav := newPatientNavigator()
	pkg := navigator.PackageRef{ID: "example.fhir.profiles", Version: "1.0.0"}
	nav.Types["StrictPatient"] = &navigator.TypeMeta{
		Kind:       "resource",
		URL:        "http://example.org/StructureDefinition/StrictPatient",
		Type:       "Patient",
		Derivation: "constraint",
		Package:    pkg,
	}
	genderElem := navigator.ElementDefinition{
		Path: "Patient.gender", Min: 1, Max: "1", BaseMax: "1",
		Types: []navigator.ElementType{{Code: "code"}},
	}
	idElem := navigator.ElementDefinition{
		Path: "Patient.id", Min: 0, Max: "1", BaseMax: "1",
		Types: []navigator.ElementType{{Code: "id"}},
	}
	nav.PutChildren("StrictPatient", "", []navigator.ElementDefinition{idElem, genderElem})
	nav.PutElement("StrictPatient", "id", idElem)

	src := `InstanceOf: StrictPatient
* id = 'p2'
`
	expr, err := fumifier.Compile(src, fumifier.WithNavigator(nav))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := expr.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected the missing mandatory gender to throw under default policy")
	}
}
