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

package flash

import (
	"strings"
	"time"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/resolver"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// ValidatePrimitive implements spec 4.7's primitive-validation step:
// regex (F5110), calendar-date well-formedness (F5111), non-blank
// string content (F5112), the `code` type's whitespace rule (F5113),
// and maxLength (F5114). Each check is gated by ev.Policy.ShouldValidate
// so a check whose outcome could never surface past validationLevel is
// skipped as a pure performance inhibition (spec 4.8).
func ValidatePrimitive(ev *eval.Evaluator, el *resolver.Element, executionID string, pos token.Pos, v any) error {
	if v == nil {
		return nil
	}
	s, isString := v.(string)

	if isString && el.CompiledRegex != nil && ev.Policy.ShouldValidate("F5110") {
		if !el.CompiledRegex.MatchString(s) {
			if err := handleDiag(ev, executionID, "F5110", pos, el, map[string]any{"value": s}); err != nil {
				return err
			}
		}
	}

	if isString && isCalendarType(el.FhirTypeCode) && ev.Policy.ShouldValidate("F5111") {
		if !validCalendarValue(el.FhirTypeCode, s) {
			if err := handleDiag(ev, executionID, "F5111", pos, el, map[string]any{"value": s}); err != nil {
				return err
			}
		}
	}

	if isString && el.FhirTypeCode == "string" && ev.Policy.ShouldValidate("F5112") {
		if strings.TrimSpace(s) == "" {
			if err := handleDiag(ev, executionID, "F5112", pos, el, nil); err != nil {
				return err
			}
		}
	}

	if isString && el.FhirTypeCode == "code" && ev.Policy.ShouldValidate("F5113") {
		if hasIrregularWhitespace(s) {
			if err := handleDiag(ev, executionID, "F5113", pos, el, nil); err != nil {
				return err
			}
		}
	}

	if isString && el.MaxLength > 0 && len(s) > el.MaxLength && ev.Policy.ShouldValidate("F5114") {
		if err := handleDiag(ev, executionID, "F5114", pos, el, map[string]any{"maxLength": el.MaxLength}); err != nil {
			return err
		}
	}

	return nil
}

func handleDiag(ev *eval.Evaluator, executionID, code string, pos token.Pos, el *resolver.Element, inserts map[string]any) error {
	if inserts == nil {
		inserts = map[string]any{}
	}
	inserts["fhirElement"] = el.Path
	return ev.Policy.Handle(ev.Diagnostics, ev.Logger, executionID, code, pos,
		fumierr.FhirContext{FhirElement: el.Path}, inserts)
}

func isCalendarType(code string) bool {
	switch code {
	case "date", "dateTime", "instant", "time":
		return true
	}
	return false
}

// validCalendarValue checks the FHIR primitive date/time family against
// their documented layouts (xs:date/xs:dateTime/xs:time with partial
// precision allowed for date/dateTime).
func validCalendarValue(fhirType, s string) bool {
	layouts := calendarLayouts(fhirType)
	for _, l := range layouts {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}

func calendarLayouts(fhirType string) []string {
	switch fhirType {
	case "date":
		return []string{"2006", "2006-01", "2006-01-02"}
	case "dateTime":
		return []string{
			"2006", "2006-01", "2006-01-02",
			"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05.999Z07:00",
			"2006-01-02T15:04:05", "2006-01-02T15:04:05.999",
		}
	case "instant":
		return []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05.999Z07:00"}
	case "time":
		return []string{"15:04:05", "15:04:05.999"}
	}
	return nil
}

func hasIrregularWhitespace(s string) bool {
	if s == "" {
		return false
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	return strings.Contains(s, "  ") || strings.ContainsAny(s, "\t\n\r")
}

// validateBinding implements spec 4.7's ValueSet-binding-validation
// step (spec 4.4's precedence already picked BindingKind/VSMode/VSRefKey
// onto el). scalar is set for a primitive-kind element (code/string/uri
// bound directly); obj is set for a Coding/Quantity/CodeableConcept
// element whose membership test inspects its assembled system+code.
func validateBinding(ev *eval.Evaluator, el *resolver.Element, executionID string, pos token.Pos, scalar any, obj *OrderedObject) error {
	if el.BindingKind == resolver.BindingNone {
		return nil
	}

	required := el.BindingKind == resolver.BindingRequired

	if scalar == nil && obj == nil {
		if required {
			return handleDiag(ev, executionID, "F5120", pos, el, map[string]any{"valueSet": el.BindingValueSet})
		}
		return nil
	}

	deferredCode, failedCode := bindingDiagnosticCodes(required)

	switch el.VSMode {
	case resolver.VSLazy:
		return handleDiag(ev, executionID, deferredCode, pos, el, map[string]any{"valueSet": el.BindingValueSet})
	case resolver.VSError:
		return handleDiag(ev, executionID, failedCode, pos, el, map[string]any{"valueSet": el.BindingValueSet})
	}

	vs, ok := ev.Defs.ValueSet(el.VSRefKey)
	if !ok {
		return handleDiag(ev, executionID, failedCode, pos, el, map[string]any{"valueSet": el.VSRefKey})
	}

	switch {
	case scalar != nil:
		system, code := "", asString(scalar)
		if !vs.Has(system, code) {
			return reportBindingMiss(ev, el, executionID, pos, required, "scalar", system, code)
		}
	case obj != nil:
		return validateComplexBinding(ev, el, executionID, pos, required, vs, obj)
	}
	return nil
}

func bindingDiagnosticCodes(required bool) (deferred, failed string) {
	if required {
		return "F5311", "F5310"
	}
	return "F5331", "F5330"
}

func validateComplexBinding(ev *eval.Evaluator, el *resolver.Element, executionID string, pos token.Pos, required bool, vs interface {
	Has(system, code string) bool
}, obj *OrderedObject) error {
	switch el.FhirTypeCode {
	case "Coding":
		system, _ := obj.Get("system")
		code, _ := obj.Get("code")
		if !vs.Has(asString(system), asString(code)) {
			return reportBindingMiss(ev, el, executionID, pos, required, "coding", asString(system), asString(code))
		}
	case "CodeableConcept":
		codings, _ := obj.Get("coding")
		arr, _ := codings.([]any)
		for _, c := range arr {
			co, ok := c.(*OrderedObject)
			if !ok {
				continue
			}
			system, _ := co.Get("system")
			code, _ := co.Get("code")
			if vs.Has(asString(system), asString(code)) {
				return nil
			}
		}
		return reportBindingMiss(ev, el, executionID, pos, required, "codeableConcept", "", "")
	case "Quantity":
		system, _ := obj.Get("system")
		code, _ := obj.Get("code")
		if !vs.Has(asString(system), asString(code)) {
			return reportBindingMiss(ev, el, executionID, pos, required, "coding", asString(system), asString(code))
		}
	}
	return nil
}

func reportBindingMiss(ev *eval.Evaluator, el *resolver.Element, executionID string, pos token.Pos, required bool, shape, system, code string) error {
	var bindCode string
	inserts := map[string]any{"valueSet": el.VSRefKey}
	switch {
	case required && shape == "scalar":
		bindCode = "F5121"
		inserts["system"], inserts["code"] = system, code
	case required && shape == "coding":
		bindCode = "F5122"
	case required && shape == "codeableConcept":
		bindCode = "F5123"
	case !required && shape == "scalar":
		bindCode = "F5343"
		inserts["system"], inserts["code"] = system, code
	case !required && shape == "coding":
		bindCode = "F5341"
	case !required && shape == "codeableConcept":
		bindCode = "F5342"
	default:
		bindCode = "F5340"
	}
	return handleDiag(ev, executionID, bindCode, pos, el, inserts)
}
