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

// Package fumierr implements THE CORE's error catalog and diagnostics:
// coded errors with severity bands, message template interpolation, a
// pluggable logger, and a per-call diagnostic bag. Its shape follows
// cue/errors.Error (Position/Msg/Error) extended with a stable Code and
// a numeric Severity, since fumifier routes every FLASH-layer error
// through the policy engine by severity rather than by type.
package fumierr

import (
	"fmt"

	"github.com/mechanik-daniel/fumifier/internal/token"
)

// Error is the interface every fumifier-raised error implements.
type Error interface {
	error
	Code() string
	Position() token.Pos
	Severity() int
	// Inserts returns the named template values used to build Message(),
	// so callers (e.g. the verbose API) can re-render or translate it.
	Inserts() map[string]any
}

// FhirContext carries FLASH-layer positional metadata that accompanies
// some diagnostics (spec 3, Diagnostic entry: fhirParent/fhirElement).
type FhirContext struct {
	FhirParent  string
	FhirElement string
}

// codedError is the concrete Error implementation produced by New/
// NewWithFhir/Wrap.
type codedError struct {
	code     string
	pos      token.Pos
	severity int
	message  string
	inserts  map[string]any
	fhir     *FhirContext
	cause    error
}

func (e *codedError) Error() string {
	if e.pos.IsValid() {
		return fmt.Sprintf("%s: %s [%s]", e.pos, e.message, e.code)
	}
	return fmt.Sprintf("%s [%s]", e.message, e.code)
}

func (e *codedError) Code() string            { return e.code }
func (e *codedError) Position() token.Pos     { return e.pos }
func (e *codedError) Severity() int           { return e.severity }
func (e *codedError) Inserts() map[string]any { return e.inserts }
func (e *codedError) Unwrap() error           { return e.cause }
func (e *codedError) Fhir() *FhirContext      { return e.fhir }

// New renders code's catalog template with inserts and returns a
// positioned Error. Severity is derived from the code via SeverityOf.
func New(code string, pos token.Pos, inserts map[string]any) Error {
	return &codedError{
		code:     code,
		pos:      pos,
		severity: SeverityOf(code),
		message:  Render(code, inserts),
		inserts:  inserts,
	}
}

// NewWithFhir is New plus FHIR element context, used throughout the
// FLASH evaluator (spec 4.7/4.8) where diagnostics name the offending
// element.
func NewWithFhir(code string, pos token.Pos, inserts map[string]any, fhir FhirContext) Error {
	e := New(code, pos, inserts).(*codedError)
	e.fhir = &fhir
	return e
}

// Wrap attaches cause as the Unwrap() target of a new coded error,
// mirroring cue/errors.Wrap's parent/child relationship but kept as a
// single error value rather than a list (fumifier diagnostics are
// already deduplicated and bucketed by the diagnostic bag).
func Wrap(code string, pos token.Pos, inserts map[string]any, cause error) Error {
	e := New(code, pos, inserts).(*codedError)
	e.cause = cause
	return e
}
