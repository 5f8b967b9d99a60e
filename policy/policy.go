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

// Package policy implements spec component G, the policy engine: the
// throwLevel/logLevel/collectLevel/validationLevel threshold machinery
// that decides whether a diagnosed error is inhibited, logged,
// collected, or thrown (spec 4.8). Its shape — a small struct of
// configured thresholds plus one enforcement entrypoint — mirrors how
// cue/errors accumulates and classifies errors by code by gathering the
// decision in one place rather than scattering severity checks through
// every call site.
package policy

import (
	"time"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

// Default thresholds (spec 4.8).
const (
	DefaultThrowLevel      = 30
	DefaultLogLevel        = 40
	DefaultCollectLevel    = 70
	DefaultValidationLevel = 30
)

// Engine holds the four scope-variable thresholds resolved per call.
type Engine struct {
	ThrowLevel      int
	LogLevel        int
	CollectLevel    int
	ValidationLevel int
}

// New returns an Engine seeded with spec 4.8's defaults.
func New() *Engine {
	return &Engine{
		ThrowLevel:      DefaultThrowLevel,
		LogLevel:        DefaultLogLevel,
		CollectLevel:    DefaultCollectLevel,
		ValidationLevel: DefaultValidationLevel,
	}
}

// ShouldValidate reports whether a check guarded by code is worth
// performing at all — skipping it is a pure performance inhibition when
// its outcome could never surface past the validation threshold.
func (e *Engine) ShouldValidate(code string) bool {
	return fumierr.SeverityOf(code) < e.ValidationLevel
}

// Handle implements spec 4.8's enforcement rule for one diagnosed
// error: populate the message, decide shouldLog/shouldThrow/
// shouldCollect, push to the bag (marking __inhibited when
// appropriate), log if warranted, and return a throwable error when
// shouldThrow — otherwise nil.
func (e *Engine) Handle(bag *fumierr.Bag, logger fumierr.Logger, executionID string, code string, pos token.Pos, fhir fumierr.FhirContext, inserts map[string]any) error {
	sev := fumierr.SeverityOf(code)
	msg := fumierr.Render(code, inserts)

	shouldLog := sev < e.LogLevel
	shouldThrow := sev < e.ThrowLevel
	shouldCollect := sev < e.CollectLevel
	inhibited := !(shouldLog || shouldThrow || shouldCollect)

	entry := fumierr.Entry{
		Code:        code,
		Severity:    sev,
		Level:       fumierr.LevelName(sev),
		Message:     msg,
		Position:    pos,
		Line:        pos.Line,
		FhirParent:  fhir.FhirParent,
		FhirElement: fhir.FhirElement,
		Timestamp:   time.Now().UnixMilli(),
		ExecutionID: executionID,
		Inserts:     inserts,
		Inhibited:   inhibited,
	}
	bag.Push(entry)

	if inhibited {
		return nil
	}
	if shouldLog && logger != nil {
		fumierr.LogAt(logger, bucketFor(sev), msg, inserts)
	}
	if shouldThrow {
		return fumierr.NewWithFhir(code, pos, inserts, fhir)
	}
	return nil
}

func bucketFor(sev int) string {
	switch {
	case sev < 30:
		return "error"
	case sev < 40:
		return "warning"
	default:
		return "debug"
	}
}
