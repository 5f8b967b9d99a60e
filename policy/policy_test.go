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

package policy

import (
	"testing"

	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

type recordingLogger struct {
	warnCalls, errorCalls, debugCalls int
}

func (l *recordingLogger) Debug(string, map[string]any) { l.debugCalls++ }
func (l *recordingLogger) Info(string, map[string]any)  {}
func (l *recordingLogger) Warn(string, map[string]any)  { l.warnCalls++ }
func (l *recordingLogger) Error(string, map[string]any) { l.errorCalls++ }

func TestNewDefaults(t *testing.T) {
	e := New()
	if e.ThrowLevel != DefaultThrowLevel || e.LogLevel != DefaultLogLevel ||
		e.CollectLevel != DefaultCollectLevel || e.ValidationLevel != DefaultValidationLevel {
		t.Fatalf("New() = %+v, want spec defaults", e)
	}
}

func TestShouldValidate(t *testing.T) {
	e := New()
	if !e.ShouldValidate("T1006") {
		t.Error("an always-fatal code should always be worth validating")
	}
	if e.ShouldValidate("F5500") {
		t.Error("F5500 (severity 50) is not below the default validation level (30) and should be skipped")
	}
}

func TestHandleThrows(t *testing.T) {
	e := New()
	bag := fumierr.NewBag()
	logger := &recordingLogger{}
	err := e.Handle(bag, logger, "exec-1", "T1006", token.NoPos, fumierr.FhirContext{}, nil)
	if err == nil {
		t.Fatal("expected an always-fatal code to be thrown")
	}
	if ce, ok := err.(fumierr.Error); !ok || ce.Code() != "T1006" {
		t.Fatalf("got %v, want a coded T1006 error", err)
	}
	if len(bag.Error) != 1 {
		t.Fatalf("got %d error entries, want 1", len(bag.Error))
	}
	if bag.Error[0].Inhibited {
		t.Error("a thrown entry should not be marked inhibited")
	}
	if logger.errorCalls != 1 {
		t.Errorf("got %d error log calls, want 1", logger.errorCalls)
	}
}

func TestHandleCollectsWithoutThrowing(t *testing.T) {
	e := New()
	bag := fumierr.NewBag()
	// severity 50: below collectLevel(70), but not below logLevel(40) or
	// throwLevel(30).
	err := e.Handle(bag, nil, "exec-1", "F5500", token.NoPos, fumierr.FhirContext{}, map[string]any{"message": "test"})
	if err != nil {
		t.Fatalf("severity 50 should not throw under default policy: %v", err)
	}
	if len(bag.Debug) != 1 {
		t.Fatalf("got %d debug entries, want 1", len(bag.Debug))
	}
	if bag.Debug[0].Inhibited {
		t.Error("a collected (not fully-inhibited) entry should not be marked inhibited")
	}
}

func TestHandleFullyInhibited(t *testing.T) {
	e := New()
	bag := fumierr.NewBag()
	// severity 99 is above every default threshold (30/40/70/30).
	err := e.Handle(bag, nil, "exec-1", "F5990", token.NoPos, fumierr.FhirContext{}, nil)
	if err != nil {
		t.Fatalf("a fully-inhibited entry should never be thrown: %v", err)
	}
	if len(bag.Debug) != 1 || !bag.Debug[0].Inhibited {
		t.Fatalf("got %+v, want one inhibited debug entry", bag.Debug)
	}
}

func TestHandleDeduplicates(t *testing.T) {
	e := New()
	bag := fumierr.NewBag()
	pos := token.Pos{Offset: 1, Line: 1, Column: 2}
	for i := 0; i < 3; i++ {
		e.Handle(bag, nil, "exec-1", "T1006", pos, fumierr.FhirContext{}, nil)
	}
	if len(bag.Error) != 1 {
		t.Fatalf("got %d error entries, want 1 after dedup", len(bag.Error))
	}
}
