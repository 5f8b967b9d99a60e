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
	"testing"

	"github.com/mechanik-daniel/fumifier/internal/parser"
	"github.com/mechanik-daniel/fumifier/internal/token"
)

func TestValidateAndCoerceWrapsScalarIntoArray(t *testing.T) {
	sig, err := parser.ParseSignatureString("<a<n>:n>")
	if err != nil {
		t.Fatalf("ParseSignatureString: %v", err)
	}
	out, err := ValidateAndCoerce(sig, []any{5.0}, nil, token.NoPos)
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d args, want 1", len(out))
	}
	arr, ok := out[0].([]any)
	if !ok || len(arr) != 1 || arr[0] != 5.0 {
		t.Fatalf("got %#v, want the scalar wrapped in a 1-element array", out[0])
	}
}

func TestValidateAndCoerceContextableParam(t *testing.T) {
	sig, err := parser.ParseSignatureString("<s-:s>")
	if err != nil {
		t.Fatalf("ParseSignatureString: %v", err)
	}
	out, err := ValidateAndCoerce(sig, nil, "context value", token.NoPos)
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if len(out) != 1 || out[0] != "context value" {
		t.Fatalf("got %#v, want the context value filled in", out)
	}
}

func TestValidateAndCoerceOptionalParamMissing(t *testing.T) {
	sig, err := parser.ParseSignatureString("<n n?:n>")
	if err != nil {
		t.Fatalf("ParseSignatureString: %v", err)
	}
	out, err := ValidateAndCoerce(sig, []any{1.0}, nil, token.NoPos)
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if len(out) != 2 || out[0] != 1.0 || out[1] != nil {
		t.Fatalf("got %#v, want [1.0, nil]", out)
	}
}

func TestValidateAndCoerceMissingRequiredParamErrors(t *testing.T) {
	sig, err := parser.ParseSignatureString("<n:n>")
	if err != nil {
		t.Fatalf("ParseSignatureString: %v", err)
	}
	if _, err := ValidateAndCoerce(sig, nil, nil, token.NoPos); err == nil {
		t.Fatal("expected an error for a missing required parameter")
	}
}

func TestValidateAndCoerceTypeMismatchErrors(t *testing.T) {
	sig, err := parser.ParseSignatureString("<s:s>")
	if err != nil {
		t.Fatalf("ParseSignatureString: %v", err)
	}
	if _, err := ValidateAndCoerce(sig, []any{5.0}, nil, token.NoPos); err == nil {
		t.Fatal("expected an error passing a number where a string is required")
	}
}

func TestValidateAndCoerceNilSignaturePassesThrough(t *testing.T) {
	out, err := ValidateAndCoerce(nil, []any{1.0, "x"}, nil, token.NoPos)
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if len(out) != 2 || out[0] != 1.0 || out[1] != "x" {
		t.Fatalf("got %#v, want the args unchanged", out)
	}
}
