// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeUnsatisfiable, "no provider for type", nil)
	if !strings.Contains(err.Error(), "UNSATISFIABLE") {
		t.Fatalf("code missing from message: %s", err.Error())
	}

	wrapped := New(CodeCapability, "step failed", fmt.Errorf("boom"))
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Fatalf("cause missing from message: %s", wrapped.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := New(CodeTimeout, "deadline", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}

	var te *Error
	outer := fmt.Errorf("outer: %w", err)
	if !stderrors.As(outer, &te) {
		t.Fatal("expected errors.As to find *Error")
	}
	if te.Code != CodeTimeout {
		t.Fatalf("unexpected code: %s", te.Code)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %s", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != CodeInternal {
		t.Fatalf("expected internal for plain error, got %s", got)
	}
	err := fmt.Errorf("wrap: %w", New(CodeCyclic, "cycle", nil))
	if got := CodeOf(err); got != CodeCyclic {
		t.Fatalf("expected cyclic, got %s", got)
	}
	if !Is(err, CodeCyclic) {
		t.Fatal("Is should match through wrapping")
	}
}

func TestWithContextChaining(t *testing.T) {
	err := New(CodeAmbiguous, "multiple providers", nil).
		WithContext("context_type", "LocationContext").
		WithContext("candidates", 2).
		WithRecoverable(false)

	if err.Context["context_type"] != "LocationContext" {
		t.Fatal("context value lost")
	}
	if err.Recoverable {
		t.Fatal("recoverable should be false")
	}
	if err.RecoverableString() != "false" {
		t.Fatal("unexpected recoverable string")
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Fatal("nil in, nil out")
	}
	plain := fmt.Errorf("plain failure")
	wrapped := AsError(plain)
	if wrapped.Code != CodeInternal {
		t.Fatalf("expected internal wrap, got %s", wrapped.Code)
	}
	typed := New(CodeStalled, "no runnable step", nil)
	if AsError(typed) != typed {
		t.Fatal("typed error should pass through")
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New(CodeValidation, "field type mismatch", fmt.Errorf("city: want string")).
		WithContext("type", "LocationContext")

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("marshal: %v", jerr)
	}
	var decoded map[string]any
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatalf("unmarshal: %v", jerr)
	}
	if decoded["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code field: %v", decoded["code"])
	}
	if !strings.Contains(decoded["cause"].(string), "city") {
		t.Fatalf("cause missing: %v", decoded["cause"])
	}
}
