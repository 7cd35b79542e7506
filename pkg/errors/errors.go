// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling for the Telos orchestration core.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Telos errors for monitoring and failure policy.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeRegistration indicates a capability could not be registered,
	// typically because its id is already taken.
	CodeRegistration ErrorCode = "REGISTRATION_ERROR"

	// CodeNotFound indicates a capability or context type was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeValidation indicates a context payload failed its schema check.
	CodeValidation ErrorCode = "VALIDATION_ERROR"

	// CodeUnsatisfiable indicates a required context type has no provider.
	CodeUnsatisfiable ErrorCode = "UNSATISFIABLE"

	// CodeAmbiguous indicates multiple providers exist and no tie-break
	// policy is configured.
	CodeAmbiguous ErrorCode = "AMBIGUOUS"

	// CodeCyclic indicates a cycle in the capability dependency graph.
	CodeCyclic ErrorCode = "CYCLIC"

	// CodeStalled indicates the reactive loop found no eligible next step
	// while the goal remains unmet.
	CodeStalled ErrorCode = "STALLED"

	// CodeCapability indicates a capability failed during execution.
	CodeCapability ErrorCode = "CAPABILITY_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeStepBudget indicates the reactive step bound was exhausted.
	CodeStepBudget ErrorCode = "STEP_BUDGET_EXCEEDED"
)

// Error is a typed error with orchestration context attached.
// It implements the error interface and supports errors.As traversal.
type Error struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	payload := struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Cause       string         `json:"cause,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
		Recoverable bool           `json:"recoverable"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Context:     e.Context,
		Recoverable: e.Recoverable,
	}
	if e.Err != nil {
		payload.Cause = e.Err.Error()
	}
	return json.Marshal(payload)
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]any),
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns CodeInternal for non-Telos errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var te *Error
	if stderrors.As(err, &te) {
		return te.Code
	}
	return CodeInternal
}

// Is reports whether the error chain contains a Telos error with the code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// AsError converts err to *Error, wrapping unknown errors as internal.
// Returns nil for nil input.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if stderrors.As(err, &te) {
		return te
	}
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" for observability attributes.
func (e *Error) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
