// Copyright 2026 © The Telos Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"reflect"
	stdtesting "testing"

	"github.com/jllopis/telos/pkg/errors"
)

// Assertions provides fatal assertion helpers for engine tests.
type Assertions struct {
	t *stdtesting.T
}

// Require creates an assertions helper bound to t.
func Require(t *stdtesting.T) *Assertions {
	return &Assertions{t: t}
}

// NoError fails the test immediately when err is non-nil.
func (a *Assertions) NoError(err error, msg string) {
	a.t.Helper()
	if err != nil {
		a.t.Fatalf("%s: %v", msg, err)
	}
}

// ErrorCode fails the test unless err carries the given code.
func (a *Assertions) ErrorCode(err error, code errors.ErrorCode, msg string) {
	a.t.Helper()
	if !errors.Is(err, code) {
		a.t.Fatalf("%s: want code %s, got %v", msg, code, err)
	}
}

// Equal fails the test unless want and got are deeply equal.
func (a *Assertions) Equal(want, got any, msg string) {
	a.t.Helper()
	if !reflect.DeepEqual(want, got) {
		a.t.Fatalf("%s: want %v, got %v", msg, want, got)
	}
}

// True fails the test unless cond holds.
func (a *Assertions) True(cond bool, msg string) {
	a.t.Helper()
	if !cond {
		a.t.Fatal(msg)
	}
}
