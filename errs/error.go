//----------------------------------------------------------------------
// This file is part of friendly.
// Copyright (C) 2011-present, Bernd Fix  >Y<
//
// friendly is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// friendly is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Package errs defines the error taxonomy shared by every package in this
// module: precondition violations, search exhaustion, internal invariant
// failures and cooperative cancellation.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel base errors. Use errors.Is(err, errs.ErrExhaustion) etc. to
// classify a returned error; use New to attach context.
var (
	// ErrPreconditionViolated reports that the caller handed the factoring
	// core an N it promised not to: prime, a perfect power, a number with
	// a factor below the factor-base bound, or a multiplier search that
	// could not find any k with kN ≡ 1 (mod 8).
	ErrPreconditionViolated = errors.New("precondition violated")

	// ErrExhaustion reports that sieving/retry rounds ran out before a
	// non-trivial congruence of squares was found. Recoverable: the
	// caller may raise parameters (larger factor base, larger sieve
	// interval) and retry.
	ErrExhaustion = errors.New("ran out of squares")

	// ErrInternalInvariant reports that an invariant the algorithm
	// depends on for correctness did not hold. This always indicates a
	// bug, not bad input.
	ErrInternalInvariant = errors.New("internal invariant violated")

	// ErrCancelled reports cooperative cancellation via Session.Stop or
	// context cancellation.
	ErrCancelled = errors.New("cancelled")
)

// Error wraps a base (sentinel) error with call-specific context. Unwrap
// preserves errors.Is/errors.As compatibility with the sentinels above.
type Error struct {
	Err error  // base error, usually one of the sentinels above
	Ctx string // human readable context
}

// New creates an Error wrapping base with a formatted context string.
func New(base error, format string, args ...interface{}) *Error {
	return &Error{Err: base, Ctx: fmt.Sprintf(format, args...)}
}

// Unwrap exposes the wrapped base error to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error renders a human-readable description.
func (e *Error) Error() string {
	if e.Ctx == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Ctx
}

// Precondition wraps ErrPreconditionViolated with context.
func Precondition(format string, args ...interface{}) *Error {
	return New(ErrPreconditionViolated, format, args...)
}

// Exhausted wraps ErrExhaustion with context.
func Exhausted(format string, args ...interface{}) *Error {
	return New(ErrExhaustion, format, args...)
}

// Invariant wraps ErrInternalInvariant with context.
func Invariant(format string, args ...interface{}) *Error {
	return New(ErrInternalInvariant, format, args...)
}

// Cancelled wraps ErrCancelled with context.
func Cancelled(format string, args ...interface{}) *Error {
	return New(ErrCancelled, format, args...)
}
