// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package errors provides the closed set of structured error kinds used
// throughout the bed allocation and call-session engine.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// Kind is the closed set of error kinds the engine can surface. It is a
// small enum, not a type hierarchy: every layer (registry, store,
// engine, service, session, HTTP) classifies its failures into one of
// these before returning.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindNoCapacity  Kind = "no_capacity"
	KindExpired     Kind = "expired"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// ShelterError is the structured error type returned from every engine
// operation. HTTP handlers translate it to the wire error shape; the
// call session translates it to an apology phrase.
type ShelterError struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

func (e *ShelterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ShelterError) Unwrap() error {
	return e.Cause
}

// Is matches on Kind, so callers can do errors.Is(err, errors.New(errors.KindConflict, "")).
func (e *ShelterError) Is(target error) bool {
	t, ok := target.(*ShelterError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsRetryable reports whether the bounded-retry caller (the allocation
// engine, or a call session's single tool retry) should try again.
func (e *ShelterError) IsRetryable() bool {
	return e.Retryable
}

func retryableFor(kind Kind) bool {
	switch kind {
	case KindConflict, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// New creates a ShelterError of the given kind.
func New(kind Kind, message string) *ShelterError {
	return &ShelterError{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: retryableFor(kind),
	}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *ShelterError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a new ShelterError of the given kind.
func Wrap(kind Kind, message string, cause error) *ShelterError {
	err := New(kind, message)
	err.Cause = cause
	return err
}

// Validation builds a field-scoped validation error.
func Validation(field, message string) *ShelterError {
	err := New(KindValidation, message)
	err.Field = field
	return err
}

// HTTPStatus maps a Kind to the HTTP status code spec.md §6 assigns it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindNoCapacity:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As extracts a *ShelterError from err, classifying unrecognized errors
// as internal. Handlers and the session's apology logic use this so
// they never have to type-switch on raw errors.
func As(err error) *ShelterError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*ShelterError); ok {
		return se
	}
	return Wrap(KindInternal, err.Error(), err)
}
