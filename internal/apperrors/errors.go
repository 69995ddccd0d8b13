// Package apperrors defines the error taxonomy shared by the lobby core and the transport.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindInternal is used for anything that is not a domain error.
	KindInternal Kind = "INTERNAL"

	// KindValidation marks malformed or empty input, e.g. a blank player name.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks an unknown lobby or player id.
	KindNotFound Kind = "NOT_FOUND"
	// KindAuthorization marks a non-creator attempting a creator-only command.
	KindAuthorization Kind = "AUTHORIZATION"
	// KindState marks a command that is invalid for the lobby's current state.
	KindState Kind = "STATE"
	// KindInsufficientData marks round generation on an empty message pool.
	KindInsufficientData Kind = "INSUFFICIENT_DATA"
)

// Error is a domain error carrying its Kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same Kind, so callers can use
// errors.Is(err, apperrors.ErrNotFound) style sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons. They match any error of the same Kind.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAuthorization    = &Error{Kind: KindAuthorization}
	ErrState            = &Error{Kind: KindState}
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) error { return newf(KindValidation, format, args...) }

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error { return newf(KindNotFound, format, args...) }

// Authorization returns a KindAuthorization error.
func Authorization(format string, args ...any) error {
	return newf(KindAuthorization, format, args...)
}

// State returns a KindState error.
func State(format string, args ...any) error { return newf(KindState, format, args...) }

// InsufficientData returns a KindInsufficientData error.
func InsufficientData(format string, args ...any) error {
	return newf(KindInsufficientData, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the text that may be shown to a client. Internal errors are
// replaced by a generic message so implementation details never leak.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
