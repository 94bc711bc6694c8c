// Package apperr defines the error taxonomy shared by the match core and the
// HTTP layer. Every error carries a stable Kind the frontend can branch on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for callers.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindNotAuthorized     Kind = "NotAuthorized"
	KindInvalidTransition Kind = "InvalidTransition"
	KindEscrowConflict    Kind = "EscrowConflict"
	KindEscrowTerminal    Kind = "EscrowTerminal"
	KindPayment           Kind = "PaymentError"
	KindNotFound          Kind = "NotFound"
	KindUnauthenticated   Kind = "Unauthenticated"
	KindInternal          Kind = "Internal"
)

// Error is a categorized application error. Message is safe to show to users;
// Err holds the underlying cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind carrying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotAuthorized(format string, args ...any) *Error {
	return New(KindNotAuthorized, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(KindInvalidTransition, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind. Uses errors.As so wrapped
// errors match.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// PublicMessage returns the user-facing message for err. Errors that are not
// categorized get a generic message so internals never leak.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Message
	}
	return "internal error"
}
