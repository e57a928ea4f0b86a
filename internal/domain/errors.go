package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures the auth and chat paths can report.
type Kind string

const (
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindAccountDisabled    Kind = "ACCOUNT_DISABLED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindPersistence        Kind = "PERSISTENCE_FAILURE"
	KindInvalid            Kind = "INVALID_REQUEST"
	KindConflict           Kind = "CONFLICT"
)

// Error is a classified error with a client-safe message. Two Errors match
// under errors.Is when their kinds are equal.
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

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// HTTPStatus maps the kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindAccountDisabled, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) Code() string { return string(e.Kind) }

// Detail is the message shown to clients. Wrapped causes are never exposed.
func (e *Error) Detail() string { return e.Message }

// Sentinels for errors.Is checks and default messages.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Could not validate credentials"}
	ErrAccountDisabled    = &Error{Kind: KindAccountDisabled, Message: "Inactive user"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "You do not have permission to access this resource"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "Resource not found"}
	ErrPersistence        = &Error{Kind: KindPersistence, Message: "Internal server error"}
	ErrInvalid            = &Error{Kind: KindInvalid, Message: "Invalid request"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "Resource already exists"}
)

// E builds an Error of kind with a specific message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Persistence wraps a storage failure.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: ErrPersistence.Message, Err: err}
}

// KindOf returns the kind of err, or "" if it is not a classified error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
