// Package apperr defines the error kinds surfaced to API clients.
//
// Every error created here carries a short human readable message and a
// machine checkable Kind. Kinds survive wrapping with github.com/pkg/errors
// and fmt.Errorf("%w").
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Validation          Kind = "validation_error"
	NotFound            Kind = "not_found"
	NoActiveContacts    Kind = "no_active_contacts"
	UpstreamUnavailable Kind = "upstream_unavailable"
	Internal            Kind = "internal_error"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) error {
	return New(Validation, format, args...)
}

func NotFoundf(format string, args ...interface{}) error {
	return New(NotFound, format, args...)
}

func NoActiveContactsf(format string, args ...interface{}) error {
	return New(NoActiveContacts, format, args...)
}

// Upstream marks err as a failure of a third party provider.
func Upstream(err error, format string, args ...interface{}) error {
	return &Error{Kind: UpstreamUnavailable, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client facing message for err. Errors without a kind
// never leak their internals.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return "Internal server error"
}
