package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Handlers translate kinds into HTTP
// status codes; nothing else in the service layer knows about HTTP.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindInvalidCredentials
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is the structured error returned to callers.  Message is safe
// to show to clients; Err carries the internal cause for errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuthorization reports whether the kind belongs to the authorization
// family: bad credentials, disabled account, missing token, wrong role.
func (k Kind) IsAuthorization() bool {
	return k == KindInvalidCredentials || k == KindUnauthenticated || k == KindForbidden
}

// KindOf extracts the kind of err, or 0 for errors that did not come
// from this package.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// Internal causes, matched with errors.Is.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrBadPassword     = errors.New("password mismatch")
	ErrAccountDisabled = errors.New("account disabled")
	ErrBadAdminSecret  = errors.New("admin secret mismatch")
	ErrAlreadyBooked   = errors.New("already booked")
)

func validationError(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func notFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

func unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
