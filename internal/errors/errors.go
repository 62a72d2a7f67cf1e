package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that must react differently to each
// outcome (HTTP status mapping, relay rejection).
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotFound
	KindInvalidInput
	KindAlreadyExists
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindAlreadyExists:
		return "already_exists"
	default:
		return "internal"
	}
}

// Common error values for the identity service
var (
	// Authentication errors. Every authentication failure collapses to
	// ErrUnauthorized before it reaches a client.
	ErrUnauthorized       = errors.New("authentication failed")
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// Directory errors
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("email already exists")
	ErrReceiverNotFound = errors.New("invalid message recipient")

	// Input errors
	ErrMissingFields = errors.New("missing required information")
	ErrInvalidEmail  = errors.New("please provide a valid email")
	ErrEmptyPassword = errors.New("password is required")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Error carries a Kind alongside the operation that failed and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("[%s] %s", e.Op, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a kinded error. A nil err is replaced by the sentinel for the kind.
func E(kind Kind, op string, err error) error {
	if err == nil {
		err = sentinel(kind)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Unauthorized returns the opaque authentication failure for op.
func Unauthorized(op string) error {
	return E(KindUnauthorized, op, ErrUnauthorized)
}

// KindOf returns the Kind of the first *Error in err's chain, KindInternal
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Public returns the message that may be shown to a client for err.
// Unauthorized and internal failures never expose their cause; a failed
// password login reports the single invalid credentials message.
func Public(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ErrInternal.Error()
	}
	switch e.Kind {
	case KindUnauthorized:
		if errors.Is(e.Err, ErrInvalidCredentials) {
			return ErrInvalidCredentials.Error()
		}
		return ErrUnauthorized.Error()
	case KindInternal:
		return ErrInternal.Error()
	default:
		return e.Err.Error()
	}
}

func sentinel(kind Kind) error {
	switch kind {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotFound:
		return ErrNotFound
	case KindInvalidInput:
		return ErrMissingFields
	case KindAlreadyExists:
		return ErrUserExists
	default:
		return ErrInternal
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
