package service

import (
	"errors"
	"fmt"

	"netbanking/internal/repository"
	"netbanking/internal/validation"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindBusiness
	KindNotFound
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBusiness:
		return "business"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is what every service method returns on failure. Message is safe to
// show to the client; Err keeps the underlying cause for logs.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalErr(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

const (
	msgInsufficient     = "Insufficient balance"
	msgAccountNotFound  = "Account not found"
	msgAccountInactive  = "Account is not active"
	msgConcurrentUpdate = "Account was modified concurrently, please retry"
)

// KindOf reports the kind of err, KindInternal for anything unrecognised.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// asServiceError normalizes errors coming out of validation, repositories
// and transactions. fallback is the client message for unexpected failures.
func asServiceError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	var ve *validation.Error
	if errors.As(err, &ve) {
		return &Error{Kind: KindValidation, Message: ve.Message, Err: err}
	}
	switch {
	case errors.Is(err, repository.ErrOptimisticLock):
		return &Error{Kind: KindConflict, Message: msgConcurrentUpdate, Err: err}
	case errors.Is(err, repository.ErrAccountNotFound):
		return &Error{Kind: KindNotFound, Message: msgAccountNotFound, Err: err}
	}
	return internalErr(fallback, err)
}
