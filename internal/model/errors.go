package model

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP statuses; anything else is a store failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrProductNotFound  = kindError{ErrNotFound, "product not found"}
	ErrCartNotFound     = kindError{ErrNotFound, "cart not found"}
	ErrCartItemNotFound = kindError{ErrNotFound, "item not found in cart"}
	ErrOrderNotFound    = kindError{ErrNotFound, "order not found"}

	ErrInsufficientStock   = kindError{ErrConflict, "insufficient stock"}
	ErrOutOfStock          = kindError{ErrConflict, "product is out of stock"}
	ErrOrderNotCancellable = kindError{ErrConflict, "cannot cancel order that has been shipped or delivered"}
	ErrInvalidTransition   = kindError{ErrConflict, "invalid status transition"}
	ErrUserExists          = kindError{ErrConflict, "user already exists"}

	ErrInvalidCredentials = kindError{ErrUnauthorized, "invalid credentials"}
)

type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }
func (e kindError) Unwrap() error { return e.kind }

// Invalid builds a validation error carrying a user-facing message.
func Invalid(format string, args ...any) error {
	return kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Kind returns the error kind err belongs to, or nil for anything else
// (store and infrastructure failures).
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
