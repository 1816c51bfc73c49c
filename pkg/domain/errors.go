package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that carry a fixed, human readable message.
type ErrorKind string

// Error kinds mapped from remote status codes.
const (
	ErrorKindConflict     ErrorKind = "conflict"
	ErrorKindUnauthorized ErrorKind = "unauthorized"
	ErrorKindValidation   ErrorKind = "validation"
)

// Error is a domain failure surfaced to callers with a fixed message. The
// underlying transport error stays reachable through Unwrap.
type Error struct {
	Kind    ErrorKind
	Entity  EntityType
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind and entity, so wrapped instances
// compare equal to the exported sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Entity == t.Entity
}

// WithCause returns a copy of e carrying the transport error that caused it.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Sentinel domain errors.
var (
	ErrProductInUse       = &Error{Kind: ErrorKindConflict, Entity: EntityProduct, Message: "Product is in use."}
	ErrRecipeInUse        = &Error{Kind: ErrorKindConflict, Entity: EntityRecipe, Message: "Recipe is in use."}
	ErrUserExists         = &Error{Kind: ErrorKindConflict, Entity: EntityUser, Message: "User with this name already exists."}
	ErrInvalidCredentials = &Error{Kind: ErrorKindUnauthorized, Entity: EntityUser, Message: "Invalid name or password"}
	ErrInvalidOldPassword = &Error{Kind: ErrorKindValidation, Entity: EntityUser, Message: "Invalid old password"}
)

// StatusError is returned by the remote API adapter for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid response %q (code: %d)", e.Body, e.StatusCode)
}

// StatusCode extracts the HTTP status from err, or 0 when err did not come
// from a remote response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
