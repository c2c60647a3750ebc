package store

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by mutations submitted after Run has returned.
var ErrClosed = errors.New("store is closed")

// ErrorKind categorizes store errors. The HTTP layer maps kinds to status
// codes; nothing below it knows about HTTP.
type ErrorKind string

const (
	// KindNotFound indicates a missing identifier or field.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindUnauthorized indicates a missing or wrong bearer token.
	KindUnauthorized ErrorKind = "UNAUTHORIZED"

	// KindPersistence indicates the backing file could not be read or written.
	KindPersistence ErrorKind = "PERSISTENCE"
)

// Error is returned by all store operations.
type Error struct {
	Kind    ErrorKind
	Message string

	// ID is the record identifier involved, if any.
	ID string

	// Err is the underlying cause (auth.ErrUnauthorized, an I/O error).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a store error, or "" for other errors.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsNotFound reports whether err is a NotFound store error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnauthorized reports whether err is an Unauthorized store error.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsPersistence reports whether err is a Persistence store error.
func IsPersistence(err error) bool {
	return KindOf(err) == KindPersistence
}

// NewNotFoundError creates the error for an absent identifier.
func NewNotFoundError(id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Item with id '%s' does not exist.", id),
		ID:      id,
	}
}

// NewFieldNotFoundError creates the error for an absent field of a present record.
func NewFieldNotFoundError(id, field string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("field '%s' not found!", field),
		ID:      id,
	}
}

func newUnauthorizedError(err error) *Error {
	return &Error{Kind: KindUnauthorized, Message: "invalid or missing bearer token", Err: err}
}

func newPersistenceError(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}
