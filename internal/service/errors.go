package service

import (
	"errors"

	"produce-ledger/internal/store"
)

var (
	// ErrNotFound is returned when a key is absent from its table
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor may not mutate the record
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidInput is returned for unparsable or missing request fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrUsernameTaken is returned when registering an existing username
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned when authentication fails
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store errors surfaced unchanged through the service layer
var (
	ErrStoreUnavailable = store.ErrStoreUnavailable
	ErrStaleRowConflict = store.ErrStaleRowConflict
)

// failureReason labels an error for the failure metrics
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrStaleRowConflict):
		return "stale_row"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_error"
	default:
		return "internal"
	}
}
