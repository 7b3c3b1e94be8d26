package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the remote grid is unreachable or
	// rejects a request (rate limit, auth failure, malformed range).
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrStaleRowConflict is returned when a positional write finds that the
	// target row no longer holds the record it was indexed for.
	ErrStaleRowConflict = errors.New("row changed since it was indexed")

	// ErrTableNotFound is returned by grids for operations on unknown tables.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidRange is returned for row ranges that cannot address the table.
	ErrInvalidRange = errors.New("invalid row range")
)

// OpError wraps a grid failure with the operation and table involved
type OpError struct {
	Op    string
	Table string
	Err   error
}

// Error implements the error interface
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error
func (e *OpError) Unwrap() error {
	return e.Err
}

func wrapOp(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return &OpError{Op: op, Table: table, Err: err}
}
