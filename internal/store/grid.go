package store

import "context"

// Grid is the minimal surface of a remote grid-of-cells resource.
// Row numbers are 1-based; row 1 holds the header of a table.
// Deleting a row shifts every row below it up by one.
type Grid interface {
	// ListTables enumerates the existing table names
	ListTables(ctx context.Context) ([]string, error)

	// CreateTable adds an empty named table sized for cols columns
	CreateTable(ctx context.Context, name string, cols int) error

	// ReadAll returns every populated row as text, header included
	ReadAll(ctx context.Context, name string) ([][]string, error)

	// AppendRow writes row after the last populated row
	AppendRow(ctx context.Context, name string, row []string) error

	// InsertRow inserts row at position at, pushing existing rows down
	InsertRow(ctx context.Context, name string, at int, row []string) error

	// DeleteRow removes the row at position at
	DeleteRow(ctx context.Context, name string, at int) error

	// UpdateRange overwrites rows startRow..endRow (inclusive) starting at column A
	UpdateRange(ctx context.Context, name string, startRow, endRow int, rows [][]string) error
}
