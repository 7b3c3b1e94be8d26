package store

import (
	"context"
	"fmt"
	"strings"

	"produce-ledger/internal/util"
)

// Table is a handle on one schema-checked table of the grid.
// Row numbers it accepts are 1-based and count the header as row 1.
type Table struct {
	name   string
	header []string
	store  *Store
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// Header returns a copy of the declared header
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// ReadAll returns every populated row, header included
func (t *Table) ReadAll(ctx context.Context) ([][]string, error) {
	var rows [][]string
	err := t.store.observe(ctx, "read_all", t.name, func(ctx context.Context) error {
		var err error
		rows, err = t.store.grid.ReadAll(ctx, t.name)
		return err
	})
	return rows, err
}

// Append adds row after the last populated row
func (t *Table) Append(ctx context.Context, row []string) error {
	return t.store.observe(ctx, "append_row", t.name, func(ctx context.Context) error {
		return t.store.grid.AppendRow(ctx, t.name, row)
	})
}

// OverwriteRange replaces rows startRow..endRow with rows in a single write
func (t *Table) OverwriteRange(ctx context.Context, startRow, endRow int, rows [][]string) error {
	if startRow < 1 || endRow < startRow || len(rows) != endRow-startRow+1 {
		return fmt.Errorf("%w: rows %d..%d with %d values", ErrInvalidRange, startRow, endRow, len(rows))
	}
	return t.store.observe(ctx, "update_range", t.name, func(ctx context.Context) error {
		return t.store.grid.UpdateRange(ctx, t.name, startRow, endRow, rows)
	})
}

// DeleteRow removes the row at rowNumber. Every row below moves up by one.
func (t *Table) DeleteRow(ctx context.Context, rowNumber int) error {
	if rowNumber < 1 {
		return fmt.Errorf("%w: row %d", ErrInvalidRange, rowNumber)
	}
	return t.store.observe(ctx, "delete_row", t.name, func(ctx context.Context) error {
		return t.store.grid.DeleteRow(ctx, t.name, rowNumber)
	})
}

// WithWriteLock runs fn while holding the table's single-writer lock.
// Any index taken inside fn stays valid for the positional writes made inside fn.
func (t *Table) WithWriteLock(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := t.store.lock(ctx, t.name)
	if err != nil {
		return fmt.Errorf("failed to lock table %s: %w", t.name, err)
	}
	defer release()

	return fn(ctx)
}

// OverwriteRowIfUnchanged replaces the data row at rowNumber with row, but only
// if the row currently there still equals expected.
func (t *Table) OverwriteRowIfUnchanged(ctx context.Context, rowNumber int, expected, row []string) error {
	if err := t.verifyRow(ctx, rowNumber, expected); err != nil {
		return err
	}
	return t.OverwriteRange(ctx, rowNumber, rowNumber, [][]string{row})
}

// DeleteRowIfUnchanged deletes the data row at rowNumber, but only if the row
// currently there still equals expected.
func (t *Table) DeleteRowIfUnchanged(ctx context.Context, rowNumber int, expected []string) error {
	if err := t.verifyRow(ctx, rowNumber, expected); err != nil {
		return err
	}
	return t.DeleteRow(ctx, rowNumber)
}

// verifyRow re-reads the table and compares the row at rowNumber with expected
func (t *Table) verifyRow(ctx context.Context, rowNumber int, expected []string) error {
	if rowNumber < 2 {
		return fmt.Errorf("%w: row %d is not a data row", ErrInvalidRange, rowNumber)
	}

	rows, err := t.ReadAll(ctx)
	if err != nil {
		return err
	}

	if rowNumber > len(rows) || !sameRow(rows[rowNumber-1], expected) {
		util.StaleRowConflictsTotal.WithLabelValues(t.name).Inc()
		return fmt.Errorf("%w: %s row %d", ErrStaleRowConflict, t.name, rowNumber)
	}
	return nil
}

// sameRow compares two raw rows ignoring trailing empty cells and surrounding whitespace
func sameRow(a, b []string) bool {
	a = trimTrailing(append([]string(nil), a...))
	b = trimTrailing(append([]string(nil), b...))
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}
