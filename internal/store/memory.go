package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryGrid is an in-process Grid with the same row semantics as a
// spreadsheet: reads drop trailing empty cells and rows, deletes renumber.
type MemoryGrid struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

// NewMemoryGrid creates an empty in-memory grid
func NewMemoryGrid() *MemoryGrid {
	return &MemoryGrid{tables: make(map[string][][]string)}
}

// Seed replaces the contents of a table, creating it if needed
func (g *MemoryGrid) Seed(name string, rows [][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tables[name] = cloneRows(rows)
}

// ListTables enumerates table names in sorted order
func (g *MemoryGrid) ListTables(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.tables))
	for name := range g.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateTable adds an empty table
func (g *MemoryGrid) CreateTable(ctx context.Context, name string, cols int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tables[name]; ok {
		return fmt.Errorf("table %q already exists", name)
	}
	g.tables[name] = [][]string{}
	return nil
}

// ReadAll returns a copy of the populated rows
func (g *MemoryGrid) ReadAll(ctx context.Context, name string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	rows, ok := g.tables[name]
	if !ok {
		return nil, ErrTableNotFound
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, trimTrailing(append([]string(nil), r...)))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// AppendRow writes row after the last populated row
func (g *MemoryGrid) AppendRow(ctx context.Context, name string, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, ok := g.tables[name]
	if !ok {
		return ErrTableNotFound
	}
	for len(rows) > 0 && len(trimTrailing(rows[len(rows)-1])) == 0 {
		rows = rows[:len(rows)-1]
	}
	g.tables[name] = append(rows, append([]string(nil), row...))
	return nil
}

// InsertRow inserts row at position at (1..len+1)
func (g *MemoryGrid) InsertRow(ctx context.Context, name string, at int, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, ok := g.tables[name]
	if !ok {
		return ErrTableNotFound
	}
	if at < 1 || at > len(rows)+1 {
		return fmt.Errorf("%w: insert at row %d of %d", ErrInvalidRange, at, len(rows))
	}

	rows = append(rows, nil)
	copy(rows[at:], rows[at-1:])
	rows[at-1] = append([]string(nil), row...)
	g.tables[name] = rows
	return nil
}

// DeleteRow removes the row at position at, shifting the rest up
func (g *MemoryGrid) DeleteRow(ctx context.Context, name string, at int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, ok := g.tables[name]
	if !ok {
		return ErrTableNotFound
	}
	if at < 1 || at > len(rows) {
		return fmt.Errorf("%w: delete row %d of %d", ErrInvalidRange, at, len(rows))
	}
	g.tables[name] = append(rows[:at-1], rows[at:]...)
	return nil
}

// UpdateRange overwrites rows startRow..endRow, growing the table if needed
func (g *MemoryGrid) UpdateRange(ctx context.Context, name string, startRow, endRow int, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.tables[name]
	if !ok {
		return ErrTableNotFound
	}
	if startRow < 1 || endRow < startRow || len(rows) != endRow-startRow+1 {
		return fmt.Errorf("%w: rows %d..%d with %d values", ErrInvalidRange, startRow, endRow, len(rows))
	}

	for len(existing) < endRow {
		existing = append(existing, []string{})
	}
	for i, r := range rows {
		target := existing[startRow-1+i]
		for len(target) < len(r) {
			target = append(target, "")
		}
		copy(target, r)
		existing[startRow-1+i] = target
	}
	g.tables[name] = existing
	return nil
}

func trimTrailing(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
