package store

import (
	"context"
	"strings"
)

// Row is one data row of a table together with its position at read time
type Row struct {
	Number  int
	Values  []string
	columns map[string]int
}

// Get returns the cell under column, or "" when the column is unknown or the row is short
func (r Row) Get(column string) string {
	i, ok := r.columns[strings.ToLower(column)]
	if !ok || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Index maps primary-key values to rows as of a single scan.
// Row numbers are only valid until the next structural change of the table.
type Index struct {
	Columns map[string]int
	Rows    map[string]Row
}

// Lookup returns the row stored under key
func (idx *Index) Lookup(key string) (Row, bool) {
	r, ok := idx.Rows[key]
	return r, ok
}

// IndexBy scans the table once and keys every data row by its keyColumn value.
// Missing cells read as "", and a later row with a duplicate key replaces an earlier one.
func IndexBy(ctx context.Context, t *Table, keyColumn string) (*Index, error) {
	columns, rows, err := readRows(ctx, t)
	if err != nil {
		return nil, err
	}

	idx := &Index{Columns: columns, Rows: make(map[string]Row, len(rows))}
	for _, r := range rows {
		idx.Rows[r.Get(keyColumn)] = r
	}
	return idx, nil
}

// Records reads the whole table and returns its data rows in table order
func Records(ctx context.Context, t *Table) ([]Row, error) {
	_, rows, err := readRows(ctx, t)
	return rows, err
}

func readRows(ctx context.Context, t *Table) (map[string]int, []Row, error) {
	all, err := t.ReadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return map[string]int{}, nil, nil
	}

	columns := columnMap(all[0])
	rows := make([]Row, 0, len(all)-1)
	for i, values := range all[1:] {
		rows = append(rows, Row{
			Number:  i + 2,
			Values:  values,
			columns: columns,
		})
	}
	return columns, rows, nil
}

// columnMap builds column name -> position from a header row.
// Names are trimmed and lower-cased, matching the case-insensitive header check.
func columnMap(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return columns
}
