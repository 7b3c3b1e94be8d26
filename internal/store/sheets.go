package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	// defaultSheetRows is the initial row count of a newly created worksheet
	defaultSheetRows = 1000

	valueInputRaw = "RAW"
)

// SheetsGrid implements Grid on top of a Google Sheets spreadsheet.
// Each worksheet is one table.
type SheetsGrid struct {
	svc           *sheets.Service
	spreadsheetID string

	mu       sync.RWMutex
	sheetIDs map[string]int64
}

// NewSheetsGrid creates a Sheets client authorized with a service account JSON key
func NewSheetsGrid(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*SheetsGrid, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsGrid{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// ListTables enumerates worksheet titles and refreshes the sheet id cache
func (g *SheetsGrid) ListTables(ctx context.Context) ([]string, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}

	ids := make(map[string]int64, len(ss.Sheets))
	names := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
		names = append(names, sh.Properties.Title)
	}

	g.mu.Lock()
	g.sheetIDs = ids
	g.mu.Unlock()

	return names, nil
}

// CreateTable adds a worksheet sized for cols columns
func (g *SheetsGrid) CreateTable(ctx context.Context, name string, cols int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: name,
					GridProperties: &sheets.GridProperties{
						RowCount:    defaultSheetRows,
						ColumnCount: int64(cols),
					},
				},
			},
		}},
	}

	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		g.mu.Lock()
		g.sheetIDs[name] = resp.Replies[0].AddSheet.Properties.SheetId
		g.mu.Unlock()
	}
	return nil
}

// ReadAll returns the formatted text of every populated cell
func (g *SheetsGrid) ReadAll(ctx context.Context, name string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteSheet(name)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get values: %w", err)
	}

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

// AppendRow appends row after the last populated row of the worksheet
func (g *SheetsGrid) AppendRow(ctx context.Context, name string, row []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(row)}}

	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, quoteSheet(name)+"!A1", vr).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append values: %w", err)
	}
	return nil
}

// InsertRow inserts an empty row at position at and fills it with row
func (g *SheetsGrid) InsertRow(ctx context.Context, name string, at int, row []string) error {
	sheetID, err := g.sheetID(ctx, name)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: rowRange(sheetID, at),
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("insert row %d: %w", at, err)
	}

	return g.UpdateRange(ctx, name, at, at, [][]string{row})
}

// DeleteRow removes the row at position at
func (g *SheetsGrid) DeleteRow(ctx context.Context, name string, at int) error {
	sheetID, err := g.sheetID(ctx, name)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: rowRange(sheetID, at),
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", at, err)
	}
	return nil
}

// UpdateRange overwrites the rectangle A{startRow}:{col}{endRow}
func (g *SheetsGrid) UpdateRange(ctx context.Context, name string, startRow, endRow int, rows [][]string) error {
	width := 0
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = toCells(r)
		if len(r) > width {
			width = len(r)
		}
	}

	rng := a1Range(name, startRow, endRow, width)
	vr := &sheets.ValueRange{Range: rng, Values: values}

	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// sheetID resolves a worksheet title to its numeric id, refreshing the cache once on a miss
func (g *SheetsGrid) sheetID(ctx context.Context, name string) (int64, error) {
	g.mu.RLock()
	id, ok := g.sheetIDs[name]
	g.mu.RUnlock()
	if ok {
		return id, nil
	}

	if _, err := g.ListTables(ctx); err != nil {
		return 0, err
	}

	g.mu.RLock()
	id, ok = g.sheetIDs[name]
	g.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return id, nil
}

// rowRange addresses the single 1-based row at. Zero ids and offsets are
// valid here and must be sent explicitly.
func rowRange(sheetID int64, at int) *sheets.DimensionRange {
	return &sheets.DimensionRange{
		SheetId:         sheetID,
		Dimension:       "ROWS",
		StartIndex:      int64(at - 1),
		EndIndex:        int64(at),
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// quoteSheet quotes a worksheet title for A1 notation
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// a1Range renders rows startRow..endRow over width columns, e.g. 'orders'!A3:H3
func a1Range(name string, startRow, endRow, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(name), startRow, columnName(width), endRow)
}

// columnName converts a 1-based column number to its letter name (1 -> A, 27 -> AA)
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
