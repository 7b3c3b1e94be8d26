package store

import (
	"context"
	"testing"

	"produce-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexByToleratesRaggedRows(t *testing.T) {
	tbl, _ := newSeededTable(t,
		[]string{"1", "apple", "3"},
		[]string{"2"},
		[]string{},
		[]string{"4", "plum", "7"},
	)

	idx, err := IndexBy(context.Background(), tbl, "id")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"id": 0, "name": 1, "qty": 2}, idx.Columns)

	pear, ok := idx.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, 3, pear.Number)
	assert.Equal(t, "", pear.Get("name"))
	assert.Equal(t, "", pear.Get("unknown"))

	blank, ok := idx.Lookup("")
	require.True(t, ok)
	assert.Equal(t, 4, blank.Number)

	plum, ok := idx.Lookup("4")
	require.True(t, ok)
	assert.Equal(t, 5, plum.Number)
	assert.Equal(t, "7", plum.Get("QTY"))
}

func TestIndexByLastDuplicateWins(t *testing.T) {
	tbl, _ := newSeededTable(t,
		[]string{"1", "first"},
		[]string{"1", "second"},
	)

	idx, err := IndexBy(context.Background(), tbl, "id")
	require.NoError(t, err)

	row, ok := idx.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, 3, row.Number)
	assert.Equal(t, "second", row.Get("name"))
}

func TestIndexByHeaderOnly(t *testing.T) {
	tbl, _ := newSeededTable(t)

	idx, err := IndexBy(context.Background(), tbl, "id")
	require.NoError(t, err)
	assert.Empty(t, idx.Rows)
	assert.Len(t, idx.Columns, 3)
}

func TestRecordsPreserveTableOrder(t *testing.T) {
	tbl, _ := newSeededTable(t, []string{"b"}, []string{"a"})

	rows, err := Records(context.Background(), tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].Get("id"))
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "a", rows[1].Get("id"))
}

func TestOrderRowRoundTrip(t *testing.T) {
	o := models.Order{
		OrderID:   "abc",
		Username:  "alice",
		Item:      "tomato",
		Quantity:  3,
		UnitPrice: 250,
		LineTotal: 750,
		CreatedAt: models.ParseTime("2024-05-01T12:00:00Z"),
		UpdatedAt: models.ParseTime("2024-05-02T12:00:00Z"),
	}

	row := OrderRow(&o)
	assert.Equal(t, []string{"abc", "alice", "tomato", "3", "2.50", "7.50", "2024-05-01T12:00:00Z", "2024-05-02T12:00:00Z"}, row)

	back := OrderFromRow(Row{Number: 2, Values: row, columns: columnMap(models.OrderHeader)})
	assert.Equal(t, o.OrderID, back.OrderID)
	assert.Equal(t, o.Quantity, back.Quantity)
	assert.Equal(t, o.LineTotal, back.LineTotal)
	assert.True(t, o.CreatedAt.Equal(back.CreatedAt))
}

func TestCustomerFromRowDefaultsRole(t *testing.T) {
	r := Row{Values: []string{"bob", "Bob"}, columns: columnMap(models.CustomerHeader)}

	c := CustomerFromRow(r)
	assert.Equal(t, "bob", c.Username)
	assert.Equal(t, models.RoleCustomer, c.Role)
}
