package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGridRowSemantics(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGrid()

	require.NoError(t, g.CreateTable(ctx, "t", 2))
	require.NoError(t, g.AppendRow(ctx, "t", []string{"h1", "h2"}))
	require.NoError(t, g.AppendRow(ctx, "t", []string{"a", ""}))
	require.NoError(t, g.AppendRow(ctx, "t", []string{"b", "2"}))

	rows, err := g.ReadAll(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h1", "h2"}, {"a"}, {"b", "2"}}, rows)

	require.NoError(t, g.DeleteRow(ctx, "t", 2))
	require.NoError(t, g.InsertRow(ctx, "t", 2, []string{"c", "3"}))
	require.NoError(t, g.UpdateRange(ctx, "t", 4, 4, [][]string{{"d", "4", "x"}}))

	rows, err = g.ReadAll(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h1", "h2"}, {"c", "3"}, {"b", "2"}, {"d", "4", "x"}}, rows)
}

func TestMemoryGridErrors(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGrid()

	_, err := g.ReadAll(ctx, "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	g.Seed("t", [][]string{{"h"}})
	assert.ErrorIs(t, g.DeleteRow(ctx, "t", 2), ErrInvalidRange)
	assert.ErrorIs(t, g.InsertRow(ctx, "t", 3, []string{"x"}), ErrInvalidRange)
	assert.ErrorIs(t, g.UpdateRange(ctx, "t", 2, 1, nil), ErrInvalidRange)
	assert.Error(t, g.CreateTable(ctx, "t", 1))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = g.ReadAll(cancelled, "t")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryGridReadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGrid()
	g.Seed("t", [][]string{{"h"}, {"v"}})

	rows, err := g.ReadAll(ctx, "t")
	require.NoError(t, err)
	rows[1][0] = "mutated"

	rows, err = g.ReadAll(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "v", rows[1][0])
}
