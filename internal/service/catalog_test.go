package service

import (
	"context"
	"testing"

	"produce-ledger/internal/models"
	"produce-ledger/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookupFallsBackToZero(t *testing.T) {
	grid := store.NewMemoryGrid()
	grid.Seed(models.TableProduce, [][]string{
		{"Item", "Unit_Price"},
		{"tomato", "2.5"},
		{"kale", "abc"},
		{"leek", "-1"},
		{"onion"},
		{"", "9.99"},
		{"carrot", "0.333"},
	})
	catalog := NewCatalog(store.NewStore(grid))

	prices, err := catalog.Lookup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"tomato": 250,
		"kale":   0,
		"leek":   0,
		"onion":  0,
		"carrot": 33,
	}, prices)
}

func TestCatalogSeesPriceEditsImmediately(t *testing.T) {
	ctx := context.Background()
	grid := store.NewMemoryGrid()
	seedCatalog(grid, map[string]string{"tomato": "2.50"})
	catalog := NewCatalog(store.NewStore(grid))

	prices, err := catalog.Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250), prices["tomato"])

	require.NoError(t, grid.UpdateRange(ctx, models.TableProduce, 2, 2, [][]string{{"tomato", "3.00"}}))

	prices, err = catalog.Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), prices["tomato"])
}

func TestCatalogUpsert(t *testing.T) {
	ctx := context.Background()
	grid := store.NewMemoryGrid()
	catalog := NewCatalog(store.NewStore(grid))

	_, err := catalog.Upsert(ctx, "tomato", 250)
	require.NoError(t, err)
	_, err = catalog.Upsert(ctx, "kale", 100)
	require.NoError(t, err)
	_, err = catalog.Upsert(ctx, "tomato", 300)
	require.NoError(t, err)

	items, err := catalog.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ProduceItem{
		{Item: "kale", UnitPrice: 100},
		{Item: "tomato", UnitPrice: 300},
	}, items)

	rows, err := grid.ReadAll(ctx, models.TableProduce)
	require.NoError(t, err)
	assert.Equal(t, [][]string{models.ProduceHeader, {"tomato", "3.00"}, {"kale", "1.00"}}, rows)
}

func TestCatalogUpsertValidation(t *testing.T) {
	catalog := NewCatalog(store.NewStore(store.NewMemoryGrid()))

	_, err := catalog.Upsert(context.Background(), " ", 100)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = catalog.Upsert(context.Background(), "tomato", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
