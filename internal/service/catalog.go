package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"produce-ledger/internal/models"
	"produce-ledger/internal/store"
	"produce-ledger/internal/util"

	"go.uber.org/zap"
)

// Catalog reads item prices from the produce table. Nothing is cached, so a
// price edited in the spreadsheet is visible to the next lookup.
type Catalog struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCatalog creates a new catalog
func NewCatalog(st *store.Store) *Catalog {
	return &Catalog{
		store:  st,
		logger: util.Named("catalog"),
	}
}

// Lookup builds the item -> unit price (cents) mapping from a fresh read.
// Missing, non-numeric or negative prices read as 0; rows without an item are skipped.
func (c *Catalog) Lookup(ctx context.Context) (map[string]int64, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Lookup")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CatalogLookupLatency.Observe(time.Since(start).Seconds())
	}()

	items, err := c.read(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	prices := make(map[string]int64, len(items))
	for _, it := range items {
		prices[it.Item] = it.UnitPrice
	}
	return prices, nil
}

// Items returns the catalog sorted by item name
func (c *Catalog) Items(ctx context.Context) ([]models.ProduceItem, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Items")
	defer span.End()

	prices, err := c.Lookup(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.ProduceItem, 0, len(prices))
	for name, price := range prices {
		items = append(items, models.ProduceItem{Item: name, UnitPrice: price})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Item < items[j].Item
	})
	return items, nil
}

// Upsert sets the price of item, appending a row for a new item
func (c *Catalog) Upsert(ctx context.Context, item string, unitPrice int64) (*models.ProduceItem, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Upsert")
	defer span.End()

	item = strings.TrimSpace(item)
	if item == "" {
		return nil, fmt.Errorf("%w: item is required", ErrInvalidInput)
	}
	if unitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price must not be negative", ErrInvalidInput)
	}

	t, err := c.store.EnsureTable(ctx, models.TableProduce, models.ProduceHeader)
	if err != nil {
		return nil, err
	}

	entry := &models.ProduceItem{Item: item, UnitPrice: unitPrice}
	err = t.WithWriteLock(ctx, func(ctx context.Context) error {
		idx, err := store.IndexBy(ctx, t, models.ColItem)
		if err != nil {
			return err
		}

		row, ok := idx.Lookup(item)
		if !ok {
			return t.Append(ctx, store.ProduceRow(entry))
		}
		return t.OverwriteRowIfUnchanged(ctx, row.Number, row.Values, store.ProduceRow(entry))
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to set price for %s: %w", item, err)
	}

	c.logger.Info("Catalog price set",
		zap.String("item", item),
		zap.String("unit_price", models.FormatPrice(unitPrice)))
	return entry, nil
}

func (c *Catalog) read(ctx context.Context) ([]models.ProduceItem, error) {
	t, err := c.store.EnsureTable(ctx, models.TableProduce, models.ProduceHeader)
	if err != nil {
		return nil, err
	}

	rows, err := store.Records(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	items := make([]models.ProduceItem, 0, len(rows))
	for _, r := range rows {
		it := store.ProduceFromRow(r)
		if it.Item == "" {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}
