package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"produce-ledger/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Locker serializes writers across processes. Acquire blocks until the named
// lock is held or ctx is done; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Store wraps a Grid and hands out schema-checked table handles
type Store struct {
	grid   Grid
	locker Locker
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// Option configures a Store
type Option func(*Store)

// WithLocker adds a cross-process lock taken after the in-process one
func WithLocker(l Locker) Option {
	return func(s *Store) {
		s.locker = l
	}
}

// NewStore creates a store over the given grid
func NewStore(grid Grid, opts ...Option) *Store {
	s := &Store{
		grid:   grid,
		logger: util.Named("store"),
		locks:  make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTable makes sure the named table exists with header as its first row.
// A missing table is created. A first row that differs from header (compared
// case-insensitively) is replaced; data rows below are left alone. Creation
// and header repair run under the table's write lock.
func (s *Store) EnsureTable(ctx context.Context, name string, header []string) (*Table, error) {
	ctx, span := util.StartSpan(ctx, "Store.EnsureTable", attribute.String("table", name))
	defer span.End()

	t := &Table{
		name:   name,
		header: append([]string(nil), header...),
		store:  s,
	}

	ok, err := s.tableReady(ctx, t)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	if ok {
		return t, nil
	}

	err = t.WithWriteLock(ctx, func(ctx context.Context) error {
		return s.reconcile(ctx, t)
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return t, nil
}

// tableReady reports whether t exists with a matching header
func (s *Store) tableReady(ctx context.Context, t *Table) (bool, error) {
	exists, err := s.tableExists(ctx, t.name)
	if err != nil || !exists {
		return false, err
	}

	existing, err := s.firstRow(ctx, t)
	if err != nil {
		return false, err
	}
	return headerMatches(existing, t.header), nil
}

// reconcile creates t or rewrites its header. Callers hold the write lock;
// everything is re-read here since another writer may have fixed it already.
func (s *Store) reconcile(ctx context.Context, t *Table) error {
	exists, err := s.tableExists(ctx, t.name)
	if err != nil {
		return err
	}
	if !exists {
		return s.createTable(ctx, t)
	}

	existing, err := s.firstRow(ctx, t)
	if err != nil {
		return err
	}
	if headerMatches(existing, t.header) {
		return nil
	}

	s.logger.Warn("Header mismatch, resetting header row",
		zap.String("table", t.name),
		zap.Strings("found", existing),
		zap.Strings("declared", t.header))
	util.SchemaReconciliationsTotal.WithLabelValues(t.name).Inc()

	if len(existing) > 0 {
		if err := t.DeleteRow(ctx, 1); err != nil {
			return err
		}
	}
	return s.observe(ctx, "insert_row", t.name, func(ctx context.Context) error {
		return s.grid.InsertRow(ctx, t.name, 1, t.header)
	})
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var names []string
	err := s.observe(ctx, "list_tables", name, func(ctx context.Context) error {
		var err error
		names, err = s.grid.ListTables(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return containsString(names, name), nil
}

func (s *Store) firstRow(ctx context.Context, t *Table) ([]string, error) {
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return trimTrailing(rows[0]), nil
}

func (s *Store) createTable(ctx context.Context, t *Table) error {
	err := s.observe(ctx, "create_table", t.name, func(ctx context.Context) error {
		return s.grid.CreateTable(ctx, t.name, len(t.header))
	})
	if err != nil {
		return err
	}
	if err := t.Append(ctx, t.header); err != nil {
		return err
	}

	s.logger.Info("Table created", zap.String("table", t.name), zap.Strings("header", t.header))
	return nil
}

// lock takes the per-table write lock, then the cross-process lock if one is configured
func (s *Store) lock(ctx context.Context, table string) (func(), error) {
	start := time.Now()
	defer func() {
		util.TableLockWait.WithLabelValues(table).Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	sem, ok := s.locks[table]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[table] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	local := func() { <-sem }

	if s.locker == nil {
		return local, nil
	}

	release, err := s.locker.Acquire(ctx, "table:"+table)
	if err != nil {
		local()
		return nil, err
	}
	return func() {
		release()
		local()
	}, nil
}

// observe times, traces and wraps a single grid call
func (s *Store) observe(ctx context.Context, op, table string, fn func(ctx context.Context) error) error {
	ctx, span := util.StartSpan(ctx, "Store."+op, attribute.String("table", table))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	util.StoreRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		util.StoreErrorsTotal.WithLabelValues(op).Inc()
		util.RecordError(span, err)
		s.logger.Error("Grid operation failed",
			zap.String("op", op),
			zap.String("table", table),
			zap.Error(err))
		return wrapOp(op, table, err)
	}
	return nil
}

func headerMatches(existing, declared []string) bool {
	if len(existing) != len(declared) {
		return false
	}
	for i := range declared {
		if !strings.EqualFold(strings.TrimSpace(existing[i]), strings.TrimSpace(declared[i])) {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
