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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Quantity adjustments
const (
	ActionIncrement = "increment"
	ActionDecrement = "decrement"
)

// OrderEventPublisher receives an event for every order mutation
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
}

// IdempotencyStore remembers which order a client request key produced
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// OrderService is the order ledger: create, adjust and delete orders, and report on them
type OrderService struct {
	store          *store.Store
	catalog        *Catalog
	publisher      OrderEventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// OrderOption configures an OrderService
type OrderOption func(*OrderService)

// WithOrderEvents publishes order events to p
func WithOrderEvents(p OrderEventPublisher) OrderOption {
	return func(s *OrderService) {
		s.publisher = p
	}
}

// WithIdempotency deduplicates CreateOrder calls that carry an idempotency key
func WithIdempotency(is IdempotencyStore, ttl time.Duration) OrderOption {
	return func(s *OrderService) {
		s.idempotency = is
		s.idempotencyTTL = ttl
	}
}

// NewOrderService creates a new order service
func NewOrderService(st *store.Store, catalog *Catalog, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:          st,
		catalog:        catalog,
		idempotencyTTL: 24 * time.Hour,
		logger:         util.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	Username       string `json:"-"`
	Item           string `json:"item" binding:"required"`
	Quantity       string `json:"quantity" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// OrderList is one customer's orders, newest first
type OrderList struct {
	Orders      []models.Order `json:"orders"`
	TotalAmount int64          `json:"total_amount_cents"`
}

// UserTotal is the sum of one customer's line totals
type UserTotal struct {
	Username string `json:"username"`
	Total    int64  `json:"total_cents"`
}

// AdminReport lists every order grouped by customer
type AdminReport struct {
	Orders     []models.Order `json:"orders"`
	Totals     []UserTotal    `json:"totals"`
	GrandTotal int64          `json:"grand_total_cents"`
}

// CreateOrder prices and appends a new order. Items missing from the catalog
// are accepted at a unit price of 0.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	item := strings.TrimSpace(req.Item)
	if username == "" {
		util.OrdersFailedTotal.WithLabelValues("create", "invalid_input").Inc()
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if item == "" {
		util.OrdersFailedTotal.WithLabelValues("create", "invalid_input").Inc()
		return nil, fmt.Errorf("%w: item is required", ErrInvalidInput)
	}
	qty, err := models.ParseQuantityInput(req.Quantity)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("create", "invalid_input").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	prices, err := s.catalog.Lookup(ctx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("create", "store_error").Inc()
		return nil, fmt.Errorf("failed to look up price: %w", err)
	}

	now := models.Now()
	order := &models.Order{
		OrderID:   uuid.New().String(),
		Username:  username,
		Item:      item,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.Reprice(prices[item])

	t, err := s.ordersTable(ctx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("create", "store_error").Inc()
		return nil, err
	}

	// The key lookup, append and key record share the orders lock so retries
	// carrying the same key cannot both append.
	var existing *models.Order
	err = t.WithWriteLock(ctx, func(ctx context.Context) error {
		existing = s.findByIdempotencyKey(ctx, t, username, req.IdempotencyKey)
		if existing != nil {
			return nil
		}
		if err := t.Append(ctx, store.OrderRow(order)); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		s.rememberIdempotencyKey(ctx, username, req.IdempotencyKey, order.OrderID)
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("create", "store_error").Inc()
		util.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_id", existing.OrderID))
		return existing, nil
	}

	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.String("order_id", order.OrderID))
	s.logger.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.String("username", order.Username),
		zap.String("item", order.Item),
		zap.Int("quantity", order.Quantity),
		zap.String("line_total", models.FormatPrice(order.LineTotal)))

	s.publish(ctx, models.EventTypeOrderCreated, order, username)

	return order, nil
}

// AdjustQuantity increments or decrements an order by one unit and reprices it
// from the current catalog. A decrement never takes the quantity below 1.
func (s *OrderService) AdjustQuantity(ctx context.Context, orderID string, actor models.Actor, action string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdjustQuantity",
		attribute.String("order_id", orderID),
		attribute.String("action", action))
	defer span.End()

	action, err := normalizeAction(action)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("adjust", "invalid_input").Inc()
		return nil, err
	}

	var updated models.Order
	err = s.mutate(ctx, orderID, actor, func(ctx context.Context, t *store.Table, row store.Row, order models.Order) error {
		if action == ActionIncrement {
			order.Quantity++
		} else {
			order.Quantity--
		}
		if order.Quantity < 1 {
			order.Quantity = 1
		}

		prices, err := s.catalog.Lookup(ctx)
		if err != nil {
			return fmt.Errorf("failed to look up price: %w", err)
		}
		order.Reprice(prices[order.Item])
		order.UpdatedAt = models.Now()

		if err := t.OverwriteRowIfUnchanged(ctx, row.Number, row.Values, store.OrderRow(&order)); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("adjust", failureReason(err)).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	util.OrdersAdjustedTotal.WithLabelValues(action).Inc()
	s.logger.Info("Order adjusted",
		zap.String("order_id", updated.OrderID),
		zap.String("actor", actor.Username),
		zap.String("action", action),
		zap.Int("quantity", updated.Quantity),
		zap.String("line_total", models.FormatPrice(updated.LineTotal)))

	s.publish(ctx, models.EventTypeOrderAdjusted, &updated, actor.Username)
	return &updated, nil
}

// DeleteOrder physically removes an order row
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string, actor models.Actor) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder", attribute.String("order_id", orderID))
	defer span.End()

	var deleted models.Order
	err := s.mutate(ctx, orderID, actor, func(ctx context.Context, t *store.Table, row store.Row, order models.Order) error {
		if err := t.DeleteRowIfUnchanged(ctx, row.Number, row.Values); err != nil {
			return err
		}
		deleted = order
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("delete", failureReason(err)).Inc()
		util.RecordError(span, err)
		return err
	}

	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted",
		zap.String("order_id", deleted.OrderID),
		zap.String("actor", actor.Username))

	s.publish(ctx, models.EventTypeOrderDeleted, &deleted, actor.Username)
	return nil
}

// GetOrder returns a single order by id
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.String("order_id", orderID))
	defer span.End()

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order %q: %w", orderID, ErrNotFound)
	}

	t, err := s.ordersTable(ctx)
	if err != nil {
		return nil, err
	}
	return lookupOrder(ctx, t, orderID)
}

func lookupOrder(ctx context.Context, t *store.Table, orderID string) (*models.Order, error) {
	idx, err := store.IndexBy(ctx, t, models.ColOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to index orders: %w", err)
	}

	row, ok := idx.Lookup(orderID)
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	order := store.OrderFromRow(row)
	return &order, nil
}

// ListOrders returns the orders owned by username, newest first, with their total
func (s *OrderService) ListOrders(ctx context.Context, username string) (*OrderList, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.readOrders(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	list := &OrderList{Orders: make([]models.Order, 0)}
	for _, o := range orders {
		if !strings.EqualFold(o.Username, username) {
			continue
		}
		list.Orders = append(list.Orders, o)
		list.TotalAmount += o.LineTotal
	}

	sort.SliceStable(list.Orders, func(i, j int) bool {
		return list.Orders[i].CreatedAt.After(list.Orders[j].CreatedAt)
	})
	return list, nil
}

// AdminReport returns every order sorted by username then creation time,
// with per-user totals and the grand total
func (s *OrderService) AdminReport(ctx context.Context) (*AdminReport, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdminReport")
	defer span.End()

	orders, err := s.readOrders(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].Username != orders[j].Username {
			return orders[i].Username < orders[j].Username
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	report := &AdminReport{
		Orders: orders,
		Totals: make([]UserTotal, 0),
	}
	for _, o := range orders {
		n := len(report.Totals)
		if n == 0 || report.Totals[n-1].Username != o.Username {
			report.Totals = append(report.Totals, UserTotal{Username: o.Username})
			n++
		}
		report.Totals[n-1].Total += o.LineTotal
		report.GrandTotal += o.LineTotal
	}
	return report, nil
}

// ReportFor returns the admin report if actor holds the admin role
func (s *OrderService) ReportFor(ctx context.Context, actor models.Actor) (*AdminReport, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("report requested by %s: %w", actor.Username, ErrUnauthorized)
	}
	return s.AdminReport(ctx)
}

type mutation func(ctx context.Context, t *store.Table, row store.Row, order models.Order) error

// mutate re-indexes the orders table under its write lock, checks ownership and
// hands the current row to fn. Row numbers are only trusted inside the lock.
func (s *OrderService) mutate(ctx context.Context, orderID string, actor models.Actor, fn mutation) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("order %q: %w", orderID, ErrNotFound)
	}

	t, err := s.ordersTable(ctx)
	if err != nil {
		return err
	}

	return t.WithWriteLock(ctx, func(ctx context.Context) error {
		idx, err := store.IndexBy(ctx, t, models.ColOrderID)
		if err != nil {
			return fmt.Errorf("failed to index orders: %w", err)
		}

		row, ok := idx.Lookup(orderID)
		if !ok {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}

		order := store.OrderFromRow(row)
		if !actor.IsAdmin() && !actor.Owns(&order) {
			s.logger.Warn("Rejected mutation by non-owner",
				zap.String("order_id", orderID),
				zap.String("actor", actor.Username),
				zap.String("owner", order.Username))
			return fmt.Errorf("order %s: %w", orderID, ErrUnauthorized)
		}

		return fn(ctx, t, row, order)
	})
}

func (s *OrderService) ordersTable(ctx context.Context) (*store.Table, error) {
	return s.store.EnsureTable(ctx, models.TableOrders, models.OrderHeader)
}

func (s *OrderService) readOrders(ctx context.Context) ([]models.Order, error) {
	t, err := s.ordersTable(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := store.Records(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		o := store.OrderFromRow(r)
		if o.OrderID == "" {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// findByIdempotencyKey resolves a remembered key to its order. Callers hold the orders lock.
func (s *OrderService) findByIdempotencyKey(ctx context.Context, t *store.Table, username, key string) *models.Order {
	if s.idempotency == nil || key == "" {
		return nil
	}

	orderID, err := s.idempotency.GetIdempotencyKey(ctx, idempotencyScope(username, key))
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	if orderID == "" {
		return nil
	}

	order, err := lookupOrder(ctx, t, orderID)
	if err != nil {
		s.logger.Warn("Idempotency key points at a missing order",
			zap.String("idempotency_key", key),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil
	}
	return order
}

func (s *OrderService) rememberIdempotencyKey(ctx context.Context, username, key, orderID string) {
	if s.idempotency == nil || key == "" {
		return
	}
	stored, err := s.idempotency.SetIdempotencyKey(ctx, idempotencyScope(username, key), orderID, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		return
	}
	if !stored {
		s.logger.Warn("Idempotency key already taken by another order",
			zap.String("idempotency_key", key),
			zap.String("order_id", orderID))
	}
}

// publish emits an order event. Failures are logged and never fail the mutation.
func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order, actor string) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: models.Now(),
		},
		OrderID:   order.OrderID,
		Username:  order.Username,
		Actor:     actor,
		Item:      order.Item,
		Quantity:  order.Quantity,
		UnitPrice: order.UnitPrice,
		LineTotal: order.LineTotal,
	}

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

func normalizeAction(action string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "increment", "inc":
		return ActionIncrement, nil
	case "decrement", "dec":
		return ActionDecrement, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
}

func idempotencyScope(username, key string) string {
	return strings.ToLower(username) + ":" + key
}
