package worker

import (
	"context"
	"fmt"

	"produce-ledger/internal/models"
	"produce-ledger/internal/store"
	"produce-ledger/internal/util"

	"go.uber.org/zap"
)

// AuditLog appends order events to the order_events table. Each event id is
// written at most once, so redelivered messages are harmless.
type AuditLog struct {
	store  *store.Store
	logger *zap.Logger
}

// NewAuditLog creates an audit log over the given store
func NewAuditLog(st *store.Store) *AuditLog {
	return &AuditLog{store: st, logger: util.Named("audit")}
}

// Record writes event unless a row with its event id already exists
func (a *AuditLog) Record(ctx context.Context, event *models.OrderEvent) error {
	ctx, span := util.StartSpan(ctx, "AuditLog.Record")
	defer span.End()

	t, err := a.store.EnsureTable(ctx, models.TableOrderEvents, models.OrderEventHeader)
	if err != nil {
		return err
	}

	written := false
	err = t.WithWriteLock(ctx, func(ctx context.Context) error {
		idx, err := store.IndexBy(ctx, t, models.ColEventID)
		if err != nil {
			return err
		}
		if _, ok := idx.Lookup(event.EventID); ok {
			return nil
		}
		written = true
		return t.Append(ctx, event.AuditRow())
	})
	if err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to record event %s: %w", event.EventID, err)
	}

	if !written {
		a.logger.Debug("Skipping duplicate event", zap.String("event_id", event.EventID))
		return nil
	}

	util.AuditEventsWrittenTotal.Inc()
	a.logger.Debug("Event recorded",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.OrderID))
	return nil
}

// PublishOrderEvent records the event synchronously, for deployments without a broker
func (a *AuditLog) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	return a.Record(ctx, event)
}
