package worker

import (
	"context"

	"produce-ledger/internal/broker"
	"produce-ledger/internal/models"
	"produce-ledger/internal/util"

	"go.uber.org/zap"
)

// AuditWorker consumes order events from Kafka and records them in the audit table
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, audit *AuditLog) *AuditWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderEvent(audit.Record)
	eventHandler.OnCustomerRegistered(func(ctx context.Context, e *models.CustomerRegisteredEvent) error {
		util.Named("audit").Info("Customer registered", zap.String("username", e.Username), zap.String("role", e.Role))
		return nil
	})

	return &AuditWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("audit"),
	}
}

// Start blocks consuming events until ctx is done
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker")
	return w.consumer.Close()
}
