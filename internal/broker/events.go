package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"produce-ledger/internal/models"
	"produce-ledger/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderEvent publishes an order lifecycle event keyed by order id
func (ep *EventPublisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishCustomerRegistered publishes a CustomerRegistered event
func (ep *EventPublisher) PublishCustomerRegistered(ctx context.Context, event *models.CustomerRegisteredEvent) error {
	return ep.producer.PublishEvent(ctx, "customer-"+event.Username, event)
}

// EventHandler routes incoming events by type
type EventHandler struct {
	onOrderEvent         func(context.Context, *models.OrderEvent) error
	onCustomerRegistered func(context.Context, *models.CustomerRegisteredEvent) error
	logger               *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("events")}
}

// OnOrderEvent registers a handler for every order event type
func (eh *EventHandler) OnOrderEvent(handler func(context.Context, *models.OrderEvent) error) {
	eh.onOrderEvent = handler
}

// OnCustomerRegistered registers a handler for CustomerRegistered events
func (eh *EventHandler) OnCustomerRegistered(handler func(context.Context, *models.CustomerRegisteredEvent) error) {
	eh.onCustomerRegistered = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderCreated, models.EventTypeOrderAdjusted, models.EventTypeOrderDeleted:
		if eh.onOrderEvent != nil {
			var event models.OrderEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onOrderEvent(ctx, &event)
		}

	case models.EventTypeCustomerRegistered:
		if eh.onCustomerRegistered != nil {
			var event models.CustomerRegisteredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CustomerRegistered event: %w", err)
			}
			return eh.onCustomerRegistered(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
