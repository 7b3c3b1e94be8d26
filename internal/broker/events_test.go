package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"produce-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func orderEvent(eventType string) *models.OrderEvent {
	return &models.OrderEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: eventType, Timestamp: time.Unix(0, 0).UTC()},
		OrderID:   "o1",
		Username:  "alice",
		Item:      "tomato",
		Quantity:  2,
		LineTotal: 500,
	}
}

func TestPublishOrderEventKeysByOrder(t *testing.T) {
	w := &fakeWriter{}
	pub := NewEventPublisher(NewProducerWithWriter(w))

	require.NoError(t, pub.PublishOrderEvent(context.Background(), orderEvent(models.EventTypeOrderCreated)))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "order-o1", string(w.messages[0].Key))

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, models.EventTypeOrderCreated, decoded.EventType)
	assert.Equal(t, int64(500), decoded.LineTotal)
}

func TestPublishWrapsWriterErrors(t *testing.T) {
	pub := NewEventPublisher(NewProducerWithWriter(&fakeWriter{err: errors.New("no brokers")}))

	err := pub.PublishCustomerRegistered(context.Background(), &models.CustomerRegisteredEvent{Username: "alice"})
	assert.ErrorContains(t, err, "no brokers")
}

func TestHandleMessageRoutesOrderEvents(t *testing.T) {
	var got []string
	h := NewEventHandler()
	h.OnOrderEvent(func(_ context.Context, e *models.OrderEvent) error {
		got = append(got, e.EventType)
		return nil
	})

	for _, typ := range []string{models.EventTypeOrderCreated, models.EventTypeOrderAdjusted, models.EventTypeOrderDeleted} {
		value, err := json.Marshal(orderEvent(typ))
		require.NoError(t, err)
		require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))
	}

	registered, err := json.Marshal(&models.CustomerRegisteredEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeCustomerRegistered},
		Username:  "alice",
	})
	require.NoError(t, err)
	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: registered}))

	assert.Equal(t, []string{models.EventTypeOrderCreated, models.EventTypeOrderAdjusted, models.EventTypeOrderDeleted}, got)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestHandleMessagePropagatesHandlerError(t *testing.T) {
	h := NewEventHandler()
	h.OnOrderEvent(func(context.Context, *models.OrderEvent) error {
		return errors.New("sheet unavailable")
	})

	value, err := json.Marshal(orderEvent(models.EventTypeOrderDeleted))
	require.NoError(t, err)
	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))
}
