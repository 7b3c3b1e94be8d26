package models

import (
	"strconv"
	"time"
)

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderAdjusted      = "ORDER_ADJUSTED"
	EventTypeOrderDeleted       = "ORDER_DELETED"
	EventTypeCustomerRegistered = "CUSTOMER_REGISTERED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent is published on every order mutation
type OrderEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	Username  string `json:"username"`
	Actor     string `json:"actor"`
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price_cents"`
	LineTotal int64  `json:"line_total_cents"`
}

// CustomerRegisteredEvent published when an account is created
type CustomerRegisteredEvent struct {
	BaseEvent
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuditRow renders an order event as a row of the order_events table
func (e *OrderEvent) AuditRow() []string {
	return []string{
		e.EventID,
		e.EventType,
		e.OrderID,
		e.Username,
		e.Item,
		strconv.Itoa(e.Quantity),
		FormatPrice(e.LineTotal),
		FormatTime(e.Timestamp),
	}
}
