package models

import (
	"strings"
	"time"
)

// Table names in the backing spreadsheet
const (
	TableCustomers   = "customers"
	TableProduce     = "produce"
	TableOrders      = "orders"
	TableOrderEvents = "order_events"
)

// Column names
const (
	ColUsername     = "username"
	ColFirstName    = "firstname"
	ColLastName     = "lastname"
	ColPhone        = "phone"
	ColEmail        = "email"
	ColRole         = "role"
	ColPasswordHash = "password_hash"
	ColCreatedAt    = "created_at"
	ColUpdatedAt    = "updated_at"
	ColItem         = "item"
	ColUnitPrice    = "unit_price"
	ColOrderID      = "order_id"
	ColQuantity     = "quantity"
	ColLineTotal    = "line_total"
	ColEventID      = "event_id"
	ColEventType    = "event_type"
	ColOccurredAt   = "occurred_at"
)

// Declared table headers
var (
	CustomerHeader = []string{ColUsername, ColFirstName, ColLastName, ColPhone, ColEmail, ColRole, ColCreatedAt}
	ProduceHeader  = []string{ColItem, ColUnitPrice}
	OrderHeader    = []string{
		ColOrderID, ColUsername, ColItem, ColQuantity, ColUnitPrice, ColLineTotal, ColCreatedAt, ColUpdatedAt,
	}
	OrderEventHeader = []string{
		ColEventID, ColEventType, ColOrderID, ColUsername, ColItem, ColQuantity, ColLineTotal, ColOccurredAt,
	}
)

// CustomerHeaderFor returns the customers header for the given auth mode.
// Password mode stores a credential hash in an extra trailing column.
func CustomerHeaderFor(withCredential bool) []string {
	if !withCredential {
		return CustomerHeader
	}
	h := make([]string, 0, len(CustomerHeader)+1)
	h = append(h, CustomerHeader...)
	return append(h, ColPasswordHash)
}

// Roles
const (
	RoleCustomer = "Customer"
	RoleAdmin    = "Admin"
)

// Customer represents a registered account
type Customer struct {
	Username     string    `json:"username"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the customer holds the admin role
func (c *Customer) IsAdmin() bool {
	return strings.EqualFold(c.Role, RoleAdmin)
}

// ProduceItem represents a priced catalog entry
type ProduceItem struct {
	Item      string `json:"item"`
	UnitPrice int64  `json:"unit_price_cents"`
}

// Order represents a single line-item order
type Order struct {
	OrderID   string    `json:"order_id"`
	Username  string    `json:"username"`
	Item      string    `json:"item"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price_cents"`
	LineTotal int64     `json:"line_total_cents"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reprice sets the unit price snapshot and recomputes the stored line total
func (o *Order) Reprice(unitPrice int64) {
	o.UnitPrice = unitPrice
	o.LineTotal = int64(o.Quantity) * unitPrice
}

// Actor identifies who is performing a mutation
type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the actor may bypass ownership checks
func (a Actor) IsAdmin() bool {
	return strings.EqualFold(a.Role, RoleAdmin)
}

// Owns reports whether the actor is the owner of the given order
func (a Actor) Owns(o *Order) bool {
	return strings.EqualFold(a.Username, o.Username)
}

// TableSchema pairs a table name with its declared header
type TableSchema struct {
	Name   string
	Header []string
}

// Schemas lists every table the service owns
func Schemas(withCredential bool) []TableSchema {
	return []TableSchema{
		{Name: TableCustomers, Header: CustomerHeaderFor(withCredential)},
		{Name: TableProduce, Header: ProduceHeader},
		{Name: TableOrders, Header: OrderHeader},
		{Name: TableOrderEvents, Header: OrderEventHeader},
	}
}
