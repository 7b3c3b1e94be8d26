package store

import (
	"strconv"
	"strings"

	"produce-ledger/internal/models"
)

// Typed mapping between grid rows and entities. Cells are only interpreted here;
// the rest of the store deals in raw text.

// OrderFromRow maps an orders row to a typed order. Unparsable cells read as zero values.
func OrderFromRow(r Row) models.Order {
	qty, err := models.ParseStoredQuantity(r.Get(models.ColQuantity))
	if err != nil {
		qty = 0
	}
	return models.Order{
		OrderID:   strings.TrimSpace(r.Get(models.ColOrderID)),
		Username:  r.Get(models.ColUsername),
		Item:      r.Get(models.ColItem),
		Quantity:  qty,
		UnitPrice: models.PriceOrZero(r.Get(models.ColUnitPrice)),
		LineTotal: models.PriceOrZero(r.Get(models.ColLineTotal)),
		CreatedAt: models.ParseTime(r.Get(models.ColCreatedAt)),
		UpdatedAt: models.ParseTime(r.Get(models.ColUpdatedAt)),
	}
}

// OrderRow renders an order in models.OrderHeader column order
func OrderRow(o *models.Order) []string {
	return rowFor(models.OrderHeader, map[string]string{
		models.ColOrderID:   o.OrderID,
		models.ColUsername:  o.Username,
		models.ColItem:      o.Item,
		models.ColQuantity:  strconv.Itoa(o.Quantity),
		models.ColUnitPrice: models.FormatPrice(o.UnitPrice),
		models.ColLineTotal: models.FormatPrice(o.LineTotal),
		models.ColCreatedAt: models.FormatTime(o.CreatedAt),
		models.ColUpdatedAt: models.FormatTime(o.UpdatedAt),
	})
}

// CustomerFromRow maps a customers row to a typed customer
func CustomerFromRow(r Row) models.Customer {
	role := strings.TrimSpace(r.Get(models.ColRole))
	if role == "" {
		role = models.RoleCustomer
	}
	return models.Customer{
		Username:     strings.TrimSpace(r.Get(models.ColUsername)),
		FirstName:    r.Get(models.ColFirstName),
		LastName:     r.Get(models.ColLastName),
		Phone:        r.Get(models.ColPhone),
		Email:        r.Get(models.ColEmail),
		Role:         role,
		PasswordHash: r.Get(models.ColPasswordHash),
		CreatedAt:    models.ParseTime(r.Get(models.ColCreatedAt)),
	}
}

// CustomerRow renders a customer for the given header
func CustomerRow(c *models.Customer, header []string) []string {
	return rowFor(header, map[string]string{
		models.ColUsername:     c.Username,
		models.ColFirstName:    c.FirstName,
		models.ColLastName:     c.LastName,
		models.ColPhone:        c.Phone,
		models.ColEmail:        c.Email,
		models.ColRole:         c.Role,
		models.ColPasswordHash: c.PasswordHash,
		models.ColCreatedAt:    models.FormatTime(c.CreatedAt),
	})
}

// ProduceFromRow maps a produce row; missing, non-numeric or negative prices read as 0
func ProduceFromRow(r Row) models.ProduceItem {
	return models.ProduceItem{
		Item:      strings.TrimSpace(r.Get(models.ColItem)),
		UnitPrice: models.PriceOrZero(r.Get(models.ColUnitPrice)),
	}
}

// ProduceRow renders a catalog entry
func ProduceRow(p *models.ProduceItem) []string {
	return []string{p.Item, models.FormatPrice(p.UnitPrice)}
}

func rowFor(header []string, fields map[string]string) []string {
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = fields[col]
	}
	return row
}
