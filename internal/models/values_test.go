package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantityInput(t *testing.T) {
	valid := map[string]int{"3": 3, " 2 ": 2, "2.9": 2, "1.0": 1, "1e2": 100}
	for in, want := range valid {
		got, err := ParseQuantityInput(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "x", "0", "-1", "0.4", "NaN", "+Inf", "1e20"} {
		_, err := ParseQuantityInput(in)
		assert.Error(t, err, in)
	}
}

func TestParseStoredQuantity(t *testing.T) {
	q, err := ParseStoredQuantity("")
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	q, err = ParseStoredQuantity("4.0")
	require.NoError(t, err)
	assert.Equal(t, 4, q)

	_, err = ParseStoredQuantity("four")
	assert.Error(t, err)
}

func TestPrices(t *testing.T) {
	cents, err := ParsePrice("2.5")
	require.NoError(t, err)
	assert.Equal(t, int64(250), cents)

	cents, err = ParsePrice("0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), cents)

	_, err = ParsePrice("")
	assert.Error(t, err)

	assert.Equal(t, int64(0), PriceOrZero("-3"))
	assert.Equal(t, int64(0), PriceOrZero("free"))
	assert.Equal(t, int64(1999), PriceOrZero("19.99"))

	assert.Equal(t, "7.50", FormatPrice(750))
	assert.Equal(t, "0.05", FormatPrice(5))
	assert.Equal(t, "-1.20", FormatPrice(-120))
}

func TestTimes(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 45, 999, time.FixedZone("EST", -5*3600))

	s := FormatTime(ts)
	assert.Equal(t, "2024-05-01T17:30:45Z", s)
	assert.True(t, ParseTime(s).Equal(ts.Truncate(time.Second)))

	assert.True(t, ParseTime("").IsZero())
	assert.True(t, ParseTime("yesterday").IsZero())
	assert.Equal(t, "", FormatTime(time.Time{}))
}

func TestLineTotalFollowsQuantity(t *testing.T) {
	o := &Order{Quantity: 4}
	o.Reprice(300)
	assert.Equal(t, int64(1200), o.LineTotal)
}

func TestActorOwnership(t *testing.T) {
	o := &Order{Username: "Alice"}

	assert.True(t, Actor{Username: "alice"}.Owns(o))
	assert.False(t, Actor{Username: "bob"}.Owns(o))
	assert.True(t, Actor{Username: "bob", Role: "admin"}.IsAdmin())
}

func TestAuditRow(t *testing.T) {
	e := &OrderEvent{
		BaseEvent: BaseEvent{EventID: "e1", EventType: EventTypeOrderCreated, Timestamp: ParseTime("2024-05-01T12:00:00Z")},
		OrderID:   "o1",
		Username:  "alice",
		Item:      "tomato",
		Quantity:  3,
		LineTotal: 750,
	}
	assert.Equal(t, []string{"e1", "ORDER_CREATED", "o1", "alice", "tomato", "3", "7.50", "2024-05-01T12:00:00Z"}, e.AuditRow())
	assert.Len(t, e.AuditRow(), len(OrderEventHeader))
}
