package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the stored timestamp format: ISO-8601, UTC, second precision
const TimeLayout = "2006-01-02T15:04:05Z"

var (
	errEmptyQuantity   = errors.New("quantity is required")
	errInvalidQuantity = errors.New("quantity must be a positive number")
)

// FormatTime renders t in the stored timestamp format
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// ParseTime parses a stored timestamp. Unparsable or empty values yield the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// Now returns the current time truncated to the stored precision
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ParsePrice converts a decimal price cell ("2.5", "2.50") into cents
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return int64(math.Round(f * 100)), nil
}

// PriceOrZero is ParsePrice with the catalog fallback: anything missing,
// non-numeric or negative reads as zero.
func PriceOrZero(s string) int64 {
	cents, err := ParsePrice(s)
	if err != nil || cents < 0 {
		return 0
	}
	return cents
}

// FormatPrice renders cents with two decimals
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseQuantityInput parses a user supplied quantity. Fractional input is
// truncated toward zero; anything that does not leave at least one unit is rejected.
func ParseQuantityInput(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyQuantity
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, errInvalidQuantity
	}
	if f > math.MaxInt32 {
		return 0, errInvalidQuantity
	}
	q := int(f)
	if q < 1 {
		return 0, fmt.Errorf("quantity %q truncates to zero: %w", s, errInvalidQuantity)
	}
	return q, nil
}

// ParseStoredQuantity reads the quantity cell of an existing order row.
// An empty cell reads as 1.
func ParseStoredQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	if q, err := strconv.Atoi(s); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid stored quantity %q", s)
	}
	return int(f), nil
}
