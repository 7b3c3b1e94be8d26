package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 8: "H", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for n, want := range tests {
		assert.Equal(t, want, columnName(n), "column %d", n)
	}
}

func TestA1Range(t *testing.T) {
	assert.Equal(t, "'orders'!A3:H3", a1Range("orders", 3, 3, 8))
	assert.Equal(t, "'bob''s'!A1:A2", a1Range("bob's", 1, 2, 0))
}

func TestRowRangeSendsZeroValues(t *testing.T) {
	r := rowRange(0, 1)
	assert.Equal(t, int64(0), r.StartIndex)
	assert.Equal(t, int64(1), r.EndIndex)
	assert.Contains(t, r.ForceSendFields, "SheetId")
	assert.Contains(t, r.ForceSendFields, "StartIndex")
}
