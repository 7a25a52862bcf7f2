package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateStringMidnightUTCKeepsCalendarDay(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	losAngeles := time.FixedZone("PST", -8*60*60)

	assert.Equal(t, "01/01/2024", DateString("2024-01-01T00:00:00Z", saoPaulo))
	assert.Equal(t, "01/01/2024", DateString("2024-01-01T00:00:00Z", losAngeles))
	assert.Equal(t, "01/01/2024", DateString("2024-01-01", losAngeles))
}

func TestDateStringPlaceholders(t *testing.T) {
	assert.Equal(t, Placeholder, DateString("", time.UTC))
	assert.Equal(t, Placeholder, DateString("invalid", time.UTC))
	assert.Equal(t, Placeholder, Date(nil, time.UTC))
	assert.Equal(t, Placeholder, Date(&time.Time{}, time.UTC))
}

func TestDateWithWallClockUsesLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	ts := time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, "09/03/2024", Date(&ts, saoPaulo))
	assert.Equal(t, "10/03/2024", Date(&ts, nil))
}

func TestLegend(t *testing.T) {
	assert.Equal(t, "205/A", Legend("205A"))
	assert.Equal(t, "205/A", Legend("205a"))
	assert.Equal(t, "FOTO 1", Legend("FOTO 1"))
	assert.Equal(t, "FOTO 12", Legend("foto 12"))
	assert.Equal(t, "20A", Legend("20A"))
	assert.Equal(t, "205/A", Legend("205/A"))
	assert.Equal(t, "", Legend(""))
}

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"1.234,56":    "1234.56",
		"1,234.56":    "1234.56",
		"1234,5":      "1234.5",
		"1234.5":      "1234.5",
		"R$ 1.000,00": "1000",
		"1.000.000":   "1000000",
		"1,000,000":   "1000000",
		"-0,05":       "-0.05",
	}
	for raw, want := range cases {
		got, err := ParseDecimal(raw)
		require.NoError(t, err, raw)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%s => %s", raw, got)
	}

	_, err := ParseDecimal("abc")
	assert.ErrorIs(t, err, ErrInvalidDecimal)
	_, err = ParseDecimal("  ")
	assert.ErrorIs(t, err, ErrInvalidDecimal)
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", Currency(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "R$ 0,00", Currency(decimal.Zero))
	assert.Equal(t, "R$ 1.000.000,10", Currency(decimal.RequireFromString("1000000.1")))
	assert.Equal(t, "R$ 999,00", Currency(decimal.NewFromInt(999)))
	assert.Equal(t, "-R$ 12,50", Currency(decimal.RequireFromString("-12.5")))
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Lines("- a\r\n\n  • b  \n"))
	assert.Empty(t, Lines("   "))
}

func TestText(t *testing.T) {
	assert.Equal(t, Placeholder, Text("  "))
	assert.Equal(t, "x", Text(" x "))
}
