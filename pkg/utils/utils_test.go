package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from     time.Time
		to       time.Time
		expected int
	}{
		{name: "same day", from: base, to: base, expected: 0},
		{name: "time of day is discarded", from: base.Add(23 * time.Hour), to: base.AddDate(0, 0, 1).Add(time.Hour), expected: 1},
		{name: "thirty five days later", from: base, to: base.AddDate(0, 0, 35), expected: 35},
		{name: "across a month boundary", from: base, to: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), expected: 31},
		{name: "backwards", from: base, to: base.AddDate(0, 0, -3), expected: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysBetween(tt.from, tt.to))
		})
	}
}

func TestToday(t *testing.T) {
	saigon, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	// 20:00 UTC on Jan 10 is already Jan 11 in Saigon (UTC+7).
	now := time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), Today(now, saigon))
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Today(now, nil))
}

func TestAddDays(t *testing.T) {
	pawn := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC), AddDays(pawn, 30))
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", FormatDate(d))

	_, err = ParseDate("10/01/2025")
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Contains(t, FormatMoney(decimal.NewFromInt(1000000)), "1.000.000")
	assert.Contains(t, FormatMoney(decimal.NewFromFloat(499.6)), "500")
	assert.Equal(t, "1.000.000 \u20ab", FormatMoney(decimal.NewFromInt(1000000)))
	assert.Equal(t, "25.200.000 \u20ab", FormatMoney(decimal.NewFromInt(25_200_000)))
	assert.Equal(t, "-50.000 \u20ab", FormatMoney(decimal.NewFromInt(-50_000)))
}
