package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name        string
		numerator   int64
		denominator int64
		want        float64
	}{
		{"zero denominator yields zero", 5, 0, 0},
		{"zero numerator", 0, 10, 0},
		{"exact", 4, 10, 40.00},
		{"rounds to two places", 1, 3, 33.33},
		{"rounds half up", 1, 8, 12.5},
		{"over one hundred", 12, 10, 120.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentage(tt.numerator, tt.denominator))
		})
	}
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, average(10, 0))
	assert.Equal(t, 2.5, average(5, 2))
	assert.Equal(t, 3.33, average(10, 3))
}

func TestAverageAmount(t *testing.T) {
	assert.Equal(t, 0.0, averageAmount(decimal.NewFromInt(4500), 0))
	assert.Equal(t, 1500.0, averageAmount(decimal.NewFromInt(4500), 3))
	assert.Equal(t, 666.67, averageAmount(decimal.NewFromInt(2000), 3))
}

func TestCalendarBoundaries(t *testing.T) {
	at := time.Date(2026, time.August, 30, 15, 42, 10, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), startOfMonth(at))
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), startOfYear(at))
	assert.Equal(t, time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC), startOfDay(at))
}
