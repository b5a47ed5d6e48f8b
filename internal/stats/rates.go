package stats

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate fields back payment reconciliation dashboards, so all derivations go
// through exact decimal arithmetic and are rounded once at the end.

var hundred = decimal.NewFromInt(100)

// percentage returns numerator/denominator as a percentage rounded to two
// decimal places, and 0 when the denominator is zero.
func percentage(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return decimal.NewFromInt(numerator).
		Div(decimal.NewFromInt(denominator)).
		Mul(hundred).
		Round(2).
		InexactFloat64()
}

// average returns numerator/denominator rounded to two decimal places, and 0
// when the denominator is zero.
func average(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return decimal.NewFromInt(numerator).
		Div(decimal.NewFromInt(denominator)).
		Round(2).
		InexactFloat64()
}

// averageAmount returns amount/count rounded to two decimal places, and 0
// when count is zero.
func averageAmount(amount decimal.Decimal, count int64) float64 {
	if count == 0 {
		return 0
	}
	return amount.Div(decimal.NewFromInt(count)).Round(2).InexactFloat64()
}

// startOfMonth returns midnight on the first day of t's calendar month.
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// startOfYear returns midnight on January 1st of t's calendar year.
func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// startOfDay returns midnight on t's calendar day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
