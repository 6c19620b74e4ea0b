// Package core provides money parsing and handling utilities.
//
// Amounts are carried as float64 currency units through the aggregation
// engine. Parsing from user input goes through shopspring/decimal so the
// value reaching a Transaction is already rounded to cents.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount accepted on input. Its cents fit an int64
// and stay exact in a float64.
const MaxAmount = 1_000_000_000_000

var maxAmount = decimal.NewFromInt(MaxAmount)

// ParseAmount converts a decimal string to a positive amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. When both separators appear
// the last one is the decimal separator ("1.234,56" and "1,234.56").
// Returns ErrInvalidAmount for invalid formats, signed values, zero and
// values above MaxAmount.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1.005")    -> 1.01, nil
//	ParseAmount("1.234,50") -> 1234.5, nil
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator, dots group thousands
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}

// RoundTo rounds v to places decimals using decimal arithmetic. Non-finite
// values are returned unchanged.
func RoundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatAmount renders v with two decimals and a comma separator, prefixed by
// symbol. Non-finite values render as "n/d".
func FormatAmount(symbol string, v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/d"
	}
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	s := strings.Replace(d.Abs().StringFixed(2), ".", ",", 1)
	if neg {
		return "-" + symbol + " " + s
	}
	return symbol + " " + s
}

// ToCents converts a finite amount to integer cents, rounding half away from
// zero. Non-finite values and values whose cents overflow an int64 return
// ErrInvalidAmount.
func ToCents(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	c := decimal.NewFromFloat(v).Shift(2).Round(0).BigInt()
	if !c.IsInt64() {
		return 0, ErrInvalidAmount
	}
	return c.Int64(), nil
}

// FromCents converts integer cents back to currency units.
func FromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}
