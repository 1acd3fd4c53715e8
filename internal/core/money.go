// Package core provides the ledger domain types.
//
// This file contains the Money type and parsing helpers. Amounts are
// decimals with two-digit precision; storage keeps them as integer cents.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount with two-digit precision.
type Money struct {
	value decimal.Decimal
}

// MoneyFromCents builds a Money from an integer cent count, the form
// amounts take in partition storage.
func MoneyFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -2)}
}

// ParseMoney parses a decimal string to a Money, rounding half-up on the
// third decimal place. Both dot (12.34) and comma (12,34) separators are
// accepted.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("12,345") -> 12.35, nil (rounds up)
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{value: d.Round(2)}, nil
}

// Cents returns the amount as an integer cent count.
func (m Money) Cents() int64 {
	return m.value.Shift(2).Round(0).IntPart()
}

func (m Money) Add(o Money) Money {
	return Money{value: m.value.Add(o.value)}
}

func (m Money) Sub(o Money) Money {
	return Money{value: m.value.Sub(o.value)}
}

// Cmp returns -1, 0 or 1 comparing m against o.
func (m Money) Cmp(o Money) int {
	return m.value.Cmp(o.value)
}

func (m Money) IsZero() bool     { return m.value.IsZero() }
func (m Money) IsPositive() bool { return m.value.IsPositive() }
func (m Money) IsNegative() bool { return m.value.IsNegative() }

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.value.StringFixed(2)
}
