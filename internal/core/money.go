// Package core provides the domain types of the budgeting service.
//
// This file contains money parsing and formatting. Amounts are held as integer
// cents; decimal input is rounded half-up (away from zero) to two places.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. It may be negative for transaction debits.
type Money struct {
	Cents int64
}

var (
	hundred = decimal.NewFromInt(100)
	// Largest whole-unit value whose cent representation fits in int64.
	maxMoney = decimal.NewFromInt((1<<63 - 1) / 100)
)

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional sign. More than two fractional digits are rounded half-up.
//
// Examples:
//
//	ParseMoney("12.34")  -> {1234}, nil
//	ParseMoney("-0,5")   -> {-50}, nil
//	ParseMoney("12.345") -> {1235}, nil
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrMissingAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidNumber
	}
	return FromDecimal(d)
}

// FromDecimal rounds d to cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.Abs().GreaterThan(maxMoney) {
		return Money{}, ErrInvalidNumber
	}
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}, nil
}

// Decimal returns the amount in whole units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Validate reports whether m is usable as a debit or transfer amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) IsNegative() bool { return m.Cents < 0 }

// MarshalJSON encodes the amount as a bare JSON number, e.g. 70 or 12.5.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON only accepts JSON numbers; quoted amounts are rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) == 0 || data[0] == '"' {
		return ErrInvalidNumber
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return ErrInvalidNumber
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
