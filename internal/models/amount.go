package models

import (
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fraction digits kept for money values.
const AmountScale = 2

// Amount is a fixed-point money value. It scans from any numeric driver
// representation and marshals as a bare JSON number with two fraction digits.
type Amount struct {
	decimal.Decimal
}

// NewAmount parses a decimal string such as "12.50"
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

// MustAmount is NewAmount for literals; it panics on malformed input
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Normalized rounds the value to AmountScale fraction digits
func (a Amount) Normalized() Amount {
	return Amount{Decimal: a.Round(AmountScale)}
}

// MarshalJSON writes the value as a JSON number, e.g. 12.50
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(AmountScale)), nil
}

// String returns the fixed two-digit representation
func (a Amount) String() string {
	return a.StringFixed(AmountScale)
}
