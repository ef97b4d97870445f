// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values backed by shopspring/decimal. They are written
// to JSON as plain numbers and accepted back either as numbers or as numeric
// strings, which is how older stored ledgers carry them.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for display when no currency is configured.
const DefaultCurrency = money.USD

// Amount is a non-negative decimal sum of money.
type Amount struct {
	value decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// AmountFromCents converts an integer number of cents.
func AmountFromCents(cents int64) Amount {
	return Amount{value: decimal.New(cents, -2)}
}

// MustAmount parses s and panics on error. Meant for tests and constants.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount parses a user supplied amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values, empty input and anything that is not a finite number are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	a := Amount{value: d}
	if err := a.Validate(); err != nil {
		return Amount{}, err
	}
	return a, nil
}

func (a Amount) Validate() error {
	if a.value.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value)} }

func (a Amount) Sub(b Amount) Amount { return Amount{value: a.value.Sub(b.value)} }

func (a Amount) IsZero() bool { return a.value.IsZero() }

func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// Equal compares numerically, so 50 and 50.00 are equal.
func (a Amount) Equal(b Amount) bool { return a.value.Equal(b.value) }

// Cents rounds the amount half-up to whole cents.
func (a Amount) Cents() int64 {
	return a.value.Shift(2).Round(0).IntPart()
}

// Fixed formats the amount with exactly places fractional digits.
func (a Amount) Fixed(places int32) string {
	return a.value.StringFixed(places)
}

// Display formats the amount for people, e.g. "$1,800.00".
func (a Amount) Display(currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return money.New(a.Cents(), currency).Display()
}

func (a Amount) String() string { return a.value.String() }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w %s", ErrInvalidAmount, string(b))
	}
	a.value = d
	return nil
}
