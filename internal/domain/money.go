package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept by Money.
const MoneyScale = 2

// Money is a fixed-point amount stored as integer minor units (cents).
type Money struct {
	units int64
}

// Zero is the zero amount.
var Zero = Money{}

// MaxMoney is the largest representable amount.
var MaxMoney = Money{units: math.MaxInt64}

// NewMoney returns Money holding the given number of minor units.
func NewMoney(minorUnits int64) Money {
	return Money{units: minorUnits}
}

// ParseMoney parses a decimal string such as "100", "100.5" or "-3.25".
//
// More than two fractional digits are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, NewValidationError(ErrInvalidAmount, s)
	}

	return FromDecimal(d)
}

// MustParseMoney is like ParseMoney but panics on malformed input.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}

	return m
}

// FromDecimal converts d into Money.
func FromDecimal(d decimal.Decimal) (Money, error) {
	shifted := d.Shift(MoneyScale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, NewValidationError(ErrInvalidAmount, d.String())
	}

	if !shifted.BigInt().IsInt64() {
		return Money{}, NewValidationError(ErrInvalidAmount, d.String())
	}

	return Money{units: shifted.IntPart()}, nil
}

// MinorUnits returns the amount in cents.
func (m Money) MinorUnits() int64 { return m.units }

// Decimal returns the amount as a decimal.
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.units, -MoneyScale) }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{units: m.units + o.units} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{units: m.units - o.units} }

// CheckedAdd returns m + o, or ErrAmountOverflow if the sum does not fit.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o.units > 0 && m.units > math.MaxInt64-o.units) ||
		(o.units < 0 && m.units < math.MinInt64-o.units) {
		return Money{}, NewValidationError(ErrAmountOverflow, fmt.Sprintf("%s + %s", m, o))
	}

	return Money{units: m.units + o.units}, nil
}

// CheckedSub returns m - o, or ErrAmountOverflow if the difference does not fit.
func (m Money) CheckedSub(o Money) (Money, error) {
	if o.units == math.MinInt64 {
		return Money{}, NewValidationError(ErrAmountOverflow, fmt.Sprintf("%s - %s", m, o))
	}

	return m.CheckedAdd(Money{units: -o.units})
}

// Cmp returns -1, 0 or +1 depending on whether m is less than, equal to or greater than o.
func (m Money) Cmp(o Money) int {
	switch {
	case m.units < o.units:
		return -1
	case m.units > o.units:
		return 1
	default:
		return 0
	}
}

// Equal reports whether m == o.
func (m Money) Equal(o Money) bool { return m.units == o.units }

// LessThan reports whether m < o.
func (m Money) LessThan(o Money) bool { return m.units < o.units }

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m.units > 0 }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m.units < 0 }

// IsZero reports whether m == 0.
func (m Money) IsZero() bool { return m.units == 0 }

// String renders m with exactly two fractional digits.
func (m Money) String() string { return m.Decimal().StringFixed(MoneyScale) }

// MarshalJSON encodes m as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both decimal strings and JSON numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return NewValidationError(ErrInvalidAmount, string(b))
		}

		s = n.String()
	}

	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// Value implements driver.Valuer for numeric columns.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for numeric columns.
func (m *Money) Scan(src any) error {
	var (
		parsed Money
		err    error
	)

	switch v := src.(type) {
	case []byte:
		parsed, err = ParseMoney(string(v))
	case string:
		parsed, err = ParseMoney(v)
	case int64:
		parsed = NewMoney(v * 100)
	case float64:
		parsed, err = FromDecimal(decimal.NewFromFloat(v))
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}

	if err != nil {
		return err
	}

	*m = parsed

	return nil
}
