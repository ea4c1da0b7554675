// Package types provides the scalar types shared across the ledger.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary value with full decimal precision.
// Line pricing on transaction details is informational for the ledger,
// but it must still round-trip without floating point drift.
type Money = decimal.Decimal

// NewMoneyFromString parses a Money value from its decimal string form.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney parses a Money value, panicking on error. For constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroMoney returns the zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// Quantity is a fixed-point stock quantity with 4 decimal places.
//
// Stored as a scaled int64 so that ledger sums are exact integer
// arithmetic and map directly onto a BIGINT column. Matches
// NUMERIC(15,4) semantics without float error.
type Quantity int64

const QuantityScale int64 = 10_000

func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

// NewQuantityFromInt builds a whole-unit quantity (serials, piece goods).
func NewQuantityFromInt(v int64) Quantity { return Quantity(v * QuantityScale) }

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// Min returns the smaller of q and other. Used by batch allocation.
func (q Quantity) Min(other Quantity) Quantity {
	if other < q {
		return other
	}
	return q
}

// String renders the quantity with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as a JSON number with 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a JSON number or string and parses to fixed point.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseQuantity(s)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a decimal string into a fixed-point Quantity.
// Fractional digits beyond the 4th are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	// Exponent form is only tolerated, not encouraged.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		return NewQuantityFromFloat64(f), nil
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "+")
	}

	parts := strings.SplitN(s, ".", 2)
	intPartStr := parts[0]
	fracStr := ""
	if len(parts) == 2 {
		fracStr = parts[1]
	}

	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}

	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}
