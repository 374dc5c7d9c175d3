package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of Amount units per whole coin. Amounts carry exactly one
// fractional digit, which covers the half-coin costs found in the catalogs.
const Scale = 10

// ErrPrecision is returned when a value has more fractional digits than an Amount can hold.
var ErrPrecision = errors.New("amount has more than one fractional digit")

// ErrRange is returned when a value or a result does not fit in an Amount.
var ErrRange = errors.New("amount out of range")

var (
	scale     = decimal.NewFromInt(Scale)
	maxTenths = decimal.NewFromInt(math.MaxInt64)
	minTenths = decimal.NewFromInt(math.MinInt64)
)

// Amount is a fixed-point coin quantity stored in tenths. Sums of Amounts are
// exact, so a zero total never drifts into a non-zero one.
type Amount int64

// Zero is the empty amount.
const Zero Amount = 0

// MaxAmount and MinAmount bound every Amount.
const (
	MaxAmount Amount = math.MaxInt64
	MinAmount Amount = math.MinInt64
)

// FromInt converts a whole number of coins. It is meant for constants; use
// FromDecimal for values that may not fit.
func FromInt(coins int64) Amount {
	return Amount(coins * Scale)
}

// FromDecimal converts d, rejecting values that need more than one fractional digit.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	tenths := d.Mul(scale)
	if !tenths.IsInteger() {
		return 0, fmt.Errorf("%s: %w", d.String(), ErrPrecision)
	}
	return fromTenths(tenths, d.String())
}

func fromTenths(tenths decimal.Decimal, what string) (Amount, error) {
	if tenths.GreaterThan(maxTenths) || tenths.LessThan(minTenths) {
		return 0, fmt.Errorf("%s: %w", what, ErrRange)
	}
	return Amount(tenths.IntPart()), nil
}

// Parse reads a decimal string such as "2", "0.5" or "12.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the amount as a decimal number of coins.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -1)
}

// String formats the amount without trailing zeros ("1000", "2.5").
func (a Amount) String() string {
	return a.Decimal().String()
}

// Float64 is intended for metrics only.
func (a Amount) Float64() float64 {
	f, _ := a.Decimal().Float64()
	return f
}

// Times scales a unit amount by an integer quantity.
func (a Amount) Times(quantity int) (Amount, error) {
	product := decimal.NewFromInt(int64(a)).Mul(decimal.NewFromInt(int64(quantity)))
	return fromTenths(product, fmt.Sprintf("%s x %d", a, quantity))
}

// Add returns a+b, or ErrRange when the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > MaxAmount-b) || (b < 0 && a < MinAmount-b) {
		return 0, fmt.Errorf("%s + %s: %w", a, b, ErrRange)
	}
	return a + b, nil
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a < 0 }

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// MarshalJSON encodes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
// null and "" decode to zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
	} else if !json.Valid(data) {
		return fmt.Errorf("parse amount: invalid JSON token %q", raw)
	}
	if raw == "" || (raw == "null" && data[0] != '"') {
		*a = 0
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by envconfig.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalTOML lets catalog files write costs as integers, floats or strings.
func (a *Amount) UnmarshalTOML(value any) error {
	var (
		parsed Amount
		err    error
	)
	switch v := value.(type) {
	case int64:
		parsed, err = fromTenths(decimal.NewFromInt(v).Mul(scale), fmt.Sprint(v))
	case float64:
		parsed, err = FromDecimal(decimal.NewFromFloat(v))
	case string:
		parsed, err = Parse(v)
	default:
		return fmt.Errorf("unsupported amount value %v (%T)", value, value)
	}
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
