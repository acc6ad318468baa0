package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits every stored amount carries.
const AmountScale = 2

// ParseAmount parses a signed decimal amount with at most two fractional
// digits. Thousands separators and surrounding spaces are tolerated.
func ParseAmount(raw string) (decimal.Decimal, error) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if v == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, raw)
	}
	if !d.Equal(d.Round(AmountScale)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, raw, AmountScale)
	}
	return d.Round(AmountScale), nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
func ParsePositiveAmount(raw string) (decimal.Decimal, error) {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, d.StringFixed(AmountScale))
	}
	return d, nil
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// AmountRange matches values within Radius of Center, bounds included.
type AmountRange struct {
	Center decimal.Decimal
	Radius decimal.Decimal
}

// NewAmountRange parses a (center, radius) pair. An empty radius means an
// exact match on center.
func NewAmountRange(center, radius string) (*AmountRange, error) {
	c, err := decimal.NewFromString(strings.TrimSpace(center))
	if err != nil {
		return nil, fmt.Errorf("%w: amount center %q is not numeric", ErrInvalidFilter, center)
	}
	r := decimal.Zero
	if strings.TrimSpace(radius) != "" {
		r, err = decimal.NewFromString(strings.TrimSpace(radius))
		if err != nil {
			return nil, fmt.Errorf("%w: amount radius %q is not numeric", ErrInvalidFilter, radius)
		}
	}
	if r.IsNegative() {
		return nil, fmt.Errorf("%w: amount radius %s is negative", ErrInvalidFilter, r)
	}
	return &AmountRange{Center: c, Radius: r}, nil
}

// Contains reports whether |v - Center| <= Radius.
func (r AmountRange) Contains(v decimal.Decimal) bool {
	return v.Sub(r.Center).Abs().LessThanOrEqual(r.Radius)
}
