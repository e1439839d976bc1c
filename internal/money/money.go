// Package money converts base-unit amounts into the display currency using a fixed rate.
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// DefaultRate is the fixed base-to-display multiplier.
	DefaultRate = 56.5
	// DefaultCurrency is the display currency code.
	DefaultCurrency = "PHP"
)

var symbols = map[string]string{
	"PHP": "₱",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Converter multiplies base amounts by a constant rate. There is no live-rate lookup.
type Converter struct {
	Rate     decimal.Decimal
	Currency string
}

// NewConverter builds a converter. A non-positive rate falls back to DefaultRate and an
// empty currency to DefaultCurrency.
func NewConverter(rate float64, currency string) Converter {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = DefaultRate
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Converter{Rate: decimal.NewFromFloat(rate), Currency: currency}
}

// ToDisplay converts a base amount, rounded to two decimal places.
// Non-finite inputs convert to zero.
func (c Converter) ToDisplay(amount float64) decimal.Decimal {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount).Mul(c.Rate).Round(2)
}

// Format renders a base amount in the display currency, e.g. "₱1,130.00".
func (c Converter) Format(amount float64) string {
	d := c.ToDisplay(amount)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return fmt.Sprintf("%s%s%s", sign, c.Symbol(), groupThousands(d.StringFixed(2)))
}

// Symbol returns the currency symbol, or the code followed by a space when unknown.
func (c Converter) Symbol() string {
	if s, ok := symbols[c.Currency]; ok {
		return s
	}
	return c.Currency + " "
}

// groupThousands inserts commas into the integer part of a fixed-point string.
func groupThousands(s string) string {
	intPart, frac := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i:]
			break
		}
	}
	if len(intPart) <= 3 {
		return s
	}

	out := make([]byte, 0, len(intPart)+len(intPart)/3)
	lead := len(intPart) % 3
	if lead > 0 {
		out = append(out, intPart[:lead]...)
	}
	for i := lead; i < len(intPart); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i:i+3]...)
	}
	return string(out) + frac
}
