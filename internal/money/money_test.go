package money

import (
	"math"
	"testing"
)

func TestNewConverter_Defaults(t *testing.T) {
	c := NewConverter(0, "")
	if got := c.Rate.String(); got != "56.5" {
		t.Errorf("Rate = %s, want 56.5", got)
	}
	if c.Currency != DefaultCurrency {
		t.Errorf("Currency = %q, want %q", c.Currency, DefaultCurrency)
	}
}

func TestConverter_ToDisplay(t *testing.T) {
	c := NewConverter(56.5, "PHP")

	tests := []struct {
		name   string
		amount float64
		want   string
	}{
		{"whole", 20, "1130"},
		{"cents", 1.99, "112.44"},
		{"zero", 0, "0"},
		{"negative", -10, "-565"},
		{"nan", math.NaN(), "0"},
		{"inf", math.Inf(1), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ToDisplay(tt.amount).String(); got != tt.want {
				t.Errorf("ToDisplay(%v) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestConverter_Format(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		rate     float64
		amount   float64
		want     string
	}{
		{"php", "PHP", 56.5, 20, "₱1,130.00"},
		{"small", "PHP", 56.5, 1, "₱56.50"},
		{"millions", "USD", 1, 1234567.891, "$1,234,567.89"},
		{"negative", "USD", 1, -1500, "-$1,500.00"},
		{"unknown currency", "JPY", 1, 12, "JPY 12.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConverter(tt.rate, tt.currency)
			if got := c.Format(tt.amount); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}
