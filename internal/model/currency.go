package model

import (
	"fmt"
	"strings"
)

// Currency is the display currency of all price-denominated data.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"

	DefaultCurrency = INR
)

// ParseCurrency is case-insensitive and rejects anything but INR and USD.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case INR, USD:
		return c, nil
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Other returns the currency the UI toggle switches to.
func (c Currency) Other() Currency {
	if c == USD {
		return INR
	}
	return USD
}

// Lower is the form most price APIs expect (vs_currency=inr).
func (c Currency) Lower() string { return strings.ToLower(string(c)) }

// Prefs is a snapshot of the session preferences.
type Prefs struct {
	Currency  Currency `json:"currency"`
	Favorites []string `json:"favorites"`
}
