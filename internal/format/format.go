// Package format renders prices and percentages for display.
package format

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"MarketDash/internal/model"
)

func currency(c model.Currency) *money.Currency {
	// money.New never yields a nil currency, unlike GetCurrency
	return money.New(0, string(c)).Currency()
}

// Money formats amount in c using the currency's minor units: ₹65,000.00.
func Money(amount float64, c model.Currency) string {
	cur := currency(c)
	dec := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

// Price is Money, except sub-unit prices keep up to six decimals.
func Price(amount float64, c model.Currency) string {
	d := decimal.NewFromFloat(amount)
	if d.IsZero() || d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Money(amount, c)
	}
	s := currency(c).Grapheme + d.Abs().Round(6).String()
	if d.IsNegative() {
		return "-" + s
	}
	return s
}

var compactUnits = []struct {
	suffix string
	value  decimal.Decimal
}{
	{"T", decimal.New(1, 12)},
	{"B", decimal.New(1, 9)},
	{"M", decimal.New(1, 6)},
	{"K", decimal.New(1, 3)},
}

// Compact abbreviates large amounts such as market caps: ₹1.20T.
func Compact(amount float64, c model.Currency) string {
	d := decimal.NewFromFloat(amount)
	grapheme := currency(c).Grapheme
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	for _, u := range compactUnits {
		if d.GreaterThanOrEqual(u.value) {
			return sign + grapheme + d.Div(u.value).StringFixed(2) + u.suffix
		}
	}
	return sign + grapheme + d.StringFixed(2)
}

// Percent renders a signed percentage with two decimals: +2.50%, -0.50%.
func Percent(p float64) string {
	d := decimal.NewFromFloat(p).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// Symbol returns the currency sign, e.g. ₹.
func Symbol(c model.Currency) string { return currency(c).Grapheme }

// Change renders a price delta with its sign and percentage: +₹1,200.00 (+1.85%).
func Change(delta, percent float64, c model.Currency) string {
	s := Money(delta, c)
	if delta > 0 {
		s = "+" + s
	}
	return fmt.Sprintf("%s (%s)", s, Percent(percent))
}
