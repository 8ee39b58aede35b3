package calculator

import (
	"errors"

	"MarketDash/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateEMA seeds with the SMA of the first period prices, then smooths the rest.
func CalculateEMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	seed, err := CalculateSMA(prices[:min(period, len(prices))], period)
	if err != nil {
		return 0, err
	}
	k := 2.0 / float64(period+1)
	ema := seed
	for _, p := range prices[period:] {
		ema = p*k + ema*(1-k)
	}
	return ema, nil
}

// Prices extracts the price column of a series.
func Prices(points []model.Point) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}
