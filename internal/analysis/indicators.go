package analysis

import (
	"fmt"
	"log"
	"math"

	"MarketDash/internal/calculator"
	"MarketDash/internal/model"
)

const (
	shortPeriod = 7
	longPeriod  = 25
	rsiPeriod   = 14
)

// Indicators holds the technical indicators computed from one price series.
type Indicators struct {
	Current    float64
	SMAShort   float64
	SMALong    float64
	RSI        float64
	High       float64
	Low        float64
	Position   float64 // 0.0 ~ 1.0 within [Low, High]
	DailyDrift float64 // mean return per sample
	Volatility float64 // stddev of returns per sample
}

// ComputeIndicators derives indicators from an ascending series. Moving averages
// that lack data fall back to the current price.
func ComputeIndicators(points []model.Point) (*Indicators, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no price history")
	}
	prices := calculator.Prices(points)
	ind := &Indicators{Current: prices[len(prices)-1]}

	if ma, err := calculator.CalculateSMA(prices, shortPeriod); err != nil {
		log.Printf("[WARN] SMA%d calculation failed: %v, using current price", shortPeriod, err)
		ind.SMAShort = ind.Current
	} else {
		ind.SMAShort = ma
	}
	if ma, err := calculator.CalculateSMA(prices, longPeriod); err != nil {
		log.Printf("[WARN] SMA%d calculation failed: %v, using current price", longPeriod, err)
		ind.SMALong = ind.Current
	} else {
		ind.SMALong = ma
	}

	rsi, err := calculator.CalculateRSI(prices, rsiPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	ind.RSI = rsi

	high, low, err := calculator.CalculateRange(points)
	if err != nil {
		return nil, fmt.Errorf("range: %w", err)
	}
	ind.High, ind.Low = high, low
	if pos, err := calculator.CalculatePosition(ind.Current, high, low); err == nil {
		ind.Position = pos
	}

	ind.DailyDrift, ind.Volatility = returnStats(prices)
	return ind, nil
}

func returnStats(prices []float64) (mean, stddev float64) {
	if len(prices) < 2 {
		return 0, 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) == 0 {
		return 0, 0
	}
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	for _, r := range returns {
		stddev += (r - mean) * (r - mean)
	}
	stddev = math.Sqrt(stddev / float64(len(returns)))
	return mean, stddev
}
