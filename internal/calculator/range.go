package calculator

import (
	"errors"
	"math"

	"MarketDash/internal/model"
)

// CalculateRange returns the high and low of the series.
func CalculateRange(points []model.Point) (high, low float64, err error) {
	if len(points) == 0 {
		return 0, 0, errors.New("no points provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range points {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}
	return high, low, nil
}

// CalculatePosition returns where the current price sits within the range (0.0~1.0).
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// CalculateStats summarises a window: the last price, its change from the first
// price and the window's extremes. The zero value is returned for no points.
func CalculateStats(points []model.Point) model.SeriesStats {
	if len(points) == 0 {
		return model.SeriesStats{}
	}
	first, last := points[0].Price, points[len(points)-1].Price
	high, low, _ := CalculateRange(points)
	s := model.SeriesStats{
		Current: last,
		Change:  last - first,
		Lowest:  low,
		Highest: high,
	}
	if first != 0 {
		s.Percentage = s.Change / first * 100
	}
	s.IsUp = s.Change >= 0
	return s
}
