package analysis

import (
	"fmt"
	"math"
)

// Factor is a single factor's scoring result. RawScore is in [-2, 2], positive
// meaning bullish.
type Factor struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"raw_score"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

func factor(name string, score, weight float64, commentary string) Factor {
	return Factor{Name: name, RawScore: score, Weight: weight, Weighted: score * weight, Commentary: commentary}
}

// scoreSMADeviation scores how far the price sits above or below the long SMA.
// Weight: 0.35
func scoreSMADeviation(ind *Indicators) Factor {
	if ind.SMALong == 0 {
		return factor("SMA deviation", 0, 0.35, "SMA unavailable")
	}
	deviation := (ind.Current - ind.SMALong) / ind.SMALong * 100

	var score float64
	switch {
	case deviation >= 10:
		score = 2.0
	case deviation >= 5:
		score = 1.5
	case deviation >= 2:
		score = 1.0
	case deviation > 0:
		score = 0.5
	case deviation > -2:
		score = 0
	case deviation > -5:
		score = -1.0
	case deviation > -10:
		score = -1.5
	default:
		score = -2.0
	}
	return factor("SMA deviation", score, 0.35, fmt.Sprintf("%+.1f%% vs SMA%d", deviation, longPeriod))
}

// scoreMomentum scores RSI(14) as momentum.
// Weight: 0.25
func scoreMomentum(ind *Indicators) Factor {
	rsi := ind.RSI
	var score float64
	switch {
	case rsi <= 25:
		score = -2.0
	case rsi <= 35:
		score = -1.5
	case rsi <= 45:
		score = -0.5
	case rsi <= 55:
		score = 0
	case rsi <= 65:
		score = 0.5
	case rsi <= 75:
		score = 1.0
	default:
		score = 1.5
	}
	return factor("Momentum", score, 0.25, fmt.Sprintf("RSI=%.0f", rsi))
}

// scoreRangePosition scores where the price sits in the window range.
// Weight: 0.15
// Special logic: above 95% scores 2 only when the other factors average above 1,
// otherwise it caps at 1.
func scoreRangePosition(ind *Indicators, otherFactorsAvg float64) Factor {
	pos := ind.Position * 100

	var score float64
	switch {
	case pos <= 5:
		if otherFactorsAvg < -1 {
			score = -2.0
		} else {
			score = -1.0
		}
	case pos <= 20:
		score = -1.0
	case pos <= 40:
		score = -0.5
	case pos <= 60:
		score = 0
	case pos <= 80:
		score = 0.5
	case pos <= 95:
		score = 1.0
	default:
		if otherFactorsAvg > 1 {
			score = 2.0
		} else {
			score = 1.0
		}
	}
	return factor("Range position", score, 0.15, fmt.Sprintf("position=%.0f%%", pos))
}

// scoreTrend scores moving average alignment and proximity to the window extremes.
// Weight: 0.25
// Bull alignment: price > SMA short > SMA long
// Bear alignment: price < SMA short < SMA long
func scoreTrend(ind *Indicators) Factor {
	bullish := ind.Current > ind.SMAShort && ind.SMAShort > ind.SMALong
	bearish := ind.Current < ind.SMAShort && ind.SMAShort < ind.SMALong

	nearHigh := ind.High > 0 && math.Abs(ind.Current-ind.High)/ind.High < 0.01
	nearLow := ind.Low > 0 && math.Abs(ind.Current-ind.Low)/ind.Low < 0.01

	var score float64
	var commentary string
	switch {
	case bullish && nearHigh:
		score, commentary = 1.5, "bullish alignment at window high"
	case bullish:
		score, commentary = 1.0, "bullish alignment"
	case bearish && nearLow:
		score, commentary = -1.5, "bearish alignment at window low"
	case bearish:
		score, commentary = -1.0, "bearish alignment"
	default:
		score, commentary = 0, "range-bound"
	}
	return factor("Trend", score, 0.25, commentary)
}
