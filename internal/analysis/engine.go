package analysis

import "math"

// Outlooks maps a total score to a trend label.
var Outlooks = []struct {
	MinScore float64
	Label    string
}{
	{1.2, "Strongly Bullish"},
	{0.4, "Bullish"},
	{-0.4, "Neutral"},
	{-1.2, "Bearish"},
}

// DefaultOutlook is the label for scores below every threshold.
const DefaultOutlook = "Strongly Bearish"

func mapOutlook(totalScore float64) string {
	for _, o := range Outlooks {
		if totalScore >= o.MinScore {
			return o.Label
		}
	}
	return DefaultOutlook
}

// Signal is the scored view of one series.
type Signal struct {
	Factors    []Factor `json:"factors"`
	TotalScore float64  `json:"total_score"`
	Outlook    string   `json:"outlook"`
	Confidence float64  `json:"confidence"` // percent, 50 ~ 95
	Warning    string   `json:"warning,omitempty"`
}

// Evaluate scores the indicators.
func Evaluate(ind *Indicators) *Signal {
	f1 := scoreSMADeviation(ind)
	f2 := scoreMomentum(ind)
	f4 := scoreTrend(ind)

	// range position depends on the others
	otherFactorsAvg := (f1.RawScore + f2.RawScore + f4.RawScore) / 3.0
	f3 := scoreRangePosition(ind, otherFactorsAvg)

	total := f1.Weighted + f2.Weighted + f3.Weighted + f4.Weighted
	sig := &Signal{
		Factors:    []Factor{f1, f2, f3, f4},
		TotalScore: total,
		Outlook:    mapOutlook(total),
		Confidence: math.Min(95, 50+math.Abs(total)*30),
	}

	switch {
	case ind.RSI > 85:
		sig.Warning = "RSI above 85: overbought, consider taking profit"
	case ind.RSI < 15:
		sig.Warning = "RSI below 15: oversold, watch for capitulation"
	}
	return sig
}

// VolatilityRisk buckets the per-sample return stddev.
func VolatilityRisk(volatility float64) string {
	switch {
	case volatility < 0.02:
		return "Low"
	case volatility < 0.05:
		return "Medium"
	}
	return "High"
}
