package analysis

import (
	"math"
	"testing"
)

func TestEvaluate_StrongUptrend(t *testing.T) {
	ind := &Indicators{
		Current:  110,
		SMAShort: 105,
		SMALong:  100,
		RSI:      72,
		High:     110,
		Low:      90,
		Position: 1.0,
	}
	sig := Evaluate(ind)
	if len(sig.Factors) != 4 {
		t.Fatalf("expected 4 factors, got %d", len(sig.Factors))
	}
	if math.Abs(sig.TotalScore-1.625) > 1e-9 {
		t.Errorf("total score = %.3f, want 1.625", sig.TotalScore)
	}
	if sig.Outlook != "Strongly Bullish" {
		t.Errorf("outlook = %q", sig.Outlook)
	}
	if sig.Warning != "" {
		t.Errorf("unexpected warning: %s", sig.Warning)
	}
}

func TestEvaluate_StrongDowntrend(t *testing.T) {
	ind := &Indicators{
		Current:  85,
		SMAShort: 92,
		SMALong:  100,
		RSI:      20,
		High:     110,
		Low:      85,
		Position: 0,
	}
	sig := Evaluate(ind)
	if math.Abs(sig.TotalScore+1.875) > 1e-9 {
		t.Errorf("total score = %.3f, want -1.875", sig.TotalScore)
	}
	if sig.Outlook != DefaultOutlook {
		t.Errorf("outlook = %q, want %q", sig.Outlook, DefaultOutlook)
	}
}

func TestEvaluate_FlatMarket(t *testing.T) {
	ind := &Indicators{Current: 100, SMAShort: 100, SMALong: 100, RSI: 50, High: 105, Low: 95, Position: 0.5}
	sig := Evaluate(ind)
	if sig.TotalScore != 0 || sig.Outlook != "Neutral" || sig.Confidence != 50 {
		t.Errorf("unexpected signal: %+v", sig)
	}
}

func TestEvaluate_OverboughtWarning(t *testing.T) {
	ind := &Indicators{Current: 100, SMAShort: 100, SMALong: 100, RSI: 90, High: 100, Low: 80, Position: 1}
	if sig := Evaluate(ind); sig.Warning == "" {
		t.Error("expected take-profit warning for RSI > 85")
	}
}

func TestMapOutlook_AllBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		label string
	}{
		{2.0, "Strongly Bullish"},
		{1.2, "Strongly Bullish"},
		{1.0, "Bullish"},
		{0.4, "Bullish"},
		{0.0, "Neutral"},
		{-0.4, "Neutral"},
		{-0.5, "Bearish"},
		{-1.2, "Bearish"},
		{-1.3, "Strongly Bearish"},
	}
	for _, tt := range tests {
		if got := mapOutlook(tt.score); got != tt.label {
			t.Errorf("score %.1f: expected %q, got %q", tt.score, tt.label, got)
		}
	}
}

func TestRangePosition_NonlinearLogic(t *testing.T) {
	ind := &Indicators{Position: 0.99}
	if f := scoreRangePosition(ind, 0.5); f.RawScore != 1.0 {
		t.Errorf("top of range with weak factors: score %.1f, want 1.0", f.RawScore)
	}
	if f := scoreRangePosition(ind, 1.5); f.RawScore != 2.0 {
		t.Errorf("top of range with strong factors: score %.1f, want 2.0", f.RawScore)
	}
	ind.Position = 0.01
	if f := scoreRangePosition(ind, 0); f.RawScore != -1.0 {
		t.Errorf("bottom of range with weak factors: score %.1f, want -1.0", f.RawScore)
	}
}

func TestConfidence_Capped(t *testing.T) {
	ind := &Indicators{Current: 130, SMAShort: 120, SMALong: 100, RSI: 80, High: 130, Low: 90, Position: 1}
	if sig := Evaluate(ind); sig.Confidence != 95 {
		t.Errorf("confidence = %v, want capped at 95", sig.Confidence)
	}
}

func TestVolatilityRisk(t *testing.T) {
	if VolatilityRisk(0.01) != "Low" || VolatilityRisk(0.03) != "Medium" || VolatilityRisk(0.2) != "High" {
		t.Error("unexpected volatility buckets")
	}
}
