package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"MarketDash/internal/calculator"
	"MarketDash/internal/collector"
	"MarketDash/internal/format"
	"MarketDash/internal/model"
)

// DefaultWindow is the history window, in days, technical analyses are computed on.
const DefaultWindow = 30

// GlobalSymbol asks for a market-wide analysis rather than one asset.
const GlobalSymbol = "global"

var cannedRows = map[Type][]Row{
	TypeTechnical: {
		{"Trend", "Bullish"},
		{"Support", "$45,000"},
		{"Resistance", "$48,000"},
		{"RSI", "65 (Neutral)"},
		{"MACD", "Bullish Crossover"},
	},
	TypeSentiment: {
		{"Overall Sentiment", "Positive"},
		{"Social Media Score", "7.5/10"},
		{"News Sentiment", "Bullish"},
		{"Community Outlook", "Optimistic"},
		{"Market Fear & Greed", "65 (Greed)"},
	},
	TypePrediction: {
		{"24h Forecast", "$47,500"},
		{"7d Forecast", "$49,000"},
		{"30d Forecast", "$52,000"},
		{"Confidence Level", "85%"},
		{"Volatility Risk", "Medium"},
	},
}

// Synthetic answers without a model. Technical, prediction and per-asset
// analyses are computed from price history when a source for the asset kind
// is configured; everything else is a fixed table.
type Synthetic struct {
	History map[model.AssetKind]collector.HistorySource
	Window  int

	now func() time.Time
}

// NewSynthetic creates a synthetic analyst. history may be nil.
func NewSynthetic(history map[model.AssetKind]collector.HistorySource) *Synthetic {
	return &Synthetic{History: history, Window: DefaultWindow, now: time.Now}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("analysis: empty symbol")
	}
	req = normalize(req)
	if _, err := ParseType(string(req.Type)); err != nil {
		return nil, err
	}

	var rows []Row
	var summary string
	src := s.History[req.Kind]
	if req.Type == TypeSentiment || src == nil || strings.EqualFold(req.Symbol, GlobalSymbol) {
		rows = canned(req.Type)
	} else {
		id := req.ID
		if id == "" {
			id = req.Symbol
		}
		window := s.Window
		if window <= 0 {
			window = DefaultWindow
		}
		points, err := src.FetchHistory(ctx, id, req.Currency, window)
		if err != nil {
			return nil, fmt.Errorf("history for %s: %w", id, err)
		}
		ind, err := ComputeIndicators(points)
		if err != nil {
			return nil, fmt.Errorf("indicators for %s: %w", id, err)
		}
		sig := Evaluate(ind)
		rows, summary = computedRows(req, points, ind, sig)
	}

	title := req.Type.Title()
	return &Result{
		Type:        req.Type,
		Symbol:      req.Symbol,
		Title:       title,
		Rows:        rows,
		Text:        Markdown(title, req.Symbol, rows, summary),
		Source:      s.Name(),
		GeneratedAt: s.now(),
	}, nil
}

func canned(t Type) []Row {
	switch t {
	case TypeCrypto, TypeStock:
		t = TypeTechnical
	}
	rows := make([]Row, len(cannedRows[t]))
	copy(rows, cannedRows[t])
	return rows
}

func computedRows(req Request, points []model.Point, ind *Indicators, sig *Signal) ([]Row, string) {
	cur := req.Currency
	technical := []Row{
		{"Trend", sig.Outlook},
		{"Support", format.Price(ind.Low, cur)},
		{"Resistance", format.Price(ind.High, cur)},
		{"RSI", fmt.Sprintf("%.0f (%s)", ind.RSI, calculator.RSILabel(ind.RSI))},
		{fmt.Sprintf("SMA%d", shortPeriod), format.Price(ind.SMAShort, cur)},
		{fmt.Sprintf("SMA%d", longPeriod), format.Price(ind.SMALong, cur)},
		{"Score", fmt.Sprintf("%+.2f", sig.TotalScore)},
	}

	perDay := samplesPerDay(points)
	forecast := func(days float64) string {
		return format.Price(ind.Current*math.Pow(1+ind.DailyDrift, perDay*days), cur)
	}
	risk := VolatilityRisk(ind.Volatility * math.Sqrt(perDay))
	prediction := []Row{
		{"24h Forecast", forecast(1)},
		{"7d Forecast", forecast(7)},
		{"30d Forecast", forecast(30)},
		{"Confidence Level", fmt.Sprintf("%.0f%%", sig.Confidence)},
		{"Volatility Risk", risk},
	}

	var notes []string
	for _, f := range sig.Factors {
		notes = append(notes, fmt.Sprintf("- %s: %s (%+.1f)", f.Name, f.Commentary, f.RawScore))
	}
	if sig.Warning != "" {
		notes = append(notes, "", "> "+sig.Warning)
	}
	summary := strings.Join(notes, "\n")

	switch req.Type {
	case TypePrediction:
		return prediction, ""
	case TypeCrypto, TypeStock:
		return append(technical, prediction[0], prediction[4]), summary
	}
	return technical, summary
}

// samplesPerDay estimates the sampling rate of an ascending series.
func samplesPerDay(points []model.Point) float64 {
	if len(points) < 2 {
		return 1
	}
	span := points[len(points)-1].Time.Sub(points[0].Time).Hours() / 24
	if span <= 0 {
		return 1
	}
	return float64(len(points)-1) / span
}
