package recorder

import (
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/model"
)

// QuoteSnapshot is one market table as fetched.
type QuoteSnapshot struct {
	Kind     model.AssetKind
	Currency model.Currency
	Quotes   []model.Quote
	TakenAt  time.Time
}

// Recorder persists fetched data for later analysis.
type Recorder interface {
	RecordQuotes(snap *QuoteSnapshot) error
	RecordNews(items []model.NewsItem) error
	RecordAnalysis(res *analysis.Result) error
	// PriceHistory returns the recorded prices of one asset since the given time, ascending.
	PriceHistory(id string, currency model.Currency, since time.Time) ([]model.Point, error)
	Close() error
}
