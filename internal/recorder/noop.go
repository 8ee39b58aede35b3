package recorder

import (
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordQuotes(_ *QuoteSnapshot) error     { return nil }
func (n *NoopRecorder) RecordNews(_ []model.NewsItem) error     { return nil }
func (n *NoopRecorder) RecordAnalysis(_ *analysis.Result) error { return nil }
func (n *NoopRecorder) Close() error                            { return nil }

func (n *NoopRecorder) PriceHistory(_ string, _ model.Currency, _ time.Time) ([]model.Point, error) {
	return nil, nil
}
