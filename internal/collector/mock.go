package collector

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"MarketDash/internal/model"
)

// DefaultMockCrypto is the fixed crypto table served by the mock source.
var DefaultMockCrypto = []model.Quote{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Kind: model.KindCrypto, Price: 65000, Change24h: 2.5, MarketCap: 1.2e12, Volume24h: 3e10, Rank: 1},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Kind: model.KindCrypto, Price: 3500, Change24h: 1.8, MarketCap: 4.2e11, Volume24h: 1.5e10, Rank: 2},
}

// DefaultMockStocks is the fixed equity table served by the mock source.
var DefaultMockStocks = []model.Quote{
	{ID: "RELIANCE", Symbol: "RELIANCE", Name: "Reliance Industries", Kind: model.KindStock, Price: 2500, Change24h: 1.2, MarketCap: 1.7e13, Volume24h: 5e8},
	{ID: "TCS", Symbol: "TCS", Name: "Tata Consultancy Services", Kind: model.KindStock, Price: 3800, Change24h: -0.5, MarketCap: 1.4e13, Volume24h: 3e8},
}

// Mock returns controllable fixed data for development and testing. Figures are
// the same in every currency; only the currency label changes.
type Mock struct {
	Kind   model.AssetKind
	Quotes []model.Quote
	News   []model.NewsItem
	Delay  time.Duration // simulated latency, honours ctx

	mu  sync.Mutex
	err error
}

// NewMock creates a mock source for kind preloaded with the default table.
func NewMock(kind model.AssetKind) *Mock {
	m := &Mock{Kind: kind, News: defaultMockNews()}
	if kind == model.KindStock {
		m.Quotes = DefaultMockStocks
	} else {
		m.Quotes = DefaultMockCrypto
	}
	return m
}

func (m *Mock) Name() string { return "mock-" + string(m.Kind) }

// Fail makes every call return err until reset with Fail(nil).
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Mock) wait(ctx context.Context) error {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func (m *Mock) FetchQuotes(ctx context.Context, currency model.Currency) ([]model.Quote, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Quote, len(m.Quotes))
	for i, q := range m.Quotes {
		q.Currency = currency
		out[i] = q
	}
	return out, nil
}

// FetchHistory returns a deterministic series around the asset's price: hourly
// points for a one-day window, daily points otherwise.
func (m *Mock) FetchHistory(ctx context.Context, id string, _ model.Currency, days int) ([]model.Point, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	base := 1000.0
	for _, q := range m.Quotes {
		if strings.EqualFold(q.ID, id) {
			base = q.Price
			break
		}
	}
	if days <= 0 {
		days = 1
	}
	count, step := days, 24*time.Hour
	if days == 1 {
		count, step = 24, time.Hour
	}
	return generateMockSeries(base, count, step, time.Now().Truncate(step)), nil
}

func (m *Mock) FetchNews(ctx context.Context) ([]model.NewsItem, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]model.NewsItem, len(m.News))
	copy(out, m.News)
	return out, nil
}

// generateMockSeries ends at base with a gentle uptrend and a small wave.
func generateMockSeries(base float64, count int, step time.Duration, end time.Time) []model.Point {
	points := make([]model.Point, count)
	for i := 0; i < count; i++ {
		back := count - 1 - i
		p := base * (1 - float64(back)*0.001 + 0.002*math.Sin(float64(i)))
		if back == 0 {
			p = base
		}
		points[i] = model.Point{Time: end.Add(-time.Duration(back) * step), Price: p}
	}
	return points
}

func defaultMockNews() []model.NewsItem {
	now := time.Now().Truncate(time.Minute)
	return []model.NewsItem{
		{
			ID:          "mock-1",
			Title:       "Bitcoin holds above key support",
			Description: "BTC consolidates as volumes cool after a strong week.",
			Source:      "MarketDash",
			PublishedAt: now.Add(-30 * time.Minute),
			Categories:  []string{"BTC", "Market"},
		},
		{
			ID:          "mock-2",
			Title:       "Ethereum developers schedule next upgrade",
			Description: "The upgrade targets lower fees for rollups.",
			Source:      "MarketDash",
			PublishedAt: now.Add(-2 * time.Hour),
			Categories:  []string{"ETH", "Technology"},
		},
	}
}
