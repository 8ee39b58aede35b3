package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"MarketDash/internal/analysis"
	"MarketDash/internal/collector"
	"MarketDash/internal/fetch"
	"MarketDash/internal/model"
	"MarketDash/internal/notifier"
	"MarketDash/internal/prefs"
	"MarketDash/internal/recorder"
)

// MarketKey identifies one market table. Currency is part of the key, so a
// currency switch lands on a different cache entry.
type MarketKey struct {
	Kind     model.AssetKind `json:"kind"`
	Currency model.Currency  `json:"currency"`
}

func (k MarketKey) String() string { return fmt.Sprintf("%s/%s", k.Kind, k.Currency) }

// HistoryKey identifies one historical series.
type HistoryKey struct {
	Kind     model.AssetKind `json:"kind"`
	ID       string          `json:"id"`
	Currency model.Currency  `json:"currency"`
	Days     int             `json:"days"`
}

func (k HistoryKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%dd", k.Kind, k.ID, k.Currency, k.Days)
}

// NewsKey is the single news feed key.
type NewsKey struct{}

func (NewsKey) String() string { return "news" }

// Sources are the data collaborators. A kind without a price source has no
// market table.
type Sources struct {
	Prices  map[model.AssetKind]collector.PriceSource
	History map[model.AssetKind]collector.HistorySource
	News    collector.NewsSource
}

// Options wires a Dashboard. Notifier and Recorder may be nil.
type Options struct {
	Prefs    *prefs.Store
	Sources  Sources
	Analyst  analysis.Analyst
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Cron     *cron.Cron

	Market  fetch.Options
	History fetch.Options
	News    fetch.Options

	AnalysisTimeout time.Duration // 0 means DefaultAnalysisTimeout
}

// DefaultWindow is the history window a fresh selection starts with.
const DefaultWindow = 7

// Windows are the history windows offered per kind; any positive value is accepted.
var Windows = map[model.AssetKind][]int{
	model.KindCrypto: {1, 7, 30, 365},
	model.KindStock:  {7, 14, 30},
}

func marketFunc(src Sources) fetch.Func[MarketKey, []model.Quote] {
	return func(ctx context.Context, key MarketKey) ([]model.Quote, error) {
		s, ok := src.Prices[key.Kind]
		if !ok {
			return nil, fmt.Errorf("no price source for %s", key.Kind)
		}
		quotes, err := s.FetchQuotes(ctx, key.Currency)
		if err != nil {
			return nil, fmt.Errorf("%s quotes: %w", s.Name(), err)
		}
		for i := range quotes {
			if quotes[i].Kind == "" {
				quotes[i].Kind = key.Kind
			}
		}
		return quotes, nil
	}
}

func historyFunc(src Sources) fetch.Func[HistoryKey, []model.Point] {
	return func(ctx context.Context, key HistoryKey) ([]model.Point, error) {
		s, ok := src.History[key.Kind]
		if !ok {
			return nil, fmt.Errorf("no history source for %s", key.Kind)
		}
		points, err := s.FetchHistory(ctx, key.ID, key.Currency, key.Days)
		if err != nil {
			return nil, fmt.Errorf("%s history: %w", s.Name(), err)
		}
		return points, nil
	}
}

func newsFunc(src Sources) fetch.Func[NewsKey, []model.NewsItem] {
	return func(ctx context.Context, _ NewsKey) ([]model.NewsItem, error) {
		if src.News == nil {
			return nil, fmt.Errorf("no news source")
		}
		items, err := src.News.FetchNews(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s news: %w", src.News.Name(), err)
		}
		return items, nil
	}
}

// alertTimeout bounds one external alert delivery.
const alertTimeout = time.Minute

// DefaultAnalysisTimeout bounds one analyst call.
const DefaultAnalysisTimeout = time.Minute
