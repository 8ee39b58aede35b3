package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"MarketDash/internal/model"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com"

	// fxTTL bounds how long a fetched exchange rate is reused.
	fxTTL = time.Hour
)

// Yahoo implements PriceSource and HistorySource for equities using the Yahoo
// Finance chart API. Prices are converted from the listing currency to the
// requested one through the matching Yahoo FX pair.
type Yahoo struct {
	Client  *http.Client
	BaseURL string

	tickers []string          // Yahoo tickers, e.g. RELIANCE.NS
	ids     map[string]string // asset id -> ticker

	fxMu sync.Mutex
	fx   map[string]fxRate
}

type fxRate struct {
	rate    float64
	fetched time.Time
}

// NewYahoo creates a Yahoo source for the given tickers.
func NewYahoo(tickers []string, proxyURL string) *Yahoo {
	y := &Yahoo{
		Client:  newHTTPClient(proxyURL),
		BaseURL: yahooBaseURL,
		ids:     make(map[string]string, len(tickers)),
		fx:      make(map[string]fxRate),
	}
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		y.tickers = append(y.tickers, t)
		y.ids[StockID(t)] = t
	}
	return y
}

func (y *Yahoo) Name() string { return "yahoo" }

// StockID strips the exchange suffix: RELIANCE.NS -> RELIANCE.
func StockID(ticker string) string {
	if i := strings.IndexByte(ticker, '.'); i > 0 {
		return ticker[:i]
	}
	return ticker
}

func (y *Yahoo) ticker(id string) string {
	if t, ok := y.ids[strings.ToUpper(id)]; ok {
		return t
	}
	return strings.ToUpper(id)
}

type yahooMeta struct {
	Currency            string  `json:"currency"`
	Symbol              string  `json:"symbol"`
	LongName            string  `json:"longName"`
	ShortName           string  `json:"shortName"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
	PreviousClose       float64 `json:"previousClose"`
	RegularMarketVolume float64 `json:"regularMarketVolume"`
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta       yahooMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) chartURL(ticker, interval, rng string) string {
	return fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		strings.TrimRight(y.BaseURL, "/"), url.PathEscape(ticker), interval, rng)
}

func (y *Yahoo) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0")
	return h
}

func (y *Yahoo) fetchChart(ctx context.Context, ticker, interval, rng string) (*yahooChart, error) {
	var chart yahooChart
	if err := getJSON(ctx, y.Client, y.Name(), y.chartURL(ticker, interval, rng), y.header(), &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w: no result", ticker, ErrMalformed)
	}
	return &chart, nil
}

// FetchQuotes returns one quote per configured ticker. A ticker that fails is
// skipped; the call fails only when every ticker does.
func (y *Yahoo) FetchQuotes(ctx context.Context, currency model.Currency) ([]model.Quote, error) {
	quotes := make([]model.Quote, 0, len(y.tickers))
	var lastErr error
	for _, t := range y.tickers {
		q, err := y.quote(ctx, t, currency)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[WARN] yahoo quote %s failed: %v", t, err)
			lastErr = err
			continue
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return quotes, nil
}

func (y *Yahoo) quote(ctx context.Context, ticker string, currency model.Currency) (model.Quote, error) {
	chart, err := y.fetchChart(ctx, ticker, "1d", "5d")
	if err != nil {
		return model.Quote{}, err
	}
	meta := chart.Chart.Result[0].Meta
	rate, err := y.rate(ctx, meta.Currency, currency)
	if err != nil {
		return model.Quote{}, err
	}

	prev := meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	var change float64
	if prev > 0 {
		change = (meta.RegularMarketPrice - prev) / prev * 100
	}
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	id := StockID(ticker)
	if name == "" {
		name = id
	}
	return model.Quote{
		ID:        id,
		Symbol:    id,
		Name:      name,
		Kind:      model.KindStock,
		Currency:  currency,
		Price:     meta.RegularMarketPrice * rate,
		Change24h: change,
		Volume24h: meta.RegularMarketVolume,
	}, nil
}

// chartRange maps a lookback window in days to a Yahoo interval and range.
func chartRange(days int) (interval, rng string) {
	switch {
	case days <= 1:
		return "5m", "1d"
	case days <= 5:
		return "30m", "5d"
	case days <= 30:
		return "1d", "1mo"
	case days <= 90:
		return "1d", "3mo"
	case days <= 180:
		return "1d", "6mo"
	case days <= 365:
		return "1d", "1y"
	}
	return "1wk", "2y"
}

// FetchHistory returns the close series of stock id in currency.
func (y *Yahoo) FetchHistory(ctx context.Context, id string, currency model.Currency, days int) ([]model.Point, error) {
	if id == "" {
		return nil, fmt.Errorf("yahoo: empty stock id")
	}
	interval, rng := chartRange(days)
	ticker := y.ticker(id)
	chart, err := y.fetchChart(ctx, ticker, interval, rng)
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	rate, err := y.rate(ctx, result.Meta.Currency, currency)
	if err != nil {
		return nil, err
	}
	if len(result.Indicators.Quote) == 0 {
		return []model.Point{}, nil
	}
	closes := result.Indicators.Quote[0].Close

	points := make([]model.Point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars (holidays etc.)
		}
		points = append(points, model.Point{Time: time.Unix(ts, 0), Price: *closes[i] * rate})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

// rate returns the multiplier converting from the listing currency to currency.
func (y *Yahoo) rate(ctx context.Context, from string, to model.Currency) (float64, error) {
	from = strings.ToUpper(from)
	if from == "" || from == string(to) {
		return 1, nil
	}
	pair := from + string(to) + "=X"

	y.fxMu.Lock()
	cached, ok := y.fx[pair]
	y.fxMu.Unlock()
	if ok && time.Since(cached.fetched) < fxTTL {
		return cached.rate, nil
	}

	rate, err := y.fetchRate(ctx, pair)
	if err != nil {
		return 0, fmt.Errorf("fx %s: %w", pair, err)
	}
	y.fxMu.Lock()
	y.fx[pair] = fxRate{rate: rate, fetched: time.Now()}
	y.fxMu.Unlock()
	return rate, nil
}

func (y *Yahoo) fetchRate(ctx context.Context, pair string) (float64, error) {
	body, err := getBody(ctx, y.Client, y.Name(), y.chartURL(pair, "1d", "1d"), y.header())
	if err != nil {
		return 0, err
	}
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	path := "$.chart.result[0].meta.regularMarketPrice"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	// jsonpath may answer with a list of one
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	rate, ok := jval.(float64)
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s is %v", ErrMalformed, path, jval)
	}
	return rate, nil
}
