package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketDash/internal/model"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGecko implements PriceSource and HistorySource for crypto assets.
type CoinGecko struct {
	Client  *http.Client
	BaseURL string
	APIKey  string // demo key, sent as x-cg-demo-api-key
	PerPage int
}

// NewCoinGecko creates a CoinGecko source.
func NewCoinGecko(apiKey, proxyURL string) *CoinGecko {
	return &CoinGecko{
		Client:  newHTTPClient(proxyURL),
		BaseURL: coinGeckoBaseURL,
		APIKey:  apiKey,
		PerPage: 20,
	}
}

func (g *CoinGecko) Name() string { return "coingecko" }

type geckoMarket struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

type geckoChart struct {
	Prices [][]float64 `json:"prices"`
}

func (g *CoinGecko) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if g.APIKey != "" {
		h.Set("x-cg-demo-api-key", g.APIKey)
	}
	return h
}

// FetchQuotes returns the top coins by market cap priced in currency.
func (g *CoinGecko) FetchQuotes(ctx context.Context, currency model.Currency) ([]model.Quote, error) {
	perPage := g.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	q := url.Values{}
	q.Set("vs_currency", currency.Lower())
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	u := strings.TrimRight(g.BaseURL, "/") + "/coins/markets?" + q.Encode()

	var markets []geckoMarket
	if err := getJSON(ctx, g.Client, g.Name(), u, g.header(), &markets); err != nil {
		return nil, err
	}

	quotes := make([]model.Quote, 0, len(markets))
	seen := make(map[string]bool, len(markets))
	for _, m := range markets {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		quotes = append(quotes, model.Quote{
			ID:        m.ID,
			Symbol:    strings.ToUpper(m.Symbol),
			Name:      m.Name,
			Kind:      model.KindCrypto,
			Currency:  currency,
			Price:     m.CurrentPrice,
			Change24h: m.PriceChangePercentage24h,
			MarketCap: m.MarketCap,
			Volume24h: m.TotalVolume,
			Rank:      m.MarketCapRank,
		})
	}
	return quotes, nil
}

// FetchHistory returns the price series of coin id over the last days.
func (g *CoinGecko) FetchHistory(ctx context.Context, id string, currency model.Currency, days int) ([]model.Point, error) {
	if id == "" {
		return nil, fmt.Errorf("coingecko: empty coin id")
	}
	if days <= 0 {
		days = 1
	}
	q := url.Values{}
	q.Set("vs_currency", currency.Lower())
	q.Set("days", strconv.Itoa(days))
	u := fmt.Sprintf("%s/coins/%s/market_chart?%s", strings.TrimRight(g.BaseURL, "/"), url.PathEscape(id), q.Encode())

	var chart geckoChart
	if err := getJSON(ctx, g.Client, g.Name(), u, g.header(), &chart); err != nil {
		return nil, err
	}

	points := make([]model.Point, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			return nil, fmt.Errorf("coingecko chart %s: %w: point with %d fields", id, ErrMalformed, len(p))
		}
		points = append(points, model.Point{
			Time:  time.UnixMilli(int64(p[0])),
			Price: p[1],
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
