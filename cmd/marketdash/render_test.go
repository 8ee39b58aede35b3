package main

import (
	"strings"
	"testing"
	"time"

	"MarketDash/internal/config"
	"MarketDash/internal/model"
)

func TestQuotesMarkdown(t *testing.T) {
	quotes := []model.Quote{
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Price: 65000, Change24h: 2.5, Rank: 1},
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Price: 3500, Change24h: -0.5, Rank: 2},
	}
	md := quotesMarkdown(model.KindCrypto, model.USD, quotes, 1)
	if !strings.Contains(md, "## Crypto market (USD)") {
		t.Errorf("missing heading:\n%s", md)
	}
	if !strings.Contains(md, "| 1 | BTC | Bitcoin | $65,000.00 | +2.50% |") {
		t.Errorf("missing BTC row:\n%s", md)
	}
	if strings.Contains(md, "ETH") {
		t.Errorf("limit not applied:\n%s", md)
	}
	if md := quotesMarkdown(model.KindStock, model.INR, nil, 0); !strings.Contains(md, "No quotes.") {
		t.Errorf("empty table = %q", md)
	}
}

func TestNewsMarkdown(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	items := []model.NewsItem{
		{Title: "Bitcoin up", Source: "Wire", URL: "https://example.com/a", PublishedAt: at, Categories: []string{"BTC"}},
		{Title: "Ether flat", Source: "Wire", PublishedAt: at, Categories: []string{"ETH"}},
	}

	tests := []struct {
		category string
		limit    int
		want     []string
		absent   []string
	}{
		{"", 0, []string{"[Bitcoin up](https://example.com/a)", "### Ether flat", "*Wire, 2024-05-01 08:30*"}, nil},
		{"ETH", 0, []string{"(ETH)", "Ether flat"}, []string{"Bitcoin up"}},
		{"", 1, []string{"Bitcoin up"}, []string{"Ether flat"}},
		{"DOGE", 0, []string{"No articles."}, nil},
	}
	for _, tt := range tests {
		md := newsMarkdown(items, tt.category, tt.limit)
		for _, w := range tt.want {
			if !strings.Contains(md, w) {
				t.Errorf("category=%q limit=%d: missing %q in\n%s", tt.category, tt.limit, w, md)
			}
		}
		for _, a := range tt.absent {
			if strings.Contains(md, a) {
				t.Errorf("category=%q limit=%d: unexpected %q in\n%s", tt.category, tt.limit, a, md)
			}
		}
	}
}

func TestBuildSources_Mock(t *testing.T) {
	cfg := &config.Config{Sources: config.SourcesConfig{
		Crypto: config.ProviderMock, Stocks: config.ProviderMock, News: config.ProviderMock,
	}}
	src := buildSources(cfg)
	for _, kind := range []model.AssetKind{model.KindCrypto, model.KindStock} {
		if src.Prices[kind] == nil || src.History[kind] == nil {
			t.Errorf("%s sources not wired", kind)
		}
	}
	if src.News == nil {
		t.Error("news source not wired")
	}
}

func TestFetchOptions(t *testing.T) {
	two := 2
	p := config.PollingConfig{RetryBase: time.Second, Retry: &two, Timeout: 5 * time.Second}
	o := fetchOptions(p, time.Minute)
	if o.Interval != time.Minute || o.Retry != 2 || o.RetryBase != time.Second || o.Timeout != 5*time.Second {
		t.Errorf("options = %+v", o)
	}
	if o := fetchOptions(config.PollingConfig{}, time.Minute); o.Retry != config.DefaultRetry {
		t.Errorf("unset retry = %d, want %d", o.Retry, config.DefaultRetry)
	}
}
