package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/collector"
	"MarketDash/internal/config"
	"MarketDash/internal/dashboard"
	"MarketDash/internal/fetch"
	"MarketDash/internal/model"
)

func loadConfig() (*config.Config, error) {
	p := *configPath
	if p == "" {
		p = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			p = v
		}
	}
	cfg, err := config.Load(p)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// buildSources picks one provider per concern. Real providers double as the
// history source for their kind.
func buildSources(cfg *config.Config) dashboard.Sources {
	src := dashboard.Sources{
		Prices:  make(map[model.AssetKind]collector.PriceSource),
		History: make(map[model.AssetKind]collector.HistorySource),
	}

	switch cfg.Sources.Crypto {
	case config.ProviderCoinGecko:
		g := collector.NewCoinGecko(cfg.Sources.CoinGeckoKey, cfg.Proxy)
		g.PerPage = cfg.Sources.CryptoPerPage
		src.Prices[model.KindCrypto], src.History[model.KindCrypto] = g, g
	default:
		m := collector.NewMock(model.KindCrypto)
		src.Prices[model.KindCrypto], src.History[model.KindCrypto] = m, m
	}

	switch cfg.Sources.Stocks {
	case config.ProviderYahoo:
		y := collector.NewYahoo(cfg.Sources.StockTickers, cfg.Proxy)
		src.Prices[model.KindStock], src.History[model.KindStock] = y, y
	default:
		m := collector.NewMock(model.KindStock)
		src.Prices[model.KindStock], src.History[model.KindStock] = m, m
	}

	switch cfg.Sources.News {
	case config.ProviderCryptoCompare:
		src.News = collector.NewCryptoCompare(cfg.Sources.NewsKey, cfg.Proxy)
	default:
		src.News = collector.NewMock(model.KindCrypto)
	}

	for kind, p := range src.Prices {
		log.Printf("[INFO] %s source: %s", kind, p.Name())
	}
	log.Printf("[INFO] news source: %s", src.News.Name())
	return src
}

func buildAnalyst(ctx context.Context, cfg *config.Config, history map[model.AssetKind]collector.HistorySource) (analysis.Analyst, error) {
	if cfg.Sources.Analysis == config.ProviderGemini {
		g, err := analysis.NewGemini(ctx, cfg.Sources.GeminiKey, cfg.Sources.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		return g, nil
	}
	return analysis.NewSynthetic(history), nil
}

// fetchOptions maps the polling section onto one fetch client.
func fetchOptions(p config.PollingConfig, interval time.Duration) fetch.Options {
	return fetch.Options{
		Interval:  interval,
		Retry:     p.Retries(),
		RetryBase: p.RetryBase,
		RetryMax:  p.RetryMax,
		Timeout:   p.Timeout,
		CacheTTL:  p.CacheTTL,
	}
}
