package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"MarketDash/internal/model"
)

const cryptoCompareBaseURL = "https://min-api.cryptocompare.com"

// CryptoCompare implements NewsSource with the CryptoCompare news feed.
type CryptoCompare struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Limit   int // 0 keeps everything the feed returns
}

// NewCryptoCompare creates a news source.
func NewCryptoCompare(apiKey, proxyURL string) *CryptoCompare {
	return &CryptoCompare{
		Client:  newHTTPClient(proxyURL),
		BaseURL: cryptoCompareBaseURL,
		APIKey:  apiKey,
	}
}

func (n *CryptoCompare) Name() string { return "cryptocompare" }

type ccNews struct {
	Type     int    `json:"Type"`
	Message  string `json:"Message"`
	Response string `json:"Response"`
	Data     []struct {
		ID          json.Number `json:"id"`
		PublishedOn int64       `json:"published_on"`
		ImageURL    string      `json:"imageurl"`
		Title       string      `json:"title"`
		URL         string      `json:"url"`
		Body        string      `json:"body"`
		Categories  string      `json:"categories"`
		Source      string      `json:"source"`
		SourceInfo  struct {
			Name string `json:"name"`
		} `json:"source_info"`
	} `json:"Data"`
}

// FetchNews returns the latest English articles, newest first.
func (n *CryptoCompare) FetchNews(ctx context.Context) ([]model.NewsItem, error) {
	u := strings.TrimRight(n.BaseURL, "/") + "/data/v2/news/?lang=EN"
	h := http.Header{}
	if n.APIKey != "" {
		h.Set("Authorization", "Apikey "+n.APIKey)
	}

	var resp ccNews
	if err := getJSON(ctx, n.Client, n.Name(), u, h, &resp); err != nil {
		return nil, err
	}
	if resp.Response == "Error" {
		return nil, fmt.Errorf("cryptocompare api error: %s", resp.Message)
	}

	items := make([]model.NewsItem, 0, len(resp.Data))
	for _, d := range resp.Data {
		source := d.SourceInfo.Name
		if source == "" {
			source = d.Source
		}
		items = append(items, model.NewsItem{
			ID:          d.ID.String(),
			Title:       d.Title,
			Description: d.Body,
			Source:      source,
			URL:         d.URL,
			PublishedAt: time.Unix(d.PublishedOn, 0),
			Categories:  splitCategories(d.Categories),
			Thumbnail:   d.ImageURL,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].PublishedAt.After(items[j].PublishedAt) })
	if n.Limit > 0 && len(items) > n.Limit {
		items = items[:n.Limit]
	}
	return items, nil
}

// splitCategories turns "BTC|Trading|BTC" into a set, keeping first-seen order.
func splitCategories(s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, c := range strings.Split(s, "|") {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
