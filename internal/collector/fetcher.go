package collector

import (
	"context"
	"errors"
	"fmt"

	"MarketDash/internal/model"
)

// PriceSource returns the current market table for one asset kind.
type PriceSource interface {
	FetchQuotes(ctx context.Context, currency model.Currency) ([]model.Quote, error)
	Name() string
}

// HistorySource returns an ascending price series for one asset.
type HistorySource interface {
	FetchHistory(ctx context.Context, id string, currency model.Currency, days int) ([]model.Point, error)
	Name() string
}

// NewsSource returns the latest articles from an aggregator.
type NewsSource interface {
	FetchNews(ctx context.Context) ([]model.NewsItem, error)
	Name() string
}

// ErrMalformed marks a payload that could not be decoded or had an unexpected shape.
var ErrMalformed = errors.New("malformed payload")

// StatusError is a non-200 HTTP response from a source.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.RateLimited() {
		return fmt.Sprintf("%s: rate limited (status %d)", e.Source, e.Code)
	}
	return fmt.Sprintf("%s: status %d, body: %s", e.Source, e.Code, e.Body)
}

// RateLimited reports a 429 response.
func (e *StatusError) RateLimited() bool { return e.Code == 429 }

// IsRateLimited reports whether err wraps a 429 StatusError.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}
