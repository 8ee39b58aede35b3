// Package analysis answers the dashboard's "AI analysis" requests. An Analyst
// takes an analysis type and an asset symbol and returns text; it may fail.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"MarketDash/internal/model"
)

// Type selects what kind of analysis is produced.
type Type string

const (
	TypeTechnical  Type = "technical"
	TypeSentiment  Type = "sentiment"
	TypePrediction Type = "prediction"
	TypeCrypto     Type = "crypto"
	TypeStock      Type = "stock"
)

// Types lists every supported analysis type.
var Types = []Type{TypeTechnical, TypeSentiment, TypePrediction, TypeCrypto, TypeStock}

// ParseType is case-insensitive.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown analysis type %q", s)
}

var titles = map[Type]string{
	TypeTechnical:  "technical analysis",
	TypeSentiment:  "sentiment analysis",
	TypePrediction: "price predictions",
	TypeCrypto:     "crypto analysis",
	TypeStock:      "stock analysis",
}

// Title is the heading shown above a result, e.g. "Technical Analysis".
func (t Type) Title() string {
	s, ok := titles[t]
	if !ok {
		s = "analysis"
	}
	return cases.Title(language.English).String(s)
}

// Request is one analysis request. Kind and ID identify the asset when the
// analyst needs its history; Symbol is what the user sees.
type Request struct {
	Type     Type            `json:"type"`
	Symbol   string          `json:"symbol"`
	Kind     model.AssetKind `json:"kind,omitempty"`
	ID       string          `json:"id,omitempty"`
	Currency model.Currency  `json:"currency,omitempty"`
}

// Row is one metric line of a structured result.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Result is the analyst's answer. Text is markdown; Rows is set when the
// answer is structured.
type Result struct {
	Type        Type      `json:"type"`
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Rows        []Row     `json:"rows,omitempty"`
	Text        string    `json:"text"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Analyst produces analyses.
type Analyst interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// Markdown renders rows as a two-column table under a heading.
func Markdown(title, symbol string, rows []Row, summary string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s for %s\n\n", title, symbol)
	if len(rows) > 0 {
		sb.WriteString("| Metric | Value |\n|---|---|\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "| %s | %s |\n", r.Label, r.Value)
		}
	}
	if summary != "" {
		if len(rows) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	return sb.String()
}

// normalize fills the kind implied by crypto/stock requests.
func normalize(req Request) Request {
	switch req.Type {
	case TypeCrypto:
		req.Kind = model.KindCrypto
	case TypeStock:
		req.Kind = model.KindStock
	}
	if req.Kind == "" {
		req.Kind = model.KindCrypto
	}
	if req.Currency == "" {
		req.Currency = model.DefaultCurrency
	}
	return req
}
