package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"MarketDash/internal/format"
	"MarketDash/internal/model"
)

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintln(os.Stdout, md)
}

func quotesMarkdown(kind model.AssetKind, cur model.Currency, quotes []model.Quote, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s market (%s)\n\n", titleKind(kind), cur)
	if len(quotes) == 0 {
		sb.WriteString("No quotes.\n")
		return sb.String()
	}
	sb.WriteString("| # | Symbol | Name | Price | 24h | Market cap | Volume |\n")
	sb.WriteString("|---:|---|---|---:|---:|---:|---:|\n")
	for i, q := range quotes {
		if limit > 0 && i >= limit {
			break
		}
		rank := i + 1
		if q.Rank > 0 {
			rank = q.Rank
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s | %s |\n",
			rank, q.Symbol, q.Name,
			format.Price(q.Price, cur), format.Percent(q.Change24h),
			format.Compact(q.MarketCap, cur), format.Compact(q.Volume24h, cur))
	}
	return sb.String()
}

func newsMarkdown(items []model.NewsItem, category string, limit int) string {
	var sb strings.Builder
	sb.WriteString("## Latest news")
	if category != "" {
		fmt.Fprintf(&sb, " (%s)", category)
	}
	sb.WriteString("\n\n")
	n := 0
	for _, it := range items {
		if category != "" && !it.HasCategory(category) {
			continue
		}
		if limit > 0 && n >= limit {
			break
		}
		n++
		title := it.Title
		if it.URL != "" {
			title = fmt.Sprintf("[%s](%s)", it.Title, it.URL)
		}
		fmt.Fprintf(&sb, "### %s\n\n*%s, %s*\n\n", title, it.Source, it.PublishedAt.Format("2006-01-02 15:04"))
		if it.Description != "" {
			sb.WriteString(it.Description)
			sb.WriteString("\n\n")
		}
	}
	if n == 0 {
		sb.WriteString("No articles.\n")
	}
	return sb.String()
}

func titleKind(k model.AssetKind) string {
	if k == model.KindStock {
		return "Stock"
	}
	return "Crypto"
}
