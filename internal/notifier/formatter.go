package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/format"
	"MarketDash/internal/model"
)

func arrow(change float64) string {
	if change >= 0 {
		return "🟢"
	}
	return "🔴"
}

func quoteLine(q model.Quote) string {
	return fmt.Sprintf("%s <b>%s</b> %s  %s\n",
		arrow(q.Change24h), html.EscapeString(q.Symbol), format.Price(q.Price, q.Currency), format.Percent(q.Change24h))
}

// FormatQuotes formats a market table. limit <= 0 shows every row.
func FormatQuotes(title string, quotes []model.Quote, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b>\n\n", html.EscapeString(title)))
	if len(quotes) == 0 {
		b.WriteString("No data yet.\n")
		return b.String()
	}
	for i, q := range quotes {
		if limit > 0 && i >= limit {
			b.WriteString(fmt.Sprintf("… and %d more\n", len(quotes)-limit))
			break
		}
		b.WriteString(quoteLine(q))
	}
	return b.String()
}

// FormatFavorites formats the favorites digest.
func FormatFavorites(quotes []model.Quote, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⭐ <b>MarketDash favorites</b> | %s\n\n", now.Format("2006-01-02 15:04")))
	if len(quotes) == 0 {
		b.WriteString("No favorites yet. Add one with /fav &lt;id&gt;.\n")
		return b.String()
	}
	for _, q := range quotes {
		b.WriteString(quoteLine(q))
		b.WriteString(fmt.Sprintf("   cap %s | vol %s\n", format.Compact(q.MarketCap, q.Currency), format.Compact(q.Volume24h, q.Currency)))
	}
	return b.String()
}

// FormatNews formats the latest headlines.
func FormatNews(items []model.NewsItem, limit int) string {
	var b strings.Builder
	b.WriteString("📰 <b>Latest news</b>\n\n")
	if len(items) == 0 {
		b.WriteString("No news yet.\n")
		return b.String()
	}
	for i, n := range items {
		if limit > 0 && i >= limit {
			break
		}
		title := html.EscapeString(n.Title)
		if n.URL != "" {
			title = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(n.URL), title)
		}
		b.WriteString(fmt.Sprintf("• %s\n  <i>%s</i> | %s\n", title, html.EscapeString(n.Source), n.PublishedAt.Format("01-02 15:04")))
	}
	return b.String()
}

// FormatAnalysis formats an analysis result.
func FormatAnalysis(res *analysis.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧠 <b>%s for %s</b>\n\n", html.EscapeString(res.Title), html.EscapeString(res.Symbol)))
	if len(res.Rows) > 0 {
		for _, r := range res.Rows {
			b.WriteString(fmt.Sprintf("%s: <b>%s</b>\n", html.EscapeString(r.Label), html.EscapeString(r.Value)))
		}
	} else {
		b.WriteString(html.EscapeString(res.Text))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n<i>source: %s</i>", html.EscapeString(res.Source)))
	return b.String()
}

// FormatAlert formats a load failure.
func FormatAlert(what string, reason string) string {
	return fmt.Sprintf("❌ <b>%s failed to load</b>\n\n%s", html.EscapeString(what), html.EscapeString(reason))
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "Available commands:\n" +
		"• /markets [crypto|stocks]\n" +
		"• /favorites\n" +
		"• /fav &lt;id&gt; | /unfav &lt;id&gt;\n" +
		"• /currency [INR|USD]\n" +
		"• /news\n" +
		"• /analyze &lt;type&gt; &lt;symbol&gt;"
}
