package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"MarketDash/internal/analysis"
	"MarketDash/internal/collector"
	"MarketDash/internal/model"
)

type analyzeCmd struct {
	typ      string
	kind     string
	currency string
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "run an AI analysis of one asset" }
func (*analyzeCmd) Usage() string {
	return `marketdash analyze [-type technical] [-kind crypto] <symbol>

  Runs one analysis with the configured analyst and prints the report.
  Types: crypto, stock, technical, sentiment, prediction.
  Use "global" as the symbol for a market-wide view.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", string(analysis.TypeTechnical), "Analysis type")
	f.StringVar(&c.kind, "kind", "crypto", "Market the symbol belongs to: crypto or stocks")
	f.StringVar(&c.currency, "c", "", "Currency for prices (defaults to prefs.currency)")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one symbol is required")
		return subcommands.ExitUsageError
	}
	typ, err := analysis.ParseType(c.typ)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	kind, ok := model.ParseAssetKind(c.kind)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown market %q\n", c.kind)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cur := c.currency
	if cur == "" {
		cur = cfg.Prefs.Currency
	}
	currency, err := model.ParseCurrency(cur)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	src := buildSources(cfg)
	analyst, err := buildAnalyst(ctx, cfg, src.History)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	req := analysis.Request{Type: typ, Symbol: f.Arg(0), Kind: kind, Currency: currency}
	if q, ok := resolve(ctx, src.Prices[kind], currency, req.Symbol); ok {
		req.ID, req.Symbol = q.ID, q.Symbol
	}
	actx, cancel := context.WithTimeout(ctx, cfg.Sources.AnalysisTimeout)
	defer cancel()
	res, err := analyst.Analyze(actx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(res.Text)
	fmt.Printf("source: %s\n", res.Source)
	return subcommands.ExitSuccess
}

// resolve finds symbol in the current market table so history can be
// fetched by source id. A failed fetch just leaves the symbol as typed.
func resolve(ctx context.Context, src collector.PriceSource, currency model.Currency, symbol string) (model.Quote, bool) {
	if src == nil {
		return model.Quote{}, false
	}
	quotes, err := src.FetchQuotes(ctx, currency)
	if err != nil {
		return model.Quote{}, false
	}
	for _, q := range quotes {
		if strings.EqualFold(q.ID, symbol) || strings.EqualFold(q.Symbol, symbol) {
			return q, true
		}
	}
	return model.Quote{}, false
}
