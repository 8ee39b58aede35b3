package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"MarketDash/internal/model"
)

type quotesCmd struct {
	kind     string
	currency string
	limit    int
}

func (*quotesCmd) Name() string     { return "quotes" }
func (*quotesCmd) Synopsis() string { return "print the current market table" }
func (*quotesCmd) Usage() string {
	return `marketdash quotes [-kind crypto|stocks] [-c INR|USD] [-n 20]

  Fetches one market table from the configured source and prints it.
`
}

func (c *quotesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "crypto", "Market to show: crypto or stocks")
	f.StringVar(&c.currency, "c", "", "Display currency (defaults to prefs.currency)")
	f.IntVar(&c.limit, "n", 20, "Maximum rows, 0 for all")
}

func (c *quotesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	src := buildSources(cfg).Prices[kind]
	ctx, cancel := context.WithTimeout(ctx, cfg.Polling.Timeout)
	defer cancel()
	quotes, err := src.FetchQuotes(ctx, currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(quotesMarkdown(kind, currency, quotes, c.limit))
	fmt.Printf("fetched from %s at %s\n", src.Name(), time.Now().Format("15:04:05"))
	return subcommands.ExitSuccess
}
