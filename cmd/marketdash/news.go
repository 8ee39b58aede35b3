package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type newsCmd struct {
	category string
	limit    int
}

func (*newsCmd) Name() string     { return "news" }
func (*newsCmd) Synopsis() string { return "print the latest crypto news" }
func (*newsCmd) Usage() string {
	return `marketdash news [-category BTC] [-n 10]

  Fetches the news feed and prints the latest articles, optionally only
  those tagged with a category.
`
}

func (c *newsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "Only show articles with this category")
	f.IntVar(&c.limit, "n", 10, "Maximum articles, 0 for all")
}

func (c *newsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	src := buildSources(cfg).News
	ctx, cancel := context.WithTimeout(ctx, cfg.Polling.Timeout)
	defer cancel()
	items, err := src.FetchNews(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(newsMarkdown(items, c.category, c.limit))
	return subcommands.ExitSuccess
}
