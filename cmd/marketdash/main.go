// Command marketdash runs the market dashboard server and offers one-shot
// views of the same data on the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "Path to the YAML config (defaults to $CONFIG_PATH or configs/config.yaml)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "")
	commander.Register(&quotesCmd{}, "views")
	commander.Register(&newsCmd{}, "views")
	commander.Register(&analyzeCmd{}, "views")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
