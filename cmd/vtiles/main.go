// Command vtiles inspects, renders and browses vector tilesets.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&inspectCmd{}, "")
	subcommands.Register(&statsCmd{}, "")
	subcommands.Register(&hoverCmd{}, "")
	subcommands.Register(&renderCmd{}, "")
	subcommands.Register(&viewCmd{}, "")
	subcommands.Register(&convertCmd{}, "")

	verbose := flag.Bool("v", false, "Log debug messages")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	os.Exit(int(subcommands.Execute(context.Background())))
}
