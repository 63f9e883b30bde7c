package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

const verboseKey = "verbose"

func main() {
	cmd := &cli.Command{
		Name:  "datastore",
		Usage: "Inspect and benchmark reactive store graphs",
		Commands: []*cli.Command{
			benchCommand(),
			graphCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  verboseKey,
		Usage: "Log router activity at debug level",
	}
}

// newLogger writes text records to stderr so stdout only carries reports.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}
