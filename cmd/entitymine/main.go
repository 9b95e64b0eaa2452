// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/entitymine"
	"github.com/poiesic/entitymine/aliases"
	"github.com/poiesic/entitymine/config"
	"github.com/poiesic/entitymine/fileio"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "entitymine",
		Usage: "Mine entity mentions from a linked document corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "analyze",
				Usage:  "Score candidate phrases against the document index",
				Action: analyzeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "YAML configuration file; flags override its values",
					},
					&cli.StringFlag{
						Name:  "aliases",
						Usage: "Alias source table (TSV with header)",
					},
					&cli.StringFlag{
						Name:  "redirects",
						Usage: "Redirect table (two-column TSV)",
					},
					&cli.StringFlag{
						Name:  "phrases",
						Usage: "Candidate phrases, one per line (- for stdin)",
					},
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "Report output (- for stdout, .gz/.zst/.lz4 to compress)",
					},
					&cli.StringFlag{
						Name:    "index",
						Aliases: []string{"d"},
						Usage:   "Path to the document index directory",
					},
					&cli.IntFlag{
						Name:    "parallelism",
						Aliases: []string{"p"},
						Usage:   "Number of scoring workers (capped at the CPU count)",
					},
					&cli.IntFlag{
						Name:  "queue-size",
						Usage: "Capacity of the work queue",
					},
					&cli.IntFlag{
						Name:  "minimum-mentions",
						Usage: "Documents a phrase must match to be scored",
					},
					&cli.IntFlag{
						Name:  "query-retries",
						Usage: "Attempts per index query",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Build the document index from pre-tokenized documents",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Documents as title<TAB>text(<TAB>target<TAB>label)* (- for stdin)",
						Value:   fileio.Stdio,
					},
					&cli.StringFlag{
						Name:     "index",
						Aliases:  []string{"d"},
						Usage:    "Path to the document index directory",
						Required: true,
					},
				},
			},
			{
				Name:   "closure",
				Usage:  "Resolve redirects into the alias table and write the result",
				Action: closureCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "aliases",
						Usage:    "Alias source table (TSV with header)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "redirects",
						Usage:    "Redirect table (two-column TSV)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Resolved alias table (- for stdout)",
						Value:   fileio.Stdio,
					},
				},
			},
		},
	}
}

// loadConfig reads --config when given and applies the flags that were set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.ConfigOption
	for name, opt := range map[string]func(string) config.ConfigOption{
		"aliases":      config.WithAliases,
		"redirects":    config.WithRedirects,
		"phrases":      config.WithPhrases,
		"report":       config.WithReport,
		"index":        config.WithIndex,
		"metrics-addr": config.WithMetricsAddr,
	} {
		if c.IsSet(name) {
			opts = append(opts, opt(c.String(name)))
		}
	}
	for name, opt := range map[string]func(int) config.ConfigOption{
		"parallelism":      config.WithParallelism,
		"queue-size":       config.WithQueueSize,
		"minimum-mentions": config.WithMinimumMentions,
		"query-retries":    config.WithQueryRetries,
	} {
		if c.IsSet(name) {
			opts = append(opts, opt(c.Int(name)))
		}
	}

	if path := c.String("config"); path != "" {
		return config.Load(path, opts...)
	}
	return config.NewConfig(opts...), nil
}

func analyzeCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	job, err := entitymine.NewJob(cfg, entitymine.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := job.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("analysis interrupted: %w", err)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}

func indexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	added, err := entitymine.BuildIndex(ctx, c.String("input"), c.String("index"), slog.Default())
	if err != nil {
		return fmt.Errorf("indexing failed after %d documents: %w", added, err)
	}
	return nil
}

func closureCommand(c *cli.Context) error {
	dm, stats, err := entitymine.ResolveAliases(c.String("aliases"), c.String("redirects"), slog.Default())
	if err != nil {
		return err
	}

	out, err := fileio.OpenOutput(c.String("output"))
	if err != nil {
		return err
	}
	if err := aliases.WriteDataMap(out, dm); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	slog.Info("closure written",
		"aliases", len(dm),
		"resolved", stats.Resolved,
		"anomalous", stats.Anomalous,
		"cycles", stats.Cycles,
		"unresolved", stats.Unresolved)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
