package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/internal/analyze"
	"github.com/dtnitsch/tagcount/internal/bench"
	"github.com/dtnitsch/tagcount/internal/corpus"
	"github.com/dtnitsch/tagcount/internal/db"
	"github.com/dtnitsch/tagcount/internal/fetch"
	"github.com/dtnitsch/tagcount/models"
	"github.com/dtnitsch/tagcount/pkg/help"
)

// inputFlags control how files become records.
func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "text-column",
			Usage: "CSV/TSV column holding the record text",
		},
		&cli.StringSliceFlag{
			Name:  "lang",
			Usage: "Keep only records detected as these languages (name or ISO 639-1 code)",
		},
		&cli.BoolFlag{
			Name:  "readability",
			Usage: "Treat each HTML input as one article instead of one record per element",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Directory holding the datasets read when no files are given",
		},
	}
}

// engineFlags control counting and ranking.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"k"},
			Usage:   "Number of entries to keep per category",
		},
		&cli.StringFlag{
			Name:  "marker",
			Usage: "Leading character that makes a token a tag",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Worker pool size (0 = one per CPU)",
		},
	}
}

// runFlags control where results of a run go.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "output-dir",
			Usage: "Directory for per-run outputs",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "Path to the run database (default: next to the executable)",
		},
		&cli.BoolFlag{
			Name:  "no-store",
			Usage: "Do not record the run in the database",
		},
		&cli.StringFlag{
			Name:  "pushgateway",
			Usage: "Prometheus Pushgateway URL for run metrics",
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// outputFlags choose how results are printed and whether a run directory is written.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: text, json or yaml",
		},
		&cli.BoolFlag{
			Name:  "no-output",
			Usage: "Do not write the run directory under output-dir",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "tagcount",
		Usage:     "Count words and tags across a corpus and rank the most frequent",
		UsageText: "tagcount [global options] command [command options] [files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   fmt.Sprintf("YAML config file (default: %s when present)", models.DefaultConfigFile),
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "quickstart",
				Usage: "Print a YAML quick reference of commands and files",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
			{
				Name:      "top",
				Usage:     "Rank the most frequent words and tags",
				ArgsUsage: "[files...]",
				Action:    analyze.TopAction,
				Flags: concat(engineFlags(), inputFlags(), runFlags(), outputFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Merge strategy: tree, sharded or locked",
					},
					&cli.IntFlag{
						Name:  "shards",
						Usage: "Key shards for the sharded strategy (0 = workers)",
					},
					&cli.BoolFlag{
						Name:  "sequential",
						Usage: "Use the single-threaded reference path",
					},
				}),
			},
			{
				Name:      "verify",
				Usage:     "Check every parallel strategy against the sequential reference",
				ArgsUsage: "[files...]",
				Action:    analyze.VerifyAction,
				Flags:     concat(engineFlags(), inputFlags(), runFlags(), outputFlags()),
			},
			{
				Name:      "bench",
				Usage:     "Time the sequential path and each parallel strategy",
				ArgsUsage: "[files...]",
				Action:    bench.BenchAction,
				Flags: concat(engineFlags(), inputFlags(), runFlags(), []cli.Flag{
					&cli.IntFlag{
						Name:    "runs",
						Aliases: []string{"n"},
						Usage:   "Timed runs per algorithm",
					},
					&cli.StringSliceFlag{
						Name:  "algorithm",
						Usage: "Only run these algorithms (sequential, parallel-tree, parallel-sharded, parallel-locked)",
					},
				}),
			},
			{
				Name:      "corpus",
				Usage:     "Load the inputs and describe the resulting corpus",
				ArgsUsage: "[files...]",
				Action:    corpus.CorpusAction,
				Flags: concat(inputFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:  "marker",
						Usage: "Leading character that makes a token a tag",
					},
					&cli.IntFlag{
						Name:  "sample",
						Usage: "Print the first N records",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "yaml",
						Usage: "Output format: yaml or json",
					},
				}),
			},
			{
				Name:   "fetch",
				Usage:  "Download the configured datasets and verify their checksums",
				Action: fetch.FetchAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory to store datasets in",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-request timeout (0 = 10m)",
					},
					&cli.IntFlag{
						Name:  "retries",
						Usage: "Retries for transient failures (0 = 3, -1 = none)",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Only verify local copies; exit 1 if any is missing or corrupt",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "yaml",
						Usage: "Output format: yaml or json",
					},
					&cli.StringFlag{
						Name:  "pushgateway",
						Usage: "Prometheus Pushgateway URL for run metrics",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List stored runs",
				Action: db.RunsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Maximum number of runs to list (0 = all)",
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "Path to the run database",
					},
				},
			},
			{
				Name:      "run",
				Usage:     "Show a stored run (latest if no id is given)",
				ArgsUsage: "[id|uuid]",
				Action:    db.RunAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only show entries of this category (word or tag)",
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "Path to the run database",
					},
				},
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
