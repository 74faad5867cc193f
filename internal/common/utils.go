package common

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/models"
	"github.com/dtnitsch/tagcount/pkg/dataset"
	"github.com/dtnitsch/tagcount/pkg/ingest"
	"github.com/dtnitsch/tagcount/pkg/metrics"
	"github.com/dtnitsch/tagcount/pkg/metrics/prompush"
	"github.com/dtnitsch/tagcount/pkg/session"
)

// NewLogger builds the JSON stderr logger every command uses.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// CorpusHash fingerprints an ordered record list. Records are NUL separated
// so ["ab"] and ["a", "b"] hash differently.
func CorpusHash(records []string) string {
	h := sha256.New()
	for _, r := range records {
		h.Write([]byte(r))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// LoadConfig reads the YAML config and applies command line overrides.
// Without --config the default file is read only when it exists.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	path := models.DefaultConfigFile
	optional := true
	if c.IsSet("config") {
		path = c.String("config")
		optional = false
	}

	cfg, err := models.LoadConfig(path, optional)
	if err != nil {
		return nil, err
	}

	if c.IsSet("top") {
		cfg.TopK = c.Int("top")
	}
	if c.IsSet("marker") {
		cfg.TagMarker = c.String("marker")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("shards") {
		cfg.Shards = c.Int("shards")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("text-column") {
		cfg.Input.TextColumn = c.String("text-column")
	}
	if c.IsSet("lang") {
		cfg.Input.Languages = c.StringSlice("lang")
	}
	if c.IsSet("readability") {
		cfg.Input.Readability = c.Bool("readability")
	}
	if c.IsSet("pushgateway") {
		cfg.Metrics.Pushgateway = c.String("pushgateway")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Inputs returns the files named on the command line, or the configured
// datasets under data_dir when none are given.
func Inputs(c *cli.Context, cfg *models.Config) []string {
	if c.NArg() > 0 {
		return c.Args().Slice()
	}
	return dataset.NewFetcher(cfg.DataDir, nil, nil).Paths(cfg.Datasets)
}

// IngestOptions maps the input section of the config onto the loader.
func IngestOptions(cfg *models.Config, logger *slog.Logger) ingest.Options {
	return ingest.Options{
		CSV: ingest.CSVOptions{
			TextColumn: cfg.Input.TextColumn,
			IDColumn:   cfg.Input.IDColumn,
			Comma:      cfg.Input.CommaRune(),
		},
		HTML: ingest.HTMLOptions{
			Selector:    cfg.Input.HTMLSelector,
			Readability: cfg.Input.Readability,
		},
		Languages: cfg.Input.Languages,
		Logger:    logger,
	}
}

// LoadCorpus loads paths and records the load stage and record counts.
func LoadCorpus(ctx context.Context, cfg *models.Config, paths []string, logger *slog.Logger) (*ingest.Corpus, error) {
	timer := metrics.StartStage(cfg.Metrics.Job, "load")
	corpus, err := ingest.Load(ctx, paths, IngestOptions(cfg, logger))
	timer.Done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	metrics.RecordRecords(cfg.Metrics.Job, "loaded", len(corpus.Records))
	metrics.RecordRecords(cfg.Metrics.Job, "duplicates", corpus.Stats.Duplicates)
	metrics.RecordRecords(cfg.Metrics.Job, "rejected", corpus.Stats.Rejected)
	metrics.RecordRecords(cfg.Metrics.Job, "filtered", corpus.Stats.Filtered)
	return corpus, nil
}

// Run identifies one invocation in the store, the output tree and metrics.
type Run struct {
	ID      string
	UUID    string
	Started time.Time
}

// NewRun allocates the identifiers of a new invocation.
func NewRun() Run {
	id := uuid.New()
	now := time.Now()
	return Run{ID: session.GenerateRunID(now, id), UUID: id.String(), Started: now}
}

// exit is replaced in tests.
var exit = os.Exit

// FlushAndExit pushes pending metrics and ends the process with code.
// os.Exit skips deferred calls, so the flush happens here.
func FlushAndExit(flush func(), code int) {
	flush()
	exit(code)
}

// SetupMetrics installs the Pushgateway backend when one is configured and
// returns the function that pushes at the end of the run.
func SetupMetrics(cfg *models.Config, run Run, logger *slog.Logger) func() {
	if cfg.Metrics.Pushgateway == "" {
		return func() {}
	}
	backend, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.Pushgateway, run.UUID)
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
		return func() {}
	}
	metrics.SetBackend(backend)
	return func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("failed to push metrics", "pushgateway", cfg.Metrics.Pushgateway, "error", err)
		}
		metrics.SetBackend(nil)
	}
}
