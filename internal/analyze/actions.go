package analyze

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/internal/common"
	"github.com/dtnitsch/tagcount/models"
	"github.com/dtnitsch/tagcount/pkg/analytics"
	"github.com/dtnitsch/tagcount/pkg/ingest"
	"github.com/dtnitsch/tagcount/pkg/manifest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/metrics"
)

// TopOutput is what `top --format json|yaml` prints.
type TopOutput struct {
	RunID          string            `json:"run_id" yaml:"run_id"`
	Strategy       string            `json:"strategy" yaml:"strategy"`
	Workers        int               `json:"workers" yaml:"workers"`
	TopK           int               `json:"top_k" yaml:"top_k"`
	TagMarker      string            `json:"tag_marker" yaml:"tag_marker"`
	Records        int               `json:"records" yaml:"records"`
	DistinctTokens int               `json:"distinct_tokens" yaml:"distinct_tokens"`
	TotalTokens    int64             `json:"total_tokens" yaml:"total_tokens"`
	Load           ingest.Stats      `json:"load" yaml:"load"`
	Words          []mapreduce.Entry `json:"words" yaml:"words"`
	Tags           []mapreduce.Entry `json:"tags" yaml:"tags"`
	DurationMS     int64             `json:"duration_ms" yaml:"duration_ms"`
}

// setup holds what every analysis command needs before touching the corpus.
type setup struct {
	logger     *slog.Logger
	cfg        *models.Config
	classifier analytics.Classifier
	format     string
}

// prepare loads settings and exits 2 when they are unusable.
func prepare(c *cli.Context) setup {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	classifier, err := analytics.NewClassifier(cfg.TagMarker)
	if err != nil {
		logger.Error("invalid tag marker", "marker", cfg.TagMarker, "error", err)
		os.Exit(2)
	}
	format, err := common.ParseFormat(c.String("format"))
	if err != nil {
		logger.Error("invalid output format", "error", err)
		os.Exit(2)
	}
	return setup{logger: logger, cfg: cfg, classifier: classifier, format: format}
}

// TopAction counts the corpus and prints the top words and tags.
func TopAction(c *cli.Context) error {
	st := prepare(c)
	logger, cfg := st.logger, st.cfg

	strategy, err := mapreduce.ParseStrategy(cfg.Strategy)
	if err != nil {
		logger.Error("invalid strategy", "error", err)
		os.Exit(2)
	}
	workers := common.Workers(cfg)

	run := common.NewRun()
	flush := common.SetupMetrics(cfg, run, logger)
	defer flush()

	paths := common.Inputs(c, cfg)
	corpus, err := common.LoadCorpus(c.Context, cfg, paths, logger)
	if err != nil {
		return err
	}

	strategyName := string(strategy)
	if c.Bool("sequential") {
		strategyName = "sequential"
	}
	logger.Info("aggregating", "records", len(corpus.Records), "strategy", strategyName, "workers", workers)

	start := time.Now()
	timer := metrics.StartStage(cfg.Metrics.Job, "aggregate")
	var counts mapreduce.Counts
	if c.Bool("sequential") {
		counts = mapreduce.Sequential(corpus.Records)
	} else {
		counts, err = mapreduce.Aggregate(c.Context, corpus.Records, mapreduce.Options{
			Workers:  workers,
			Strategy: strategy,
			Shards:   cfg.Shards,
		})
	}
	timer.Done(err)
	if err != nil {
		return fmt.Errorf("failed to aggregate: %w", err)
	}

	timer = metrics.StartStage(cfg.Metrics.Job, "rank")
	ranking := mapreduce.Rank(counts, cfg.TopK, st.classifier)
	timer.Done(nil)
	duration := time.Since(start)

	logger.Info("aggregation complete",
		"distinct_tokens", len(counts),
		"total_tokens", counts.Total(),
		"duration", duration.String())

	result := manifest.RunResult{
		RunID:      run.ID,
		Command:    "top",
		Strategy:   strategyName,
		Workers:    workers,
		TopK:       cfg.TopK,
		TagMarker:  cfg.TagMarker,
		Inputs:     paths,
		Records:    len(corpus.Records),
		Stats:      corpus.Stats,
		Counts:     counts,
		Ranking:    ranking,
		CorpusHash: common.CorpusHash(corpus.Records),
		Duration:   duration,
	}

	if st.format == "text" {
		fmt.Print(mapreduce.FormatRanking(ranking))
	} else {
		out := TopOutput{
			RunID:          run.ID,
			Strategy:       strategyName,
			Workers:        workers,
			TopK:           cfg.TopK,
			TagMarker:      cfg.TagMarker,
			Records:        len(corpus.Records),
			DistinctTokens: len(counts),
			TotalTokens:    counts.Total(),
			Load:           corpus.Stats,
			Words:          ranking.Words,
			Tags:           ranking.Tags,
			DurationMS:     duration.Milliseconds(),
		}
		if err := common.WriteStructured(os.Stdout, st.format, out); err != nil {
			return err
		}
	}

	timer = metrics.StartStage(cfg.Metrics.Job, "store")
	common.Persist(cfg, run, result, common.PersistOptions{
		NoOutput: c.Bool("no-output"),
		NoStore:  c.Bool("no-store"),
	}, logger)
	timer.Done(nil)
	return nil
}

// VerifyAction runs the sequential reference and every parallel strategy over
// the corpus and exits 1 when any of them disagree.
func VerifyAction(c *cli.Context) error {
	st := prepare(c)
	logger, cfg := st.logger, st.cfg
	workers := common.Workers(cfg)

	run := common.NewRun()
	flush := common.SetupMetrics(cfg, run, logger)

	paths := common.Inputs(c, cfg)
	corpus, err := common.LoadCorpus(c.Context, cfg, paths, logger)
	if err != nil {
		flush()
		return err
	}

	start := time.Now()
	timer := metrics.StartStage(cfg.Metrics.Job, "verify")
	report, err := mapreduce.Verify(c.Context, corpus.Records, cfg.TopK, st.classifier, workers)
	timer.Done(err)
	if err != nil && !errors.Is(err, mapreduce.ErrMismatch) {
		flush()
		return fmt.Errorf("failed to verify: %w", err)
	}
	duration := time.Since(start)

	if st.format == "text" {
		printReport(report)
	} else if werr := common.WriteStructured(os.Stdout, st.format, report); werr != nil {
		flush()
		return werr
	}

	result := manifest.RunResult{
		RunID:      run.ID,
		Command:    "verify",
		Strategy:   "all",
		Workers:    workers,
		TopK:       cfg.TopK,
		TagMarker:  cfg.TagMarker,
		Inputs:     paths,
		Records:    len(corpus.Records),
		Stats:      corpus.Stats,
		Counts:     report.Counts,
		Ranking:    report.Ranking,
		CorpusHash: common.CorpusHash(corpus.Records),
		Duration:   duration,
	}
	common.Persist(cfg, run, result, common.PersistOptions{
		NoOutput: c.Bool("no-output"),
		NoStore:  c.Bool("no-store"),
		Verified: sql.NullBool{Bool: report.OK(), Valid: true},
	}, logger)
	if err != nil {
		logger.Error("parallel results differ from the sequential reference", "error", err)
		common.FlushAndExit(flush, 1)
	}
	flush()
	logger.Info("all strategies match the sequential reference", "records", report.Records, "distinct_tokens", report.Tokens)
	return nil
}

func printReport(r *mapreduce.Report) {
	fmt.Printf("Records: %d, distinct tokens: %d, K: %d\n\n", r.Records, r.Tokens, r.TopK)
	for _, check := range r.Checks {
		status := "OK"
		if !check.CountsEqual || !check.RankingEqual {
			status = "MISMATCH"
		}
		fmt.Printf("%-10s %-9s counts=%t ranking=%t\n", check.Strategy, status, check.CountsEqual, check.RankingEqual)
		for _, m := range check.Mismatches {
			fmt.Printf("    %q: want %d, got %d\n", m.Token, m.Want, m.Got)
		}
	}
	fmt.Println()
	fmt.Print(mapreduce.FormatRanking(r.Ranking))
}
