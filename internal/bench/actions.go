package bench

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/internal/common"
	"github.com/dtnitsch/tagcount/pkg/analytics"
	"github.com/dtnitsch/tagcount/pkg/bench"
	dbpkg "github.com/dtnitsch/tagcount/pkg/db"
	"github.com/dtnitsch/tagcount/pkg/manifest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/metrics"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

const (
	ResultsFile = "results.csv"
	SummaryFile = "summary.csv"
)

// selectAlgorithms keeps the named algorithms, in the default order.
func selectAlgorithms(all []bench.Algorithm, names []string) ([]bench.Algorithm, error) {
	if len(names) == 0 {
		return all, nil
	}
	var selected []bench.Algorithm
	for _, alg := range all {
		if slices.Contains(names, alg.Name) {
			selected = append(selected, alg)
		}
	}
	if len(selected) != len(names) {
		known := make([]string, len(all))
		for i, alg := range all {
			known[i] = alg.Name
		}
		return nil, fmt.Errorf("unknown algorithm in %v (known: %s)", names, strings.Join(known, ", "))
	}
	return selected, nil
}

// BenchAction times the sequential path and every parallel strategy over the
// corpus, writes results.csv and summary.csv, and stores the samples.
func BenchAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if c.IsSet("runs") {
		cfg.Bench.Runs = c.Int("runs")
	}
	classifier, err := analytics.NewClassifier(cfg.TagMarker)
	if err != nil {
		logger.Error("invalid tag marker", "marker", cfg.TagMarker, "error", err)
		os.Exit(2)
	}
	workers := common.Workers(cfg)
	algorithms, err := selectAlgorithms(bench.DefaultAlgorithms(workers), c.StringSlice("algorithm"))
	if err != nil {
		logger.Error("invalid algorithm selection", "error", err)
		os.Exit(2)
	}

	run := common.NewRun()
	flush := common.SetupMetrics(cfg, run, logger)
	defer flush()

	paths := common.Inputs(c, cfg)
	corpus, err := common.LoadCorpus(c.Context, cfg, paths, logger)
	if err != nil {
		return err
	}

	logger.Info("benchmarking",
		"records", len(corpus.Records),
		"algorithms", len(algorithms),
		"runs", cfg.Bench.Runs,
		"workers", workers)

	start := time.Now()
	timer := metrics.StartStage(cfg.Metrics.Job, "bench")
	results, err := bench.Run(c.Context, corpus.Records, algorithms, cfg.Bench.Runs)
	timer.Done(err)
	if errors.Is(err, mapreduce.ErrMismatch) {
		logger.Error("algorithms disagree", "error", err)
		common.FlushAndExit(flush, 1)
	}
	if err != nil {
		return fmt.Errorf("failed to benchmark: %w", err)
	}
	duration := time.Since(start)

	printResults(results)

	counts := mapreduce.Sequential(corpus.Records)
	result := manifest.RunResult{
		RunID:      run.ID,
		Command:    "bench",
		Strategy:   "all",
		Workers:    workers,
		TopK:       cfg.TopK,
		TagMarker:  cfg.TagMarker,
		Inputs:     paths,
		Records:    len(corpus.Records),
		Stats:      corpus.Stats,
		Counts:     counts,
		Ranking:    mapreduce.Rank(counts, cfg.TopK, classifier),
		CorpusHash: common.CorpusHash(corpus.Records),
		Duration:   duration,
	}

	dir, err := common.WriteRunOutputs(cfg, run, result)
	if err != nil {
		return err
	}
	if err := writeCSVs(dir, results); err != nil {
		return err
	}
	logger.Info("wrote bench results", "dir", dir)

	if c.Bool("no-store") {
		return nil
	}
	database, err := common.OpenStore(cfg)
	if err != nil {
		logger.Warn("run not stored", "error", err)
		return nil
	}
	defer database.Close()

	runID, err := common.StoreRun(database, run, result, dir, sql.NullBool{Bool: true, Valid: true})
	if err != nil {
		logger.Warn("run not stored", "error", err)
		return nil
	}
	if err := database.InsertBenchSamples(runID, toSamples(results)); err != nil {
		logger.Warn("bench samples not stored", "error", err)
		return nil
	}
	logger.Info("stored run", "id", runID, "uuid", run.UUID, "db", database.Path())
	return nil
}

func writeCSVs(dir string, results []bench.Result) error {
	s := &storage.Storage{}

	var buf bytes.Buffer
	if err := bench.WriteResultsCSV(&buf, results); err != nil {
		return err
	}
	if err := s.SaveFile(filepath.Join(dir, ResultsFile), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", ResultsFile, err)
	}

	buf.Reset()
	if err := bench.WriteSummaryCSV(&buf, results); err != nil {
		return err
	}
	if err := s.SaveFile(filepath.Join(dir, SummaryFile), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", SummaryFile, err)
	}
	return nil
}

func toSamples(results []bench.Result) []dbpkg.BenchSample {
	var samples []dbpkg.BenchSample
	for _, r := range results {
		for i, s := range r.Samples {
			samples = append(samples, dbpkg.BenchSample{
				Algorithm:        r.Name,
				Iteration:        i + 1,
				Seconds:          s.Seconds,
				RecordsPerSecond: s.RecordsPerSecond,
			})
		}
	}
	return samples
}

func printResults(results []bench.Result) {
	fmt.Printf("%-18s %-4s %-12s %-12s %-12s %-12s %-14s\n",
		"Algorithm", "Runs", "Mean (s)", "Median (s)", "Min (s)", "Std dev", "Records/s")
	fmt.Println(strings.Repeat("-", 90))
	for _, r := range results {
		secs := bench.Summarize(r.Seconds())
		rps := bench.Summarize(r.RecordsPerSecond())
		fmt.Printf("%-18s %-4d %-12.4f %-12.4f %-12.4f %-12.4f %-14.0f\n",
			r.Name, secs.Count, secs.Mean, secs.Median, secs.Min, secs.StdDev, rps.Mean)
	}
}
