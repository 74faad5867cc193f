package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/internal/common"
	"github.com/dtnitsch/tagcount/pkg/analytics"
	"github.com/dtnitsch/tagcount/pkg/bench"
	dbpkg "github.com/dtnitsch/tagcount/pkg/db"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/session"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

// RunsAction lists the stored runs, newest first.
func RunsAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	database, err := common.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	// Print table header
	fmt.Printf("%-6s %-20s %-8s %-11s %-10s %-12s %-6s %-8s\n",
		"ID", "Created", "Command", "Strategy", "Records", "Tokens", "K", "Verified")
	fmt.Println(strings.Repeat("-", 90))

	for _, r := range runs {
		verified := "-"
		if r.Verified.Valid {
			verified = fmt.Sprintf("%t", r.Verified.Bool)
		}
		fmt.Printf("%-6d %-20s %-8s %-11s %-10s %-12s %-6d %-8s\n",
			r.RunID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Command,
			r.Strategy,
			humanize.Comma(int64(r.RecordCount)),
			humanize.Comma(r.TotalTokens),
			r.TopK,
			verified,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'tagcount run <id>' to see details\n")
	return nil
}

// RunAction shows one stored run with its rankings and bench samples.
func RunAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	database, err := common.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := GetRunOrLatest(c, database)
	if errors.Is(err, dbpkg.ErrRunNotFound) {
		return fmt.Errorf("no such run: %s", c.Args().First())
	}
	if err != nil {
		return err
	}

	entries, err := database.GetRunEntries(run.RunID, "")
	if err != nil {
		return err
	}
	samples, err := database.GetBenchSamples(run.RunID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %d (%s)\n", run.RunID, run.UUID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Command:     %s\n", run.Command)
	fmt.Printf("Strategy:    %s (%d workers)\n", run.Strategy, run.Workers)
	fmt.Printf("K / marker:  %d / %q\n", run.TopK, run.TagMarker)
	fmt.Printf("Records:     %s\n", humanize.Comma(int64(run.RecordCount)))
	fmt.Printf("Tokens:      %s total, %s distinct\n", humanize.Comma(run.TotalTokens), humanize.Comma(int64(run.DistinctTokens)))
	fmt.Printf("Duration:    %d ms\n", run.DurationMS)
	if run.CorpusHash != "" {
		fmt.Printf("Corpus hash: %s\n", run.CorpusHash)
	}
	if run.OutputDir != "" {
		fmt.Printf("Output dir:  %s\n", run.OutputDir)
	}
	if run.Verified.Valid {
		fmt.Printf("Verified:    %t\n", run.Verified.Bool)
	}

	fmt.Printf("\nInputs (%d):\n", len(run.Inputs))
	fmt.Println(strings.Repeat("-", 60))
	for i, in := range run.Inputs {
		fmt.Printf("%2d. %s\n", i+1, in)
	}

	ranking := toRanking(entries)
	if len(entries) == 0 && run.OutputDir != "" {
		// ranking.yaml survives a failed entry insert.
		if r, err := session.ReadRanking(run.OutputDir, &storage.Storage{}); err == nil {
			ranking = r
		}
	}
	categories := []analytics.Category{analytics.Word, analytics.Tag}
	if c.IsSet("category") {
		category, err := analytics.ParseCategory(c.String("category"))
		if err != nil {
			return err
		}
		categories = []analytics.Category{category}
	}
	fmt.Println()
	for _, category := range categories {
		mapreduce.PrintTopKeywords(os.Stdout, categoryTitles[category], ranking.Get(category))
	}

	if len(samples) > 0 {
		printBenchSummary(samples)
	}
	return nil
}

var categoryTitles = map[analytics.Category]string{
	analytics.Word: "Top words",
	analytics.Tag:  "Top hashtags",
}

// toRanking groups stored entries back into a ranking. Entries arrive in rank order.
func toRanking(entries []dbpkg.Entry) mapreduce.Ranking {
	r := mapreduce.Ranking{Words: []mapreduce.Entry{}, Tags: []mapreduce.Entry{}}
	for _, e := range entries {
		entry := mapreduce.Entry{Token: e.Token, Count: e.Count}
		if e.Category == analytics.Tag.String() {
			r.Tags = append(r.Tags, entry)
		} else {
			r.Words = append(r.Words, entry)
		}
	}
	return r
}

func printBenchSummary(samples []dbpkg.BenchSample) {
	var order []string
	byAlg := map[string][]float64{}
	for _, s := range samples {
		if _, ok := byAlg[s.Algorithm]; !ok {
			order = append(order, s.Algorithm)
		}
		byAlg[s.Algorithm] = append(byAlg[s.Algorithm], s.Seconds)
	}

	fmt.Printf("\nBench samples (%d):\n", len(samples))
	fmt.Println(strings.Repeat("-", 60))
	for _, name := range order {
		s := bench.Summarize(byAlg[name])
		fmt.Printf("%-18s n=%-3d mean=%.4fs median=%.4fs min=%.4fs max=%.4fs\n",
			name, s.Count, s.Mean, s.Median, s.Min, s.Max)
	}
}
