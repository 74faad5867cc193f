package fetch

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/internal/common"
	"github.com/dtnitsch/tagcount/models"
	"github.com/dtnitsch/tagcount/pkg/dataset"
	"github.com/dtnitsch/tagcount/pkg/fetcher"
	"github.com/dtnitsch/tagcount/pkg/metrics"
)

// FetchAction downloads the configured datasets into data_dir, skipping the
// ones already present with a matching checksum.
func FetchAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	startTime := time.Now()

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if len(cfg.Datasets) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No datasets configured")
		fmt.Fprintln(os.Stderr, "Add a 'datasets' list to tagcount.yaml or remove it to use the defaults.")
		os.Exit(1)
	}

	client := fetcher.NewFetcher(fetcher.Config{
		Timeout:    c.Duration("timeout"),
		MaxRetries: c.Int("retries"),
	})
	f := dataset.NewFetcher(cfg.DataDir, client, logger)

	if c.Bool("check") {
		return checkAction(f, cfg.Datasets, c.String("format"))
	}

	run := common.NewRun()
	flush := common.SetupMetrics(cfg, run, logger)
	defer flush()

	timer := metrics.StartStage(cfg.Metrics.Job, "fetch")
	results, err := f.EnsureAll(c.Context, cfg.Datasets)
	timer.Done(err)

	output := Output{Status: "success", Datasets: make([]Entry, len(results))}
	var total int64
	for i, r := range results {
		output.Datasets[i] = Entry{
			Name:     r.Name,
			Path:     r.Path,
			Status:   string(r.Status),
			Size:     humanize.Bytes(uint64(r.Bytes)),
			Duration: r.Duration.Round(time.Millisecond).String(),
		}
		total += r.Bytes
	}
	if err != nil {
		output.Status = "failed"
		output.Error = err.Error()
	}
	output.TotalSize = humanize.Bytes(uint64(total))
	output.TotalTimeSeconds = time.Since(startTime).Seconds()

	if werr := common.WriteStructured(os.Stdout, outputFormat(c.String("format")), output); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("failed to fetch datasets: %w", err)
	}
	return nil
}

// checkAction verifies local copies without touching the network and exits 1
// when any dataset is missing or corrupt.
func checkAction(f *dataset.Fetcher, datasets []models.Dataset, format string) error {
	output := Output{Status: "success", Datasets: make([]Entry, len(datasets))}
	for i, ds := range datasets {
		path := f.Path(ds)
		entry := Entry{Name: ds.Name, Path: path, Status: "ok"}
		ok, err := f.Intact(ds)
		switch {
		case err != nil:
			entry.Status = "error"
			entry.Error = err.Error()
		case !ok:
			entry.Status = "missing_or_corrupt"
		}
		if entry.Status != "ok" {
			output.Status = "failed"
		}
		output.Datasets[i] = entry
	}

	if err := common.WriteStructured(os.Stdout, outputFormat(format), output); err != nil {
		return err
	}
	if output.Status != "success" {
		os.Exit(1)
	}
	return nil
}

// outputFormat defaults fetch output to YAML.
func outputFormat(s string) string {
	if s == "json" {
		return "json"
	}
	return "yaml"
}
