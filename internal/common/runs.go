package common

import (
	"database/sql"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/dtnitsch/tagcount/models"
	"github.com/dtnitsch/tagcount/pkg/analytics"
	dbpkg "github.com/dtnitsch/tagcount/pkg/db"
	"github.com/dtnitsch/tagcount/pkg/manifest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/session"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

// Workers resolves the configured pool size.
func Workers(cfg *models.Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.NumCPU()
}

// WriteRunOutputs writes the ranking files and summary.json of a run into its
// directory under output_dir and adds it to index.yaml.
func WriteRunOutputs(cfg *models.Config, run Run, result manifest.RunResult) (string, error) {
	s := &storage.Storage{}

	dir, err := session.EnsureRunDir(cfg.OutputDir, run.ID)
	if err != nil {
		return "", err
	}
	if err := session.WriteRanking(dir, result.Ranking, result.TopK, result.TagMarker, s); err != nil {
		return "", err
	}
	if _, err := manifest.GenerateSummary(result, dir, s); err != nil {
		return "", err
	}

	info := session.RunInfo{
		RunID:         run.ID,
		UUID:          run.UUID,
		Created:       run.Started,
		Command:       result.Command,
		Strategy:      result.Strategy,
		Records:       result.Records,
		TopK:          result.TopK,
		InputsPreview: session.GetInputsPreview(result.Inputs, 3),
	}
	if err := session.UpdateRunIndex(cfg.OutputDir, info, s); err != nil {
		return "", err
	}
	return dir, nil
}

// OpenStore opens the run database named by db_path, or the default one.
func OpenStore(cfg *models.Config) (*dbpkg.DB, error) {
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// StoreRun records a run and its ranked entries and returns the run_id.
func StoreRun(database *dbpkg.DB, run Run, result manifest.RunResult, outputDir string, verified sql.NullBool) (int64, error) {
	row := &dbpkg.Run{
		UUID:           run.UUID,
		Command:        result.Command,
		Strategy:       result.Strategy,
		Workers:        result.Workers,
		TopK:           result.TopK,
		TagMarker:      result.TagMarker,
		RecordCount:    result.Records,
		DistinctTokens: len(result.Counts),
		TotalTokens:    result.Counts.Total(),
		CorpusHash:     result.CorpusHash,
		Inputs:         result.Inputs,
		DurationMS:     result.Duration.Milliseconds(),
		OutputDir:      outputDir,
		Verified:       verified,
	}
	runID, err := database.InsertRun(row)
	if err != nil {
		return 0, err
	}

	for _, c := range []analytics.Category{analytics.Word, analytics.Tag} {
		if err := database.InsertEntries(runID, c.String(), toEntries(result.Ranking.Get(c))); err != nil {
			return 0, err
		}
	}
	return runID, nil
}

func toEntries(entries []mapreduce.Entry) []dbpkg.Entry {
	out := make([]dbpkg.Entry, len(entries))
	for i, e := range entries {
		out[i] = dbpkg.Entry{Rank: i + 1, Token: e.Token, Count: e.Count}
	}
	return out
}

// PersistOptions selects which of a run's outputs are kept.
type PersistOptions struct {
	NoOutput bool // skip the run directory under output_dir
	NoStore  bool // skip the run database
	Verified sql.NullBool
}

// Persist writes the run outputs and stores the run, each unless disabled.
// Failures here are logged; the computed result is already on stdout.
func Persist(cfg *models.Config, run Run, result manifest.RunResult, opts PersistOptions, logger *slog.Logger) (int64, string) {
	var dir string
	if !opts.NoOutput {
		var err error
		dir, err = WriteRunOutputs(cfg, run, result)
		if err != nil {
			logger.Warn("failed to write run outputs", "run_id", run.ID, "error", err)
			dir = ""
		} else {
			logger.Info("wrote run outputs", "run_id", run.ID, "dir", dir)
		}
	}

	if opts.NoStore {
		return 0, dir
	}
	database, err := OpenStore(cfg)
	if err != nil {
		logger.Warn("run not stored", "error", err)
		return 0, dir
	}
	defer database.Close()

	runID, err := StoreRun(database, run, result, dir, opts.Verified)
	if err != nil {
		logger.Warn("run not stored", "error", err)
		return 0, dir
	}
	logger.Info("stored run", "id", runID, "uuid", run.UUID, "db", database.Path())
	return runID, dir
}
