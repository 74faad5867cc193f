package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunNotFound is returned when a run lookup matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded invocation.
type Run struct {
	RunID          int64
	UUID           string
	CreatedAt      time.Time
	Command        string
	Strategy       string
	Workers        int
	TopK           int
	TagMarker      string
	RecordCount    int
	DistinctTokens int
	TotalTokens    int64
	CorpusHash     string
	Inputs         []string
	DurationMS     int64
	OutputDir      string
	Verified       sql.NullBool
}

// Entry is one ranked token of a run.
type Entry struct {
	Category string
	Rank     int
	Token    string
	Count    int64
}

// BenchSample is one timed iteration of a bench run.
type BenchSample struct {
	Algorithm        string
	Iteration        int
	Seconds          float64
	RecordsPerSecond float64
}

// InsertRun stores a run and returns its run_id.
func (db *DB) InsertRun(r *Run) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (run_uuid, command, strategy, workers, top_k, tag_marker,
		                  record_count, distinct_tokens, total_tokens, corpus_hash, inputs,
		                  duration_ms, output_dir, verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UUID, r.Command, r.Strategy, r.Workers, r.TopK, r.TagMarker,
		r.RecordCount, r.DistinctTokens, r.TotalTokens, NewNullString(r.CorpusHash),
		strings.Join(r.Inputs, "\n"), r.DurationMS, NewNullString(r.OutputDir), r.Verified)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	r.RunID = runID
	return runID, nil
}

// InsertEntries stores the ranked entries of one category. Ranks start at 1
// in slice order.
func (db *DB) InsertEntries(runID int64, category string, entries []Entry) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO run_entries (run_id, category, rank, token, count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(runID, category, i+1, e.Token, e.Count); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", e.Token, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entries: %w", err)
	}
	return nil
}

const runColumns = `
	run_id, run_uuid, created_at, command, strategy, workers, top_k, tag_marker,
	record_count, distinct_tokens, total_tokens, corpus_hash, inputs,
	duration_ms, output_dir, verified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r          Run
		corpusHash sql.NullString
		inputs     sql.NullString
		outputDir  sql.NullString
	)
	if err := row.Scan(&r.RunID, &r.UUID, &r.CreatedAt, &r.Command, &r.Strategy, &r.Workers,
		&r.TopK, &r.TagMarker, &r.RecordCount, &r.DistinctTokens, &r.TotalTokens,
		&corpusHash, &inputs, &r.DurationMS, &outputDir, &r.Verified); err != nil {
		return nil, err
	}
	r.CorpusHash = corpusHash.String
	r.OutputDir = outputDir.String
	if inputs.String != "" {
		r.Inputs = strings.Split(inputs.String, "\n")
	}
	return &r, nil
}

// GetRun retrieves a run by its numeric ID.
func (db *DB) GetRun(runID int64) (*Run, error) {
	r, err := scanRun(db.QueryRow("SELECT"+runColumns+" FROM runs WHERE run_id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// GetRunByUUID retrieves a run by its UUID.
func (db *DB) GetRunByUUID(uuid string) (*Run, error) {
	r, err := scanRun(db.QueryRow("SELECT"+runColumns+" FROM runs WHERE run_uuid = ?", uuid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns retrieves runs ordered by most recent first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := "SELECT" + runColumns + " FROM runs ORDER BY run_id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunEntries returns the entries of a run in rank order. An empty category
// returns every category, words first.
func (db *DB) GetRunEntries(runID int64, category string) ([]Entry, error) {
	query := `
		SELECT category, rank, token, count
		FROM run_entries
		WHERE run_id = ?`
	args := []any{runID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY CASE category WHEN 'word' THEN 0 ELSE 1 END, rank"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Category, &e.Rank, &e.Token, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InsertBenchSamples stores every sample of a bench run.
func (db *DB) InsertBenchSamples(runID int64, samples []BenchSample) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range samples {
		if _, err := tx.Exec(`
			INSERT INTO bench_samples (run_id, algorithm, iteration, seconds, records_per_second)
			VALUES (?, ?, ?, ?, ?)
		`, runID, s.Algorithm, s.Iteration, s.Seconds, s.RecordsPerSecond); err != nil {
			return fmt.Errorf("failed to insert bench sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bench samples: %w", err)
	}
	return nil
}

// GetBenchSamples returns the samples of a run ordered by algorithm insertion
// and iteration.
func (db *DB) GetBenchSamples(runID int64) ([]BenchSample, error) {
	rows, err := db.Query(`
		SELECT algorithm, iteration, seconds, records_per_second
		FROM bench_samples
		WHERE run_id = ?
		ORDER BY sample_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bench samples: %w", err)
	}
	defer rows.Close()

	var samples []BenchSample
	for rows.Next() {
		var s BenchSample
		if err := rows.Scan(&s.Algorithm, &s.Iteration, &s.Seconds, &s.RecordsPerSecond); err != nil {
			return nil, fmt.Errorf("failed to scan bench sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// NewNullString returns a NULL for the empty string.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
