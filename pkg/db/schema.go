package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per top/verify/bench invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_uuid TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    command TEXT NOT NULL,         -- top, verify, bench
    strategy TEXT NOT NULL,        -- sequential, tree, sharded, locked
    workers INTEGER NOT NULL DEFAULT 0,
    top_k INTEGER NOT NULL DEFAULT 0,
    tag_marker TEXT NOT NULL DEFAULT '#',

    -- Corpus shape
    record_count INTEGER NOT NULL DEFAULT 0,
    distinct_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    corpus_hash TEXT,
    inputs TEXT,                   -- newline separated input paths

    duration_ms INTEGER NOT NULL DEFAULT 0,
    output_dir TEXT,
    verified BOOLEAN                -- NULL unless the run compared strategies
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_runs_corpus ON runs(corpus_hash);

-- Ranked entries of a run, per category
CREATE TABLE IF NOT EXISTS run_entries (
    entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    category TEXT NOT NULL CHECK (category IN ('word', 'tag')),
    rank INTEGER NOT NULL,
    token TEXT NOT NULL,
    count INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, category, rank)
);

CREATE INDEX IF NOT EXISTS idx_entries_run ON run_entries(run_id);
CREATE INDEX IF NOT EXISTS idx_entries_token ON run_entries(token);

-- Bench samples: one row per timed iteration
CREATE TABLE IF NOT EXISTS bench_samples (
    sample_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    algorithm TEXT NOT NULL,
    iteration INTEGER NOT NULL,
    seconds REAL NOT NULL,
    records_per_second REAL NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, algorithm, iteration)
);

CREATE INDEX IF NOT EXISTS idx_samples_run ON bench_samples(run_id);
`
