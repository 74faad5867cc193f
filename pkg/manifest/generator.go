package manifest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dtnitsch/tagcount/pkg/ingest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

const FileName = "summary.json"

// RunResult is what a finished run hands to GenerateSummary.
type RunResult struct {
	RunID      string
	Command    string
	Strategy   string
	Workers    int
	TopK       int
	TagMarker  string
	Inputs     []string
	Records    int
	Stats      ingest.Stats
	Counts     mapreduce.Counts
	Ranking    mapreduce.Ranking
	CorpusHash string
	Duration   time.Duration
}

// Build assembles the manifest for a run. Input sizes come from the storage
// layer; files that cannot be stat'ed are listed without a size.
func Build(r RunResult, s *storage.Storage) SummaryManifest {
	m := SummaryManifest{
		GeneratedAt:    time.Now().Format(time.RFC3339),
		RunID:          r.RunID,
		Command:        r.Command,
		Strategy:       r.Strategy,
		Workers:        r.Workers,
		TopK:           r.TopK,
		TagMarker:      r.TagMarker,
		Records:        r.Records,
		DistinctTokens: len(r.Counts),
		TotalTokens:    r.Counts.Total(),
		CorpusHash:     r.CorpusHash,
		DurationMS:     r.Duration.Milliseconds(),
		Load: LoadSummary{
			Files:      r.Stats.Files,
			Rows:       r.Stats.Rows,
			Duplicates: r.Stats.Duplicates,
			Rejected:   r.Stats.Rejected,
			Filtered:   r.Stats.Filtered,
		},
		TopWords: mapreduce.TopKeywords(r.Ranking.Words),
		TopTags:  mapreduce.TopKeywords(r.Ranking.Tags),
	}

	for _, path := range r.Inputs {
		in := InputSummary{Path: path}
		if stats, err := s.GetFileStats(path); err == nil {
			in.SizeBytes = stats.SizeBytes
		}
		m.Inputs = append(m.Inputs, in)
	}
	return m
}

// GenerateSummary writes summary.json into dir and returns its path.
func GenerateSummary(r RunResult, dir string, s *storage.Storage) (string, error) {
	manifest := Build(r, s)

	manifestPath := filepath.Join(dir, FileName)
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := s.SaveFile(manifestPath, manifestData); err != nil {
		return "", fmt.Errorf("failed to save manifest: %w", err)
	}

	return manifestPath, nil
}
