// Package session lays out the per-run output directories and the run index.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

const (
	RankingTextFile = "top_words_hashtags.txt"
	RankingYAMLFile = "ranking.yaml"
)

// RunInfo represents one entry of index.yaml.
type RunInfo struct {
	RunID         string    `yaml:"run_id"`
	UUID          string    `yaml:"uuid"`
	Created       time.Time `yaml:"created"`
	Command       string    `yaml:"command"`
	Strategy      string    `yaml:"strategy"`
	Records       int       `yaml:"records"`
	TopK          int       `yaml:"top_k"`
	InputsPreview []string  `yaml:"inputs_preview,omitempty"` // First 3 inputs
}

// RunIndex represents the index.yaml file at the output root.
type RunIndex struct {
	Runs []RunInfo `yaml:"runs"`
}

// GenerateRunID creates a timestamp-first run ID.
// Format: YYYY-MM-DDTHH-MM-SS-{first 8 hex chars of the uuid}
func GenerateRunID(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s-%s", now.Format("2006-01-02T15-04-05"), id.String()[:8])
}

// GetRunDir returns the full path to a run directory.
func GetRunDir(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID)
}

// GetIndexPath returns the path to the run index file (at output root).
func GetIndexPath(baseDir string) string {
	return filepath.Join(baseDir, "index.yaml")
}

// EnsureRunDir creates the run directory if it doesn't exist.
func EnsureRunDir(baseDir, runID string) (string, error) {
	dir := GetRunDir(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return dir, nil
}

// ReadRunIndex loads index.yaml. A missing file is an empty index.
func ReadRunIndex(baseDir string) (*RunIndex, error) {
	var index RunIndex
	data, err := os.ReadFile(GetIndexPath(baseDir))
	if os.IsNotExist(err) {
		return &index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse run index: %w", err)
	}
	return &index, nil
}

// UpdateRunIndex adds or updates a run entry in index.yaml.
func UpdateRunIndex(baseDir string, info RunInfo, s *storage.Storage) error {
	index, err := ReadRunIndex(baseDir)
	if err != nil {
		return err
	}

	found := false
	for i, r := range index.Runs {
		if r.RunID == info.RunID {
			index.Runs[i] = info
			found = true
			break
		}
	}
	if !found {
		index.Runs = append(index.Runs, info)
	}

	// Timestamp-first naming sorts chronologically; newest first.
	sort.Slice(index.Runs, func(i, j int) bool {
		return index.Runs[i].RunID > index.Runs[j].RunID
	})

	output, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal run index: %w", err)
	}
	if err := s.SaveFile(GetIndexPath(baseDir), output); err != nil {
		return fmt.Errorf("failed to write run index: %w", err)
	}
	return nil
}

// GetInputsPreview returns the first n inputs for preview purposes.
func GetInputsPreview(inputs []string, n int) []string {
	if len(inputs) <= n {
		return inputs
	}
	return inputs[:n]
}

// rankingFile is the layout of ranking.yaml.
type rankingFile struct {
	TopK      int               `yaml:"top_k"`
	TagMarker string            `yaml:"tag_marker"`
	Words     []mapreduce.Entry `yaml:"words"`
	Tags      []mapreduce.Entry `yaml:"tags"`
}

// WriteRanking saves the ranking of a run as plain text and as YAML inside dir.
func WriteRanking(dir string, ranking mapreduce.Ranking, topK int, marker string, s *storage.Storage) error {
	textPath := filepath.Join(dir, RankingTextFile)
	if err := s.SaveFile(textPath, []byte(mapreduce.FormatRanking(ranking))); err != nil {
		return fmt.Errorf("failed to write %s: %w", RankingTextFile, err)
	}

	data, err := yaml.Marshal(rankingFile{
		TopK:      topK,
		TagMarker: marker,
		Words:     ranking.Words,
		Tags:      ranking.Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ranking: %w", err)
	}
	if err := s.SaveFile(filepath.Join(dir, RankingYAMLFile), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", RankingYAMLFile, err)
	}
	return nil
}

// ReadRanking loads ranking.yaml from a run directory.
func ReadRanking(dir string, s *storage.Storage) (mapreduce.Ranking, error) {
	data, err := s.ReadFile(filepath.Join(dir, RankingYAMLFile))
	if err != nil {
		return mapreduce.Ranking{}, err
	}
	var rf rankingFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return mapreduce.Ranking{}, fmt.Errorf("failed to parse ranking: %w", err)
	}
	return mapreduce.Ranking{Words: rf.Words, Tags: rf.Tags}, nil
}
