package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dtnitsch/tagcount/pkg/ingest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

func TestGenerateSummary(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tweets.txt")
	if err := os.WriteFile(input, []byte("a a #x\na #x #x\nb\n"), 0644); err != nil {
		t.Fatal(err)
	}

	counts := mapreduce.Counts{"a": 3, "#x": 3, "b": 1}
	run := RunResult{
		RunID:     "2026-01-01T00-00-00-abcdef12",
		Command:   "top",
		Strategy:  "tree",
		Workers:   2,
		TopK:      1,
		TagMarker: "#",
		Inputs:    []string{input, filepath.Join(dir, "missing.csv")},
		Records:   3,
		Stats:     ingest.Stats{Files: 1, Rows: 3},
		Counts:    counts,
		Ranking: mapreduce.Ranking{
			Words: []mapreduce.Entry{{Token: "a", Count: 3}},
			Tags:  []mapreduce.Entry{{Token: "#x", Count: 3}},
		},
		Duration: 1500 * time.Millisecond,
	}

	path, err := GenerateSummary(run, dir, &storage.Storage{})
	if err != nil {
		t.Fatalf("GenerateSummary() error = %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got SummaryManifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}

	if got.Records != 3 || got.DistinctTokens != 3 || got.TotalTokens != 7 {
		t.Errorf("corpus shape = %d/%d/%d, want 3/3/7", got.Records, got.DistinctTokens, got.TotalTokens)
	}
	if got.DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", got.DurationMS)
	}
	if !reflect.DeepEqual(got.TopWords, []string{"a:3"}) || !reflect.DeepEqual(got.TopTags, []string{"#x:3"}) {
		t.Errorf("top entries = %v / %v", got.TopWords, got.TopTags)
	}
	if len(got.Inputs) != 2 || got.Inputs[0].SizeBytes != 17 || got.Inputs[1].SizeBytes != 0 {
		t.Errorf("Inputs = %+v", got.Inputs)
	}
}
