package corpus

import (
	"testing"

	"github.com/dtnitsch/tagcount/pkg/analytics"
	"github.com/dtnitsch/tagcount/pkg/ingest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
)

func TestDescribe(t *testing.T) {
	corpus := &ingest.Corpus{
		Records: []string{"a a #x", "a #x #x", "b"},
		Stats:   ingest.Stats{Files: 1, Bytes: 2048, Rows: 4, Duplicates: 1},
	}
	counts := mapreduce.Sequential(corpus.Records)

	d := Describe([]string{"tweets.csv"}, corpus, counts, analytics.Classifier{}, 2)
	if d.Records != 3 || d.DistinctTokens != 3 || d.TotalTokens != 7 {
		t.Errorf("shape = %d/%d/%d, want 3/3/7", d.Records, d.DistinctTokens, d.TotalTokens)
	}
	if d.DistinctWords != 2 || d.DistinctTags != 1 {
		t.Errorf("words/tags = %d/%d, want 2/1", d.DistinctWords, d.DistinctTags)
	}
	if len(d.Sample) != 2 || d.Sample[0] != "a a #x" {
		t.Errorf("Sample = %v", d.Sample)
	}
	if d.Size != "2.0 kB" {
		t.Errorf("Size = %q, want 2.0 kB", d.Size)
	}

	if d := Describe(nil, corpus, counts, analytics.Classifier{}, 10); len(d.Sample) != 3 {
		t.Errorf("oversized sample = %v", d.Sample)
	}
}
