package corpus

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/tagcount/internal/common"
	"github.com/dtnitsch/tagcount/pkg/analytics"
	"github.com/dtnitsch/tagcount/pkg/ingest"
	"github.com/dtnitsch/tagcount/pkg/mapreduce"
)

// Description summarizes a loaded corpus without ranking it.
type Description struct {
	Inputs         []string     `json:"inputs" yaml:"inputs"`
	Size           string       `json:"size" yaml:"size"`
	Records        int          `json:"records" yaml:"records"`
	Load           ingest.Stats `json:"load" yaml:"load"`
	DistinctTokens int          `json:"distinct_tokens" yaml:"distinct_tokens"`
	DistinctWords  int          `json:"distinct_words" yaml:"distinct_words"`
	DistinctTags   int          `json:"distinct_tags" yaml:"distinct_tags"`
	TotalTokens    int64        `json:"total_tokens" yaml:"total_tokens"`
	CorpusHash     string       `json:"corpus_hash" yaml:"corpus_hash"`
	Sample         []string     `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// Describe counts what the corpus contains per category.
func Describe(paths []string, corpus *ingest.Corpus, counts mapreduce.Counts, classifier analytics.Classifier, sample int) Description {
	d := Description{
		Inputs:         paths,
		Size:           humanize.Bytes(uint64(corpus.Stats.Bytes)),
		Records:        len(corpus.Records),
		Load:           corpus.Stats,
		DistinctTokens: len(counts),
		TotalTokens:    counts.Total(),
		CorpusHash:     common.CorpusHash(corpus.Records),
	}
	for token := range counts {
		if classifier.Classify(token) == analytics.Tag {
			d.DistinctTags++
		} else {
			d.DistinctWords++
		}
	}
	if sample > 0 {
		d.Sample = corpus.Records[:min(sample, len(corpus.Records))]
	}
	return d
}

// CorpusAction loads the inputs and prints what the loader made of them.
func CorpusAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	classifier, err := analytics.NewClassifier(cfg.TagMarker)
	if err != nil {
		logger.Error("invalid tag marker", "marker", cfg.TagMarker, "error", err)
		os.Exit(2)
	}

	paths := common.Inputs(c, cfg)
	corpus, err := common.LoadCorpus(c.Context, cfg, paths, logger)
	if err != nil {
		return err
	}

	counts, err := mapreduce.Aggregate(c.Context, corpus.Records, mapreduce.Options{Workers: common.Workers(cfg)})
	if err != nil {
		return fmt.Errorf("failed to count tokens: %w", err)
	}

	format := c.String("format")
	if format != "json" {
		format = "yaml"
	}
	return common.WriteStructured(os.Stdout, format, Describe(paths, corpus, counts, classifier, c.Int("sample")))
}
