package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// Options configures Load.
type Options struct {
	CSV       CSVOptions
	HTML      HTMLOptions
	Languages []string
	Logger    *slog.Logger
}

// Corpus is the ordered list of records read from a set of files.
type Corpus struct {
	Records []string `json:"-" yaml:"-"`
	Stats   Stats    `json:"stats" yaml:"stats"`
}

// Format is how a file's contents become records.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
	FormatHTML  Format = "html"
	FormatLines Format = "lines"
)

// DetectFormat picks a format from the file name, ignoring a trailing .gz.
func DetectFormat(path string) Format {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(name) {
	case ".csv":
		return FormatCSV
	case ".tsv":
		return FormatTSV
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatLines
}

// Read parses r in the given format.
func Read(r io.Reader, format Format, opts Options) ([]string, Stats, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r, opts.CSV)
	case FormatTSV:
		csvOpts := opts.CSV
		csvOpts.Comma = '\t'
		return ReadCSV(r, csvOpts)
	case FormatHTML:
		records, err := ReadHTML(r, opts.HTML)
		return records, Stats{Rows: len(records)}, err
	}
	return ReadLines(r)
}

// Load reads every path and concatenates the records in argument order.
// Files are parsed concurrently. Gzip-compressed files (.gz) are decompressed
// on the fly. The language filter, when configured, runs last.
func Load(ctx context.Context, paths []string, opts Options) (*Corpus, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var filter *LanguageFilter
	if len(opts.Languages) > 0 {
		var err error
		if filter, err = NewLanguageFilter(opts.Languages); err != nil {
			return nil, fmt.Errorf("failed to build language filter: %w", err)
		}
	}

	perFile := make([][]string, len(paths))
	perStats := make([]Stats, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, stats, err := loadFile(path, opts)
			if err != nil {
				return err
			}
			logger.Info("loaded input",
				"path", path,
				"format", DetectFormat(path),
				"size", humanize.Bytes(uint64(stats.Bytes)),
				"rows", stats.Rows,
				"records", len(records),
				"duplicates", stats.Duplicates,
				"rejected", stats.Rejected)
			perFile[i] = records
			perStats[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	corpus := &Corpus{}
	total := 0
	for _, r := range perFile {
		total += len(r)
	}
	corpus.Records = make([]string, 0, total)
	for i := range paths {
		corpus.Records = append(corpus.Records, perFile[i]...)
		corpus.Stats.Add(perStats[i])
	}

	if filter != nil {
		var dropped int
		corpus.Records, dropped = filter.Apply(corpus.Records)
		corpus.Stats.Filtered = dropped
		logger.Info("language filter applied", "languages", opts.Languages, "kept", len(corpus.Records), "dropped", dropped)
	}
	return corpus, nil
}

func loadFile(path string, opts Options) ([]string, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	records, stats, err := Read(r, DetectFormat(path), opts)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	stats.Files = 1
	stats.Bytes = size
	return records, stats, nil
}
