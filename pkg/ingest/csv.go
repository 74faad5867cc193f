// Package ingest turns input files into the records the counting engine consumes.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrColumnNotFound is returned when the text column is missing from the header.
var ErrColumnNotFound = errors.New("column not found in header")

// Stats counts what happened to the rows of one or more inputs.
type Stats struct {
	Files      int   `json:"files" yaml:"files"`
	Bytes      int64 `json:"bytes" yaml:"bytes"`
	Rows       int   `json:"rows" yaml:"rows"`
	Duplicates int   `json:"duplicates" yaml:"duplicates"`
	Rejected   int   `json:"rejected" yaml:"rejected"`
	Filtered   int   `json:"filtered" yaml:"filtered"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Files += o.Files
	s.Bytes += o.Bytes
	s.Rows += o.Rows
	s.Duplicates += o.Duplicates
	s.Rejected += o.Rejected
	s.Filtered += o.Filtered
}

// CSVOptions selects the columns of a delimited file.
type CSVOptions struct {
	TextColumn string // required; defaults to "text"
	IDColumn   string // optional; rows sharing an id are collapsed
	Comma      rune   // defaults to ','
}

// decodeUTF8 strips a leading byte order mark and converts UTF-16 input that
// carries one. Input without a BOM passes through byte for byte, so invalid
// UTF-8 survives to validText.
func decodeUTF8(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}

// validText reports whether a decoded field is usable as a record.
func validText(s string) bool {
	return utf8.ValidString(s)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// ReadCSV reads the text column of every row. When the id column is present,
// a repeated id replaces the earlier row's text in place, so each id appears
// once, at the position it was first seen, with its last value.
// Rows whose text is not valid UTF-8 are rejected and counted.
func ReadCSV(r io.Reader, opts CSVOptions) ([]string, Stats, error) {
	var stats Stats
	if opts.TextColumn == "" {
		opts.TextColumn = "text"
	}

	reader := csv.NewReader(decodeUTF8(r))
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, stats, fmt.Errorf("%w: %q (empty input)", ErrColumnNotFound, opts.TextColumn)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}

	textIdx := columnIndex(header, opts.TextColumn)
	if textIdx < 0 {
		return nil, stats, fmt.Errorf("%w: %q", ErrColumnNotFound, opts.TextColumn)
	}
	idIdx := -1
	if opts.IDColumn != "" {
		idIdx = columnIndex(header, opts.IDColumn)
	}

	var records []string
	seen := make(map[string]int)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if textIdx >= len(row) || !validText(row[textIdx]) {
			stats.Rejected++
			continue
		}
		text := row[textIdx]

		if idIdx >= 0 && idIdx < len(row) && row[idIdx] != "" {
			id := row[idIdx]
			if pos, ok := seen[id]; ok {
				records[pos] = text
				stats.Duplicates++
				continue
			}
			seen[id] = len(records)
		}
		records = append(records, text)
	}
	return records, stats, nil
}
