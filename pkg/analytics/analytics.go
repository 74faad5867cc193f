// Package analytics turns a single text record into tokens and per-record tallies,
// and classifies tokens into words and tags.
package analytics

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultTagMarker is the character that marks a token as a tag.
const DefaultTagMarker = "#"

// Category is the class a token belongs to.
type Category int

const (
	Word Category = iota
	Tag
)

// String returns the lowercase category name used in output and storage.
func (c Category) String() string {
	switch c {
	case Tag:
		return "tag"
	default:
		return "word"
	}
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "word", "words":
		return Word, nil
	case "tag", "tags", "hashtag", "hashtags":
		return Tag, nil
	}
	return Word, fmt.Errorf("unknown category %q", s)
}

// ErrInvalidMarker is returned when a tag marker is not exactly one character.
var ErrInvalidMarker = errors.New("tag marker must be exactly one character")

// Classifier decides whether a token is a tag or a word.
// The zero value uses DefaultTagMarker.
type Classifier struct {
	marker string
}

// NewClassifier builds a Classifier for the given single-character marker.
func NewClassifier(marker string) (Classifier, error) {
	if utf8.RuneCountInString(marker) != 1 || !utf8.ValidString(marker) {
		return Classifier{}, fmt.Errorf("%w: %q", ErrInvalidMarker, marker)
	}
	return Classifier{marker: marker}, nil
}

// Marker returns the configured tag marker.
func (c Classifier) Marker() string {
	if c.marker == "" {
		return DefaultTagMarker
	}
	return c.marker
}

// Classify returns Tag when the token starts with the marker and Word otherwise.
func (c Classifier) Classify(token string) Category {
	if strings.HasPrefix(token, c.Marker()) {
		return Tag
	}
	return Word
}

// Is reports whether token belongs to category.
func (c Classifier) Is(category Category) func(token string) bool {
	return func(token string) bool {
		return c.Classify(token) == category
	}
}

// Tokenize splits a record on runs of whitespace. Tokens keep their case.
func Tokenize(record string) []string {
	return strings.Fields(record)
}

// WordFrequency tallies every token of one record in a single pass.
func WordFrequency(record string) map[string]int64 {
	frequencies := make(map[string]int64)
	Accumulate(frequencies, record)
	return frequencies
}

// Accumulate adds the tokens of record into dst. dst must not be shared with
// other goroutines while this runs.
func Accumulate(dst map[string]int64, record string) {
	for _, token := range strings.Fields(record) {
		dst[token]++
	}
}
