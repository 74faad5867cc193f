package ingest

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// commonLanguages are always part of the detector's candidate set so that a
// filter for a single language still has something to reject in favor of.
var commonLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.French,
	lingua.German,
	lingua.Italian,
}

// LanguageFilter keeps records written in one of a set of languages.
type LanguageFilter struct {
	detector lingua.LanguageDetector
	keep     map[lingua.Language]bool
}

// ParseLanguage resolves a language by English name ("english") or ISO 639-1
// code ("en"), case-insensitively.
func ParseLanguage(name string) (lingua.Language, error) {
	name = strings.TrimSpace(name)
	for _, l := range lingua.AllLanguages() {
		if strings.EqualFold(l.String(), name) || strings.EqualFold(l.IsoCode639_1().String(), name) {
			return l, nil
		}
	}
	return lingua.Unknown, fmt.Errorf("unknown language %q", name)
}

// NewLanguageFilter builds a filter for the given names or codes.
func NewLanguageFilter(names []string) (*LanguageFilter, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no languages given")
	}

	keep := make(map[lingua.Language]bool, len(names))
	candidates := append([]lingua.Language(nil), commonLanguages...)
	for _, name := range names {
		l, err := ParseLanguage(name)
		if err != nil {
			return nil, err
		}
		keep[l] = true
		if !containsLanguage(candidates, l) {
			candidates = append(candidates, l)
		}
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(candidates...).
		Build()
	return &LanguageFilter{detector: detector, keep: keep}, nil
}

func containsLanguage(list []lingua.Language, l lingua.Language) bool {
	for _, x := range list {
		if x == l {
			return true
		}
	}
	return false
}

// Keep reports whether record is detected as one of the kept languages.
// Records whose language cannot be detected are not kept.
func (f *LanguageFilter) Keep(record string) bool {
	lang, ok := f.detector.DetectLanguageOf(record)
	return ok && f.keep[lang]
}

// Apply returns the kept records, in order, and the number dropped.
func (f *LanguageFilter) Apply(records []string) ([]string, int) {
	kept := records[:0:0]
	for _, r := range records {
		if f.Keep(r) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}
