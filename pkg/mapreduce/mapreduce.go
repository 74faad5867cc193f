package mapreduce

import (
	"github.com/dtnitsch/tagcount/pkg/analytics"
)

// Counts maps a token to the number of times it occurred.
type Counts map[string]int64

// Map generates the token frequency map for a single record.
func Map(record string) Counts {
	return Counts(analytics.WordFrequency(record))
}

// Merge returns a new map holding, for every token in a or b, the sum of its
// counts in both. Neither input is modified.
func Merge(a, b Counts) Counts {
	out := make(Counts, max(len(a), len(b)))
	for token, n := range a {
		out[token] = n
	}
	for token, n := range b {
		out[token] += n
	}
	return out
}

// Absorb adds every count of other into c. The caller must own c exclusively.
func (c Counts) Absorb(other Counts) {
	for token, n := range other {
		c[token] += n
	}
}

// Total returns the number of token occurrences across all keys.
func (c Counts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Equal reports whether a and b hold the same tokens with the same counts.
func Equal(a, b Counts) bool {
	if len(a) != len(b) {
		return false
	}
	for token, n := range a {
		if m, ok := b[token]; !ok || m != n {
			return false
		}
	}
	return true
}

// Reduce aggregates a slice of frequency maps into a single map with a left fold.
// The inputs are not modified.
func Reduce(intermediate []Counts) Counts {
	finalResults := make(Counts)
	for _, counts := range intermediate {
		finalResults.Absorb(counts)
	}
	return finalResults
}

// Sequential is the single-goroutine reference path: every record is mapped and
// the results are folded one after another. It exists to check the parallel
// strategies against.
func Sequential(records []string) Counts {
	intermediate := make([]Counts, 0, len(records))
	for _, record := range records {
		intermediate = append(intermediate, Map(record))
	}
	return Reduce(intermediate)
}
