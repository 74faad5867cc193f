package mapreduce

import (
	"container/heap"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dtnitsch/tagcount/pkg/analytics"
)

// Entry is one ranked token.
type Entry struct {
	Token string `json:"token" yaml:"token"`
	Count int64  `json:"count" yaml:"count"`
}

// Before reports whether a ranks ahead of b: higher count first, then the
// lexicographically smaller token.
func Before(a, b Entry) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Token < b.Token
}

func compareEntries(a, b Entry) int {
	switch {
	case Before(a, b):
		return -1
	case Before(b, a):
		return 1
	}
	return 0
}

// worstFirst is a heap whose root is the lowest-ranked entry kept so far.
type worstFirst []Entry

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Before(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(Entry)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// TopN returns up to n entries whose token satisfies keep, best first.
// Filtering happens during selection, so a category with at least n tokens
// always yields n entries. A nil keep accepts every token.
func TopN(counts Counts, n int, keep func(token string) bool) []Entry {
	if n <= 0 || len(counts) == 0 {
		return []Entry{}
	}

	h := make(worstFirst, 0, min(n, len(counts)))
	for token, count := range counts {
		if keep != nil && !keep(token) {
			continue
		}
		e := Entry{Token: token, Count: count}
		if len(h) < n {
			heap.Push(&h, e)
			continue
		}
		if Before(e, h[0]) {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}

	out := []Entry(h)
	slices.SortFunc(out, compareEntries)
	return out
}

// Ranking holds the top entries of each category.
type Ranking struct {
	Words []Entry `json:"words" yaml:"words"`
	Tags  []Entry `json:"tags" yaml:"tags"`
}

// Rank selects the top n words and the top n tags from counts.
func Rank(counts Counts, n int, classifier analytics.Classifier) Ranking {
	return Ranking{
		Words: TopN(counts, n, classifier.Is(analytics.Word)),
		Tags:  TopN(counts, n, classifier.Is(analytics.Tag)),
	}
}

// Get returns the entries of one category.
func (r Ranking) Get(c analytics.Category) []Entry {
	if c == analytics.Tag {
		return r.Tags
	}
	return r.Words
}

// EqualRankings reports whether two rankings list the same entries in the same order.
func EqualRankings(a, b Ranking) bool {
	return slices.Equal(a.Words, b.Words) && slices.Equal(a.Tags, b.Tags)
}

// TopKeywords formats entries as "token:count" strings (e.g., "vaccine:1153").
func TopKeywords(entries []Entry) []string {
	keywords := make([]string, len(entries))
	for i, e := range entries {
		keywords[i] = fmt.Sprintf("%s:%d", e.Token, e.Count)
	}
	return keywords
}

// FormatRanking renders both lists as plain text, one "token count" per line.
func FormatRanking(r Ranking) string {
	var sb strings.Builder
	sb.WriteString("Top words:\n")
	writeEntries(&sb, r.Words)
	sb.WriteString("\nTop hashtags:\n")
	writeEntries(&sb, r.Tags)
	return sb.String()
}

func writeEntries(sb *strings.Builder, entries []Entry) {
	for _, e := range entries {
		fmt.Fprintf(sb, "%s %d\n", e.Token, e.Count)
	}
}

// PrintTopKeywords prints entries as a numbered list.
func PrintTopKeywords(w io.Writer, title string, entries []Entry) {
	fmt.Fprintf(w, "--- %s ---\n", title)
	if len(entries) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(w, "%d. %s: %d\n", i+1, e.Token, e.Count)
	}
}
