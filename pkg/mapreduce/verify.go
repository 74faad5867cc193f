package mapreduce

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dtnitsch/tagcount/pkg/analytics"
)

// ErrMismatch is returned when two aggregation paths disagree.
var ErrMismatch = errors.New("aggregation results differ")

// Mismatch describes one token whose count differs between two mappings.
// A token missing from one side has a zero count there.
type Mismatch struct {
	Token string `json:"token" yaml:"token"`
	Want  int64  `json:"want" yaml:"want"`
	Got   int64  `json:"got" yaml:"got"`
}

// Diff lists every token whose count differs between want and got, sorted by token.
func Diff(want, got Counts) []Mismatch {
	var out []Mismatch
	for token, w := range want {
		if g := got[token]; g != w {
			out = append(out, Mismatch{Token: token, Want: w, Got: g})
		}
	}
	for token, g := range got {
		if _, ok := want[token]; !ok {
			out = append(out, Mismatch{Token: token, Got: g})
		}
	}
	slices.SortFunc(out, func(a, b Mismatch) int { return strings.Compare(a.Token, b.Token) })
	return out
}

// StrategyCheck is the comparison of one parallel strategy against the
// sequential reference.
type StrategyCheck struct {
	Strategy     Strategy   `json:"strategy" yaml:"strategy"`
	CountsEqual  bool       `json:"counts_equal" yaml:"counts_equal"`
	RankingEqual bool       `json:"ranking_equal" yaml:"ranking_equal"`
	Mismatches   []Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

// Report summarizes a Verify run.
type Report struct {
	Records int             `json:"records" yaml:"records"`
	Tokens  int             `json:"distinct_tokens" yaml:"distinct_tokens"`
	TopK    int             `json:"top_k" yaml:"top_k"`
	Ranking Ranking         `json:"ranking" yaml:"ranking"`
	Checks  []StrategyCheck `json:"checks" yaml:"checks"`

	// Counts are the reference counts the strategies were checked against.
	Counts Counts `json:"-" yaml:"-"`
}

// OK reports whether every strategy matched the reference.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.CountsEqual || !c.RankingEqual {
			return false
		}
	}
	return true
}

// maxReportedMismatches bounds the per-strategy mismatch list.
const maxReportedMismatches = 20

// Verify aggregates records with the sequential reference path and with every
// parallel strategy, and compares both the counts and the top-k rankings.
// The report is returned even when the paths disagree; the error then wraps
// ErrMismatch.
func Verify(ctx context.Context, records []string, k int, classifier analytics.Classifier, workers int) (*Report, error) {
	reference := Sequential(records)
	want := Rank(reference, k, classifier)

	report := &Report{
		Records: len(records),
		Tokens:  len(reference),
		TopK:    k,
		Ranking: want,
		Counts:  reference,
	}

	var failed []string
	for _, s := range Strategies {
		got, err := Aggregate(ctx, records, Options{Workers: workers, Strategy: s})
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate with %s strategy: %w", s, err)
		}
		check := StrategyCheck{
			Strategy:     s,
			CountsEqual:  Equal(reference, got),
			RankingEqual: EqualRankings(want, Rank(got, k, classifier)),
		}
		if !check.CountsEqual {
			diff := Diff(reference, got)
			if len(diff) > maxReportedMismatches {
				diff = diff[:maxReportedMismatches]
			}
			check.Mismatches = diff
		}
		if !check.CountsEqual || !check.RankingEqual {
			failed = append(failed, string(s))
		}
		report.Checks = append(report.Checks, check)
	}

	if len(failed) > 0 {
		return report, fmt.Errorf("%w: strategies %s", ErrMismatch, strings.Join(failed, ", "))
	}
	return report, nil
}
