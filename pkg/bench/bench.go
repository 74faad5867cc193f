// Package bench times the counting algorithms against each other on one corpus.
package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/dtnitsch/tagcount/pkg/mapreduce"
)

// Algorithm is one way of producing the counts of a corpus.
type Algorithm struct {
	Name string
	Run  func(ctx context.Context, records []string) (mapreduce.Counts, error)
}

// DefaultAlgorithms returns the sequential reference followed by every
// parallel strategy at the given pool size.
func DefaultAlgorithms(workers int) []Algorithm {
	algs := []Algorithm{{
		Name: "sequential",
		Run: func(_ context.Context, records []string) (mapreduce.Counts, error) {
			return mapreduce.Sequential(records), nil
		},
	}}
	for _, s := range mapreduce.Strategies {
		opts := mapreduce.Options{Workers: workers, Strategy: s}
		algs = append(algs, Algorithm{
			Name: "parallel-" + string(s),
			Run: func(ctx context.Context, records []string) (mapreduce.Counts, error) {
				return mapreduce.Aggregate(ctx, records, opts)
			},
		})
	}
	return algs
}

// Sample is one timed run.
type Sample struct {
	Seconds          float64 `json:"seconds" yaml:"seconds"`
	RecordsPerSecond float64 `json:"records_per_second" yaml:"records_per_second"`
}

// Result holds every sample of one algorithm.
type Result struct {
	Name    string   `json:"name" yaml:"name"`
	Samples []Sample `json:"samples" yaml:"samples"`
}

// Seconds returns the run times of r.
func (r Result) Seconds() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Seconds
	}
	return out
}

// RecordsPerSecond returns the throughput of every run of r.
func (r Result) RecordsPerSecond() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.RecordsPerSecond
	}
	return out
}

// now is swapped in tests.
var now = time.Now

// Run times each algorithm runs times over records. The counts of every
// algorithm are checked against the first one's; a difference fails the
// benchmark with an error wrapping mapreduce.ErrMismatch.
func Run(ctx context.Context, records []string, algorithms []Algorithm, runs int) ([]Result, error) {
	if runs <= 0 {
		runs = 1
	}

	var oracle mapreduce.Counts
	results := make([]Result, 0, len(algorithms))
	for i, alg := range algorithms {
		res := Result{Name: alg.Name, Samples: make([]Sample, 0, runs)}
		for run := 0; run < runs; run++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			start := now()
			counts, err := alg.Run(ctx, records)
			elapsed := now().Sub(start).Seconds()
			if err != nil {
				return results, fmt.Errorf("failed to run %s: %w", alg.Name, err)
			}

			if i == 0 && run == 0 {
				oracle = counts
			} else if !mapreduce.Equal(oracle, counts) {
				return results, fmt.Errorf("%w: %s disagrees with %s", mapreduce.ErrMismatch, alg.Name, algorithms[0].Name)
			}

			sample := Sample{Seconds: elapsed}
			if elapsed > 0 {
				sample.RecordsPerSecond = float64(len(records)) / elapsed
			}
			res.Samples = append(res.Samples, sample)
		}
		results = append(results, res)
	}
	return results, nil
}
