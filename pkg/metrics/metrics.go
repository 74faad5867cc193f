// Package metrics records run metrics through a pluggable backend. The default
// backend discards everything, so instrumented code never needs to check
// whether metrics are enabled.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StageTotal    = "tagcount_stage_total"
	StageDuration = "tagcount_stage_duration_seconds"
	RecordsTotal  = "tagcount_records_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a backend. Passing nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStage counts one execution of a run stage (load, aggregate, rank,
// verify, store) and observes its duration.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "stage": stage, "status": status}

	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRecords adds n to the record counter of the given kind
// (loaded, duplicates, rejected, filtered). Non-positive n is ignored.
func RecordRecords(job, kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(n), Labels{"job": job, "kind": kind})
}

// Timer measures a stage from creation until Done.
type Timer struct {
	job, stage string
	start      time.Time
}

// StartStage begins timing a stage.
func StartStage(job, stage string) *Timer {
	return &Timer{job: job, stage: stage, start: time.Now()}
}

// Done records the stage with its outcome.
func (t *Timer) Done(err error) {
	RecordStage(t.job, t.stage, err, time.Since(t.start))
}
