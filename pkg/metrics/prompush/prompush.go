// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A CLI run is too short-lived to be scraped, so the
// collected registry is pushed once when the run ends.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/dtnitsch/tagcount/pkg/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	grouping   map[string]string
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	recordCounter *prometheus.CounterVec
}

// NewBackend constructs a Pushgateway backend. runID, when set, becomes a
// grouping key so concurrent runs do not overwrite each other.
func NewBackend(jobName, gatewayURL, runID string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tagcount"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StageTotal,
			Help: "Run stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metrics.StageDuration,
			Help:    "Duration of run stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"stage", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record counts per kind (loaded, duplicates, rejected, filtered).",
		},
		[]string{"kind"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, recordCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	grouping := map[string]string{}
	if runID != "" {
		grouping["run"] = runID
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		grouping:      grouping,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		recordCounter: recordCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case metrics.RecordsTotal:
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDuration {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	for k, v := range b.grouping {
		p = p.Grouping(k, v)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
