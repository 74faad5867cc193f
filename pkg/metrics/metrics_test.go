package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type call struct {
	kind   string
	name   string
	value  float64
	labels Labels
}

type recordingBackend struct {
	mu      sync.Mutex
	calls   []call
	flushes int
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{"counter", name, delta, labels})
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{"histogram", name, value, labels})
}

func (r *recordingBackend) Flush() error {
	r.flushes++
	return nil
}

func install(t *testing.T) *recordingBackend {
	t.Helper()
	rb := &recordingBackend{}
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })
	return rb
}

func TestRecordStage(t *testing.T) {
	rb := install(t)

	RecordStage("tagcount", "aggregate", nil, 2*time.Second)
	RecordStage("tagcount", "load", errors.New("boom"), time.Second)

	if len(rb.calls) != 4 {
		t.Fatalf("got %d calls, want 4", len(rb.calls))
	}
	first, second := rb.calls[0], rb.calls[1]
	if first.kind != "counter" || first.name != StageTotal || first.value != 1 {
		t.Errorf("first call = %+v", first)
	}
	if first.labels["status"] != "success" || first.labels["stage"] != "aggregate" {
		t.Errorf("first labels = %v", first.labels)
	}
	if second.kind != "histogram" || second.name != StageDuration || second.value != 2 {
		t.Errorf("second call = %+v", second)
	}
	if rb.calls[2].labels["status"] != "failure" {
		t.Errorf("failed stage labels = %v", rb.calls[2].labels)
	}
}

func TestRecordRecords(t *testing.T) {
	rb := install(t)

	RecordRecords("tagcount", "loaded", 0)
	RecordRecords("tagcount", "loaded", -3)
	RecordRecords("tagcount", "loaded", 42)

	if len(rb.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(rb.calls))
	}
	if c := rb.calls[0]; c.name != RecordsTotal || c.value != 42 || c.labels["kind"] != "loaded" {
		t.Errorf("call = %+v", c)
	}
}

func TestTimerAndFlush(t *testing.T) {
	rb := install(t)

	StartStage("tagcount", "rank").Done(nil)
	if len(rb.calls) != 2 || rb.calls[0].labels["stage"] != "rank" {
		t.Errorf("calls = %+v", rb.calls)
	}
	if err := Flush(); err != nil || rb.flushes != 1 {
		t.Errorf("Flush() = %v, flushes = %d", err, rb.flushes)
	}
}

func TestNopBackendByDefault(t *testing.T) {
	SetBackend(nil)
	RecordStage("tagcount", "load", nil, time.Millisecond)
	RecordRecords("tagcount", "loaded", 1)
	if err := Flush(); err != nil {
		t.Errorf("Flush() on nop backend = %v", err)
	}
}
