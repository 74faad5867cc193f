package mapreduce

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/tagcount/pkg/analytics"
)

var exampleCorpus = []string{"a a #x", "a #x #x", "b"}

func TestMap(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   Counts
	}{
		{"empty record", "", Counts{}},
		{"counts repeats within one record", "a a #x", Counts{"a": 2, "#x": 1}},
		{"single token", "b", Counts{"b": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Map(tt.record); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Map(%q) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	a := Counts{"x": 1, "y": 2}
	b := Counts{"y": 3, "z": 4}

	got := Merge(a, b)
	want := Counts{"x": 1, "y": 5, "z": 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}

	// Inputs are left untouched.
	if !reflect.DeepEqual(a, Counts{"x": 1, "y": 2}) || !reflect.DeepEqual(b, Counts{"y": 3, "z": 4}) {
		t.Errorf("Merge() modified its inputs: a=%v b=%v", a, b)
	}

	if got := Merge(nil, nil); len(got) != 0 || got == nil {
		t.Errorf("Merge(nil, nil) = %#v, want empty non-nil map", got)
	}
}

func TestMerge_CommutativeAndAssociative(t *testing.T) {
	a := Map("p q q #t")
	b := Map("q r #t #t")
	c := Map("s p")

	if !Equal(Merge(a, b), Merge(b, a)) {
		t.Error("Merge(a, b) != Merge(b, a)")
	}
	if !Equal(Merge(Merge(a, b), c), Merge(a, Merge(b, c))) {
		t.Error("Merge(Merge(a, b), c) != Merge(a, Merge(b, c))")
	}
}

func TestSequential_ExampleScenario(t *testing.T) {
	got := Sequential(exampleCorpus)
	want := Counts{"a": 3, "#x": 3, "b": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sequential() = %v, want %v", got, want)
	}

	r := Rank(got, 1, analytics.Classifier{})
	if want := []Entry{{"a", 3}}; !reflect.DeepEqual(r.Words, want) {
		t.Errorf("top-1 words = %v, want %v", r.Words, want)
	}
	if want := []Entry{{"#x", 3}}; !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("top-1 tags = %v, want %v", r.Tags, want)
	}
}

func TestReduce_Empty(t *testing.T) {
	got := Reduce(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Reduce(nil) = %#v, want empty non-nil map", got)
	}
	if got := Sequential(nil); len(got) != 0 {
		t.Errorf("Sequential(nil) = %v, want empty", got)
	}
}

// randomCorpus builds a deterministic corpus with a skewed vocabulary so that
// many tokens repeat across records.
func randomCorpus(seed uint64, records int) []string {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vocab := make([]string, 0, 60)
	for i := 0; i < 40; i++ {
		vocab = append(vocab, fmt.Sprintf("w%d", i))
	}
	for i := 0; i < 20; i++ {
		vocab = append(vocab, fmt.Sprintf("#t%d", i))
	}

	out := make([]string, records)
	for i := range out {
		n := rng.IntN(12)
		words := make([]string, n)
		for j := range words {
			// Square the draw to skew toward the front of the vocabulary.
			f := rng.Float64()
			words[j] = vocab[int(f*f*float64(len(vocab)))]
		}
		out[i] = strings.Join(words, " ")
	}
	return out
}

// recount derives the expected counts by scanning every record token by token.
func recount(records []string) Counts {
	want := make(Counts)
	for _, r := range records {
		for _, tok := range strings.Fields(r) {
			want[tok]++
		}
	}
	return want
}

func TestMergeOrderIndependence_RandomPartitions(t *testing.T) {
	records := randomCorpus(7, 500)
	want := Sequential(records)

	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 25; trial++ {
		// Assign records to groups non-contiguously.
		groups := make([][]string, 1+rng.IntN(9))
		for _, r := range records {
			g := rng.IntN(len(groups))
			groups[g] = append(groups[g], r)
		}

		partials := make([]Counts, len(groups))
		for i, g := range groups {
			partials[i] = Sequential(g)
		}
		rng.Shuffle(len(partials), func(i, j int) { partials[i], partials[j] = partials[j], partials[i] })

		// Collapse by merging random adjacent pairs until one mapping remains.
		for len(partials) > 1 {
			i := rng.IntN(len(partials) - 1)
			merged := Merge(partials[i], partials[i+1])
			partials = append(partials[:i], append([]Counts{merged}, partials[i+2:]...)...)
		}

		if !Equal(want, partials[0]) {
			t.Fatalf("trial %d: random association differs: %v", trial, Diff(want, partials[0]))
		}
	}
}

func TestSumInvariant_DirectRecount(t *testing.T) {
	records := randomCorpus(42, 300)
	want := recount(records)

	if got := Sequential(records); !Equal(want, got) {
		t.Errorf("Sequential() differs from recount: %v", Diff(want, got))
	}
	for _, s := range Strategies {
		got, err := Aggregate(context.Background(), records, Options{Workers: 3, Strategy: s})
		if err != nil {
			t.Fatalf("Aggregate(%s) error = %v", s, err)
		}
		if !Equal(want, got) {
			t.Errorf("Aggregate(%s) differs from recount: %v", s, Diff(want, got))
		}
	}
}

func TestAggregate_MatchesSequential(t *testing.T) {
	corpora := map[string][]string{
		"example":       exampleCorpus,
		"single":        {"only one record here here"},
		"blank records": {"", "  ", "x", ""},
		"random":        randomCorpus(3, 1000),
	}

	for name, records := range corpora {
		want := Sequential(records)
		for _, s := range Strategies {
			for _, workers := range []int{1, 2, 5, 16} {
				t.Run(fmt.Sprintf("%s/%s/%d", name, s, workers), func(t *testing.T) {
					got, err := Aggregate(context.Background(), records, Options{Workers: workers, Strategy: s})
					if err != nil {
						t.Fatalf("Aggregate() error = %v", err)
					}
					if !Equal(want, got) {
						t.Fatalf("Aggregate() differs from Sequential(): %v", Diff(want, got))
					}
					c := analytics.Classifier{}
					if !EqualRankings(Rank(want, 5, c), Rank(got, 5, c)) {
						t.Errorf("rankings differ: %v vs %v", Rank(want, 5, c), Rank(got, 5, c))
					}
				})
			}
		}
	}
}

func TestAggregate_ShardCounts(t *testing.T) {
	records := randomCorpus(11, 400)
	want := Sequential(records)
	for _, shards := range []int{1, 3, 64} {
		got, err := Aggregate(context.Background(), records, Options{Workers: 4, Strategy: StrategySharded, Shards: shards})
		if err != nil {
			t.Fatalf("Aggregate(shards=%d) error = %v", shards, err)
		}
		if !Equal(want, got) {
			t.Errorf("Aggregate(shards=%d) differs: %v", shards, Diff(want, got))
		}
	}
}

func TestAggregate_EmptyCorpus(t *testing.T) {
	for _, s := range Strategies {
		got, err := Aggregate(context.Background(), nil, Options{Strategy: s})
		if err != nil {
			t.Fatalf("Aggregate(%s, nil) error = %v", s, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Aggregate(%s, nil) = %#v, want empty non-nil map", s, got)
		}
		r := Rank(got, 10, analytics.Classifier{})
		if len(r.Words) != 0 || len(r.Tags) != 0 {
			t.Errorf("Rank(empty) = %v, want empty lists", r)
		}
	}
}

func TestAggregate_CancelledContextReturnsNoCounts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, s := range Strategies {
		got, err := Aggregate(ctx, randomCorpus(5, 200), Options{Workers: 2, Strategy: s})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Aggregate(%s) error = %v, want context.Canceled", s, err)
		}
		if got != nil {
			t.Errorf("Aggregate(%s) returned partial counts on error", s)
		}
	}
}

func TestAggregate_UnknownStrategy(t *testing.T) {
	if _, err := Aggregate(context.Background(), exampleCorpus, Options{Strategy: "bogus"}); err == nil {
		t.Error("Aggregate(bogus) expected error")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyTree, false},
		{"tree", StrategyTree, false},
		{" Sharded ", StrategySharded, false},
		{"LOCKED", StrategyLocked, false},
		{"stealing", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, parts int
		want     []span
	}{
		{0, 4, nil},
		{3, 8, []span{{0, 1}, {1, 2}, {2, 3}}},
		{10, 3, []span{{0, 4}, {4, 7}, {7, 10}}},
		{5, 0, []span{{0, 5}}},
	}
	for _, tt := range tests {
		if got := partition(tt.n, tt.parts); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("partition(%d, %d) = %v, want %v", tt.n, tt.parts, got, tt.want)
		}
	}
}

func TestDiff(t *testing.T) {
	got := Diff(Counts{"a": 1, "b": 2}, Counts{"b": 3, "c": 1})
	want := []Mismatch{
		{Token: "a", Want: 1, Got: 0},
		{Token: "b", Want: 2, Got: 3},
		{Token: "c", Want: 0, Got: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diff() = %v, want %v", got, want)
	}
	if d := Diff(Counts{"a": 1}, Counts{"a": 1}); len(d) != 0 {
		t.Errorf("Diff(equal) = %v, want none", d)
	}
}

func TestCountsTotal(t *testing.T) {
	if got := Sequential(exampleCorpus).Total(); got != 7 {
		t.Errorf("Total() = %d, want 7", got)
	}
}

func BenchmarkAggregate(b *testing.B) {
	records := randomCorpus(99, 20000)
	for _, s := range Strategies {
		b.Run(string(s), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Aggregate(context.Background(), records, Options{Strategy: s}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Sequential(records)
		}
	})
}
