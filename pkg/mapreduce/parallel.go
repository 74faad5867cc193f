package mapreduce

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/tagcount/pkg/analytics"
)

// Strategy selects how per-worker partial counts are combined.
type Strategy string

const (
	// StrategyTree merges partials pairwise, level by level. Each merge owns
	// its output until it is handed to the next level.
	StrategyTree Strategy = "tree"
	// StrategySharded splits the key space by hash so every shard is summed
	// by exactly one goroutine.
	StrategySharded Strategy = "sharded"
	// StrategyLocked folds partials into one mutex-guarded accumulator.
	StrategyLocked Strategy = "locked"
)

// Strategies lists every parallel strategy in a stable order.
var Strategies = []Strategy{StrategyTree, StrategySharded, StrategyLocked}

// ParseStrategy validates a strategy name. An empty name selects StrategyTree.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyTree:
		return StrategyTree, nil
	case StrategySharded:
		return StrategySharded, nil
	case StrategyLocked:
		return StrategyLocked, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want tree, sharded or locked)", s)
}

// chunksPerWorker oversplits the corpus so a slow chunk does not stall the pool.
const chunksPerWorker = 4

// Options configures Aggregate.
type Options struct {
	Workers  int      // pool size; <= 0 uses runtime.NumCPU()
	Strategy Strategy // empty uses StrategyTree
	Shards   int      // StrategySharded only; <= 0 uses Workers
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Strategy == "" {
		o.Strategy = StrategyTree
	}
	if o.Shards <= 0 {
		o.Shards = o.Workers
	}
	return o
}

// Aggregate counts every token across records using a fixed-size worker pool.
// The result does not depend on the strategy, worker count or scheduling order.
// On error no partial counts are returned.
func Aggregate(ctx context.Context, records []string, opts Options) (Counts, error) {
	opts = opts.withDefaults()
	if len(records) == 0 {
		return Counts{}, nil
	}

	var (
		out Counts
		err error
	)
	switch opts.Strategy {
	case StrategyTree:
		out, err = aggregateTree(ctx, records, opts)
	case StrategySharded:
		out, err = aggregateSharded(ctx, records, opts)
	case StrategyLocked:
		out, err = aggregateLocked(ctx, records, opts)
	default:
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// span is a half-open range of record indexes.
type span struct{ lo, hi int }

// partition splits n records into at most parts contiguous, non-empty spans.
func partition(n, parts int) []span {
	if n == 0 {
		return nil
	}
	parts = max(1, min(parts, n))
	spans := make([]span, 0, parts)
	size, rem := n/parts, n%parts
	lo := 0
	for i := 0; i < parts; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		spans = append(spans, span{lo, hi})
		lo = hi
	}
	return spans
}

// countSpan tallies one chunk into a map owned by the calling worker.
func countSpan(records []string) Counts {
	local := make(Counts)
	for _, record := range records {
		analytics.Accumulate(local, record)
	}
	return local
}

// countPartials runs the map phase: one owned partial per chunk.
func countPartials(ctx context.Context, records []string, opts Options) ([]Counts, error) {
	spans := partition(len(records), opts.Workers*chunksPerWorker)
	partials := make([]Counts, len(spans))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, s := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = countSpan(records[s.lo:s.hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return partials, nil
}

func aggregateTree(ctx context.Context, records []string, opts Options) (Counts, error) {
	level, err := countPartials(ctx, records, opts)
	if err != nil {
		return nil, err
	}

	for len(level) > 1 {
		next := make([]Counts, (len(level)+1)/2)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next[i/2] = level[i]
				continue
			}
			a, b := level[i], level[i+1]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				next[i/2] = combineOwned(a, b)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to merge partial counts: %w", err)
		}
		level = next
	}
	return level[0], nil
}

// combineOwned merges two partials that nothing else references, reusing the
// larger map as the output.
func combineOwned(a, b Counts) Counts {
	if len(a) < len(b) {
		a, b = b, a
	}
	a.Absorb(b)
	return a
}

func shardOf(token string, shards int) int {
	return int(xxh3.HashString(token) % uint64(shards))
}

func aggregateSharded(ctx context.Context, records []string, opts Options) (Counts, error) {
	partials, err := countPartials(ctx, records, opts)
	if err != nil {
		return nil, err
	}

	shards := make([]Counts, opts.Shards)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for s := range shards {
		g.Go(func() error {
			out := make(Counts)
			for _, p := range partials {
				if err := gctx.Err(); err != nil {
					return err
				}
				for token, n := range p {
					if shardOf(token, opts.Shards) == s {
						out[token] += n
					}
				}
			}
			shards[s] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to merge shards: %w", err)
	}

	size := 0
	for _, s := range shards {
		size += len(s)
	}
	out := make(Counts, size)
	for _, s := range shards {
		for token, n := range s {
			out[token] = n
		}
	}
	return out, nil
}

func aggregateLocked(ctx context.Context, records []string, opts Options) (Counts, error) {
	var mu sync.Mutex
	acc := make(Counts)

	spans := partition(len(records), opts.Workers*chunksPerWorker)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, s := range spans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := countSpan(records[s.lo:s.hi])
			mu.Lock()
			acc.Absorb(local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return acc, nil
}
