// Package workerpool provides the CPU-bound worker pool shared process-wide
// for load-time ingest and per-query fan-out (spec §5). It is distinct from
// the network reactor: sessions never dispatch blocking work on the
// goroutine handling their own socket, and the pool never awaits network
// I/O.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent CPU-bound work to its configured weight, by
// default the number of logical CPUs.
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a Pool with the given concurrency; a size <= 0 defaults to
// runtime.NumCPU().
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Run executes fns concurrently, bounded by the pool's weight, and returns
// the first error encountered (if any), in the style of errgroup.Group.
// Callers use this for the per-query fan-out across dictionaries (C3) and
// for parallel dictionary loading at startup (C2).
func (p *Pool) Run(ctx context.Context, fns []func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		if err := p.sem.Acquire(ctx, 1); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return fn(ctx)
		})
	}
	return g.Wait()
}
