package taskgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunFunc is the externally supplied work body invoked for each
// identifier dispatched through ExecuteConcurrent.
type RunFunc func(ctx context.Context, id string) error

// ExecuteConcurrent dispatches the given identifiers as independent
// units onto the graph's shared worker pool and waits for all of them.
// Units run with no ordering guarantee among themselves. The first
// failure cancels the batch context and aborts the wait; siblings that
// already completed are not rolled back. A nil fn dispatches the
// identifiers without a work body, which degenerates to a fan-out /
// fan-in of the identifiers themselves.
//
// The returned slice holds the identifiers of units that reported
// completion, in completion order; callers must match by identifier,
// not by position. Elapsed wall-clock time is accumulated into the
// scheduler stats whether or not the batch succeeds.
func (g *Graph) ExecuteConcurrent(ctx context.Context, ids []string, fn RunFunc) ([]string, error) {
	start := time.Now()
	defer func() {
		g.addExecutionTime(time.Since(start).Milliseconds())
	}()

	grp, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	completed := make([]string, 0, len(ids))

	for _, id := range ids {
		id := id
		grp.Go(func() error {
			// Take a pool slot; give up if the batch is already failing.
			select {
			case g.sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-g.sem }()

			if fn != nil {
				if err := fn(gctx, id); err != nil {
					return fmt.Errorf("task %s: %w", id, err)
				}
			}

			mu.Lock()
			completed = append(completed, id)
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return completed, nil
}
