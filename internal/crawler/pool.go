package crawler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// runPool calls fn for every item with at most workers calls in flight and
// returns once all of them have finished. Results keep the order of items.
// Items not started before ctx is cancelled leave a zero result, and the
// context error is returned. A panic in fn is turned into a result by
// onPanic instead of crashing the process.
func runPool[T, R any](
	ctx context.Context,
	workers int,
	items []T,
	fn func(ctx context.Context, item T) R,
	onPanic func(item T, recovered any) R,
) ([]R, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, item := range items {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			defer func() {
				if r := recover(); r != nil {
					results[i] = onPanic(item, r)
				}
			}()

			// Each goroutine writes only its own index.
			results[i] = fn(gctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("generation interrupted: %w", err)
	}
	return results, nil
}
