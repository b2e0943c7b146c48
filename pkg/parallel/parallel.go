// Package parallel runs per-pack work with a bounded number of goroutines.
//
// Every call is a barrier: it returns only once all started items have
// finished. The first failure cancels the context handed to the remaining
// items and is the error returned.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Unbounded runs every item at once.
const Unbounded = 0

// ForEach calls fn for every item with at most limit calls in flight. A limit
// of zero or less means no limit.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, item)
		})
	}
	return g.Wait()
}

// Map is ForEach collecting one result per item, in input order.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	indexes := make([]int, len(items))
	for i := range items {
		indexes[i] = i
	}
	err := ForEach(ctx, limit, indexes, func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
