package services

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// fanOut runs fn for every item with at most limit calls in flight. Failures
// do not cancel siblings; they are combined into the returned error.
func fanOut[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
