// Package cache memoizes functions in an anyKV store.
//
//	compute := cache.Wrap(func(ctx context.Context, n int) (Result, error) {
//		return slowComputation(ctx, n)
//	}, cache.Options[int]{Store: s, TTL: time.Hour})
//
//	res, err := compute(ctx, 100) // slow
//	res, err = compute(ctx, 100)  // read from the store
//
// Results are stored as json by default. KeyFunc can return an empty key to
// bypass the cache for single calls.
package cache
