package db

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

type getFunc func(ctx context.Context, key string) (Record, error)

// fetchAll runs get for every key with at most limit calls in flight.
// Failed keys are reported through *PartialError and never cancel the rest.
func fetchAll(ctx context.Context, collection string, keys []string, limit int, get getFunc) (map[string]Record, error) {
	var (
		mu     sync.Mutex
		out    = make(map[string]Record, len(keys))
		failed = make(map[string]error)
		g      errgroup.Group
	)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, key := range keys {
		key := key
		g.Go(func() error {
			rec, err := get(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[key] = err
				return nil
			}
			id := rec.ID()
			if id == "" {
				id = key
			}
			out[id] = rec
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return out, &PartialError{Collection: collection, Failed: failed}
	}
	return out, nil
}
