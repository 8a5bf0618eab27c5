package query

import "context"

// Optimistic runs mutate behind a local patch of the cached value for key:
//
//  1. cancel in-flight fetches of key
//  2. snapshot the cached value
//  3. install patch(old) when a value is cached
//  4. run mutate
//  5. on success invalidate key; on failure restore the snapshot and
//     return mutate's error
//
// patch must return a new value and leave old untouched, since old is what
// gets restored.
func Optimistic[T, R any](ctx context.Context, c *Client, key Key, patch func(old T) T, mutate func(ctx context.Context) (R, error)) (R, error) {
	c.CancelQueries(key)
	snap := c.snapshot(key)

	if snap.has {
		if old, ok := snap.value.(T); ok {
			c.Set(key, patch(old))
		}
	}

	res, err := mutate(ctx)
	if err != nil {
		c.restore(key, snap)
		c.log.Debug().Err(err).Str("key", string(key)).Msg("optimistic update rolled back")
		return res, err
	}
	c.Invalidate(key)
	return res, nil
}
