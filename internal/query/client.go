// Package query is a small client-side cache keyed by logical resource name.
// It holds the last fetched value per key and supports invalidation and
// optimistic patches that are rolled back when the mutation fails.
package query

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type Key string

// KeyOf joins parts into a hierarchical key, e.g. KeyOf("notes", "all").
func KeyOf(parts ...string) Key {
	return Key(strings.Join(parts, "/"))
}

type entry struct {
	value any
	has   bool
	stale bool
	// gen changes whenever the entry is written or its queries are
	// cancelled; fetch results carrying an older gen are dropped.
	gen uint64
}

type Client struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	log     zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		entries: make(map[Key]*entry),
		log:     log,
	}
}

// entry expects c.mu to be held.
func (c *Client) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Fetch returns the cached value for key, calling fn when there is none or
// it has been invalidated. Concurrent fetches of one key share a single fn
// call, which runs detached from the first caller's cancellation.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	e := c.entry(key)
	if e.has && !e.stale {
		v, ok := e.value.(T)
		c.mu.Unlock()
		if ok {
			return v, nil
		}
	} else {
		c.mu.Unlock()
	}

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		c.mu.Lock()
		gen := c.entry(key).gen
		c.mu.Unlock()

		v, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.entry(key)
		if e.gen != gen {
			c.log.Debug().Str("key", string(key)).Msg("dropping cancelled fetch result")
			return v, nil
		}
		e.value, e.has, e.stale = v, true, false
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Get returns the cached value for key, stale or not.
func Get[T any](c *Client, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.has {
		var zero T
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Set installs v as the fresh value for key, superseding in-flight fetches.
func (c *Client) Set(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.value, e.has, e.stale = v, true, false
	e.gen++
}

// Invalidate marks key stale so the next Fetch refetches it.
func (c *Client) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// InvalidatePrefix marks every key starting with prefix stale.
func (c *Client) InvalidatePrefix(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if strings.HasPrefix(string(k), string(prefix)) {
			e.stale = true
		}
	}
}

// CancelQueries stops in-flight fetches of key from storing their result.
// The underlying calls still run to completion.
func (c *Client) CancelQueries(key Key) {
	c.mu.Lock()
	c.entry(key).gen++
	c.mu.Unlock()
	c.group.Forget(string(key))
}

func (c *Client) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

type snapshot struct {
	value any
	has   bool
	stale bool
}

func (c *Client) snapshot(key Key) snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	return snapshot{value: e.value, has: e.has, stale: e.stale}
}

func (c *Client) restore(key Key, s snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.value, e.has, e.stale = s.value, s.has, s.stale
	e.gen++
}
