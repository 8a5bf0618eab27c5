package query

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newClient() *Client { return NewClient(zerolog.Nop()) }

func TestFetchCachesUntilInvalidated(t *testing.T) {
	c := newClient()
	ctx := context.Background()
	var calls int
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Fetch(ctx, c, "n", fn)
		if err != nil || v != 1 {
			t.Fatalf("fetch %d: v=%d err=%v", i, v, err)
		}
	}
	c.Invalidate("n")
	if v, _ := Fetch(ctx, c, "n", fn); v != 2 {
		t.Fatalf("after invalidate v=%d, want 2", v)
	}
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := newClient()
	ctx := context.Background()
	boom := errors.New("boom")
	if _, err := Fetch(ctx, c, "k", func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if _, ok := Get[string](c, "k"); ok {
		t.Fatalf("failed fetch left a value behind")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := newClient()
	c.Set(KeyOf("notes", "all"), 1)
	c.Set(KeyOf("notes", "trash"), 2)
	c.Set(KeyOf("tasks", "board"), 3)
	c.InvalidatePrefix("notes/")

	var refetched []Key
	for _, k := range []Key{"notes/all", "notes/trash", "tasks/board"} {
		_, _ = Fetch(context.Background(), c, k, func(context.Context) (int, error) {
			refetched = append(refetched, k)
			return 0, nil
		})
	}
	want := []Key{"notes/all", "notes/trash"}
	if !reflect.DeepEqual(refetched, want) {
		t.Fatalf("refetched=%v, want %v", refetched, want)
	}
}

func TestFetchCollapsesConcurrentCalls(t *testing.T) {
	c := newClient()
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	started := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			if v, err := Fetch(context.Background(), c, "k", fn); err != nil || v != 7 {
				t.Errorf("v=%d err=%v", v, err)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-started
	}
	close(release)
	wg.Wait()
	if n := calls.Load(); n < 1 || n > 4 {
		t.Fatalf("calls=%d", n)
	}
}

func TestCancelQueriesDropsInFlightResult(t *testing.T) {
	c := newClient()
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int)

	go func() {
		v, _ := Fetch(context.Background(), c, "board", func(context.Context) (string, error) {
			close(entered)
			<-release
			return "stale", nil
		})
		if v == "stale" {
			done <- 1
		} else {
			done <- 0
		}
	}()

	<-entered
	c.CancelQueries("board")
	c.Set("board", "fresh")
	close(release)

	if <-done != 1 {
		t.Fatalf("caller should still receive its own result")
	}
	if v, _ := Get[string](c, "board"); v != "fresh" {
		t.Fatalf("cache=%q, want fresh", v)
	}
}

func TestOptimisticSuccessInvalidates(t *testing.T) {
	c := newClient()
	ctx := context.Background()
	c.Set("list", []string{"a"})

	got, err := Optimistic(ctx, c, "list",
		func(old []string) []string { return append(append([]string(nil), old...), "b") },
		func(context.Context) (string, error) {
			v, _ := Get[[]string](c, "list")
			if len(v) != 2 {
				t.Errorf("patch not visible during mutation: %v", v)
			}
			return "ok", nil
		})
	if err != nil || got != "ok" {
		t.Fatalf("got=%q err=%v", got, err)
	}

	var refetched bool
	_, _ = Fetch(ctx, c, "list", func(context.Context) ([]string, error) {
		refetched = true
		return []string{"a", "b"}, nil
	})
	if !refetched {
		t.Fatalf("successful mutation should invalidate the key")
	}
}

func TestOptimisticFailureRestoresSnapshot(t *testing.T) {
	c := newClient()
	ctx := context.Background()
	before := map[string][]int{"TODO": {1, 2}, "DOING": {3}}
	c.Set("board", before)

	boom := errors.New("write failed")
	_, err := Optimistic(ctx, c, "board",
		func(old map[string][]int) map[string][]int {
			next := map[string][]int{"TODO": {2}, "DOING": {3, 1}}
			return next
		},
		func(context.Context) (struct{}, error) { return struct{}{}, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}

	after, ok := Get[map[string][]int](c, "board")
	if !ok || !reflect.DeepEqual(after, before) {
		t.Fatalf("after=%v, want %v", after, before)
	}
	// Restored entry is fresh again, so no refetch.
	_, _ = Fetch(ctx, c, "board", func(context.Context) (map[string][]int, error) {
		t.Fatalf("unexpected refetch")
		return nil, nil
	})
}

func TestOptimisticWithoutCachedValue(t *testing.T) {
	c := newClient()
	_, err := Optimistic(context.Background(), c, "empty",
		func(old int) int { t.Fatalf("patch called without a cached value"); return old },
		func(context.Context) (int, error) { return 0, errors.New("nope") })
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := Get[int](c, "empty"); ok {
		t.Fatalf("rollback should leave the key empty")
	}
}

func TestFetchNilInterfaceValue(t *testing.T) {
	c := newClient()
	v, err := Fetch(context.Background(), c, "e", func(context.Context) (error, error) {
		return nil, nil
	})
	if err != nil || v != nil {
		t.Fatalf("v=%v err=%v, want nil nil", v, err)
	}
}

func TestFetchIgnoresCallerCancellation(t *testing.T) {
	c := newClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := Fetch(ctx, c, "n", func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("v=%d err=%v, want 7 nil", v, err)
	}
}
