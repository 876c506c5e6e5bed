// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"sync"
)

// Group runs fn at most once per key at a time. Callers arriving while a
// call is in flight wait for, and share, its result.
//
//   - The first caller for a key is the leader and runs fn on its own
//     goroutine stack, outside the group lock.
//   - Followers wait on done. The result is published before done is
//     closed, so reads after <-done observe it.
//   - A follower whose ctx is cancelled returns ctx.Err() alone; the
//     leader keeps running. The leader's fn sees only the leader's ctx.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done  chan struct{}
	val   V
	err   error
	dups  int
	panic any
}

// Do executes fn for key unless a call is already in flight, in which case
// it waits for that call. shared reports whether the result was handed to
// more than one caller.
//
// A panic in fn is re-raised in the leader and in every follower.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			if c.panic != nil {
				panic(c.panic)
			}
			return c.val, true, c.err
		case <-ctx.Done():
			var zero V
			return zero, true, ctx.Err()
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(c, key, fn)

	if c.panic != nil {
		panic(c.panic)
	}
	return c.val, c.dups > 0, c.err
}

// InFlight reports how many keys currently have a running call.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

// Waiters reports how many followers are waiting on key's call.
func (g *Group[K, V]) Waiters(key K) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.m[key]; ok {
		return c.dups
	}
	return 0
}

func (g *Group[K, V]) run(c *call[V], key K, fn func() (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.panic = r
		}
		g.mu.Lock()
		delete(g.m, key)
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn()
}
