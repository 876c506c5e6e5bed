package cache

import "sync/atomic"

// Handle is a shared, reference-counted resource. Many holders may use it
// at once; the last Release destroys the value.
//
// Each reference must be released exactly once. Releasing more times than
// acquired steals the cache's own reference.
type Handle[V any] struct {
	name    string
	val     V
	refs    atomic.Int64
	destroy func(name string, v V)
}

// newHandle returns a handle holding one reference (the creator's).
func newHandle[V any](name string, v V, destroy func(string, V)) *Handle[V] {
	h := &Handle[V]{name: name, val: v, destroy: destroy}
	h.refs.Store(1)
	return h
}

// Value returns the wrapped resource. It must not be used after the
// caller's reference has been released.
func (h *Handle[V]) Value() V { return h.val }

// Name returns the cache name the handle was created under.
func (h *Handle[V]) Name() string { return h.name }

// Refs returns the current reference count, including the cache's own
// while the entry is resident.
func (h *Handle[V]) Refs() int64 { return h.refs.Load() }

// Alive reports whether the value has not been destroyed yet.
func (h *Handle[V]) Alive() bool { return h.refs.Load() > 0 }

// Release drops one reference. It returns true if that was the last one,
// in which case the value has been destroyed. Releasing a dead handle is a
// no-op returning false.
func (h *Handle[V]) Release() bool {
	for {
		r := h.refs.Load()
		if r <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(r, r-1) {
			if r == 1 {
				if h.destroy != nil {
					h.destroy(h.name, h.val)
				}
				return true
			}
			return false
		}
	}
}

// acquire adds a reference. Callers must already know the handle is alive,
// e.g. because it is resident and they hold the shard lock.
func (h *Handle[V]) acquire() *Handle[V] {
	h.refs.Add(1)
	return h
}

// tryAcquire adds a reference unless the handle is already dead.
func (h *Handle[V]) tryAcquire() bool {
	for {
		r := h.refs.Load()
		if r <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

// discard kills a handle that was never published, without running the
// destructor. Used when the value it wraps is owned by another handle.
func (h *Handle[V]) discard() { h.refs.Store(0) }

// holds reports whether v is the very value h wraps. Values of
// non-comparable types never match.
func (h *Handle[V]) holds(v V) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return any(h.val) == any(v)
}
