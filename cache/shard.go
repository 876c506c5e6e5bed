package cache

import (
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/rescache/internal/util"
)

// shard is an independent partition of the cache with its own lock.
// Every resident handle carries one reference owned by the shard.
type shard[V any] struct {
	// ---- guarded by mu ----
	mu     sync.RWMutex
	m      map[string]*Handle[V]
	closed bool

	// entries is the cache-wide count, changed only under mu so it never
	// runs ahead of the maps it counts.
	entries *atomic.Int64

	// ---- hot counters, bumped under RLock ----
	_      util.CacheLinePad
	hits   util.PaddedCounter
	misses util.PaddedCounter
}

func newShard[V any](entries *atomic.Int64) *shard[V] {
	return &shard[V]{m: make(map[string]*Handle[V]), entries: entries}
}

// lookup returns the handle for name with a reference for the caller.
func (s *shard[V]) lookup(name string) (*Handle[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.m[name]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return h.acquire(), true
}

// peek returns the handle without taking a reference or counting.
func (s *shard[V]) peek(name string) (*Handle[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.m[name]
	return h, ok
}

// insert stores h under name unless name is present. The shard adopts the
// reference h was created with. With acquire set, the returned handle
// (new or existing) carries an extra reference for the caller.
func (s *shard[V]) insert(name string, h *Handle[V], acquire bool) (got *Handle[V], inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrClosed
	}
	if cur, ok := s.m[name]; ok {
		if acquire {
			cur.acquire()
		}
		return cur, false, nil
	}
	s.m[name] = h
	s.entries.Add(1)
	if acquire {
		h.acquire()
	}
	return h, true, nil
}

// replace stores h under name and returns the previous handle, if any.
// The caller owns the shard's reference on old and must release it
// outside the lock. If the resident handle already wraps h's value it is
// kept: got is then the resident handle and h was not stored.
// got carries an extra reference for the caller.
func (s *shard[V]) replace(name string, h *Handle[V]) (got, old *Handle[V], err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrClosed
	}
	old, ok := s.m[name]
	if ok && old.holds(h.val) {
		return old.acquire(), nil, nil
	}
	if !ok {
		s.entries.Add(1)
	}
	s.m[name] = h.acquire()
	return h, old, nil
}

// remove unlinks name. The caller owns the returned handle's shard reference.
func (s *shard[V]) remove(name string) (*Handle[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.m[name]
	if ok {
		delete(s.m, name)
		s.entries.Add(-1)
	}
	return h, ok
}

// drain closes the shard and hands every resident handle to the caller.
func (s *shard[V]) drain() []*Handle[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	out := make([]*Handle[V], 0, len(s.m))
	for _, h := range s.m {
		out = append(out, h)
	}
	s.entries.Add(-int64(len(out)))
	s.m = make(map[string]*Handle[V])
	return out
}

func (s *shard[V]) contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[name]
	return ok
}

func (s *shard[V]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *shard[V]) appendNames(dst []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name := range s.m {
		dst = append(dst, name)
	}
	return dst
}
