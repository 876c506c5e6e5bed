package cache

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/rescache/internal/singleflight"
	"github.com/IvanBrykalov/rescache/internal/util"
)

// cache is a sharded, loader-backed resource cache.
type cache[A any, V any] struct {
	shards []*shard[V]
	loader Loader[A, V]
	closed atomic.Bool

	opt Options[V]

	entries    atomic.Int64
	loads      atomic.Uint64
	loadErrors atomic.Uint64

	// singleflight group for coalescing concurrent misses in Load.
	sf singleflight.Group[string, *Handle[V]]
}

// New constructs a cache bound to loader for its whole lifetime.
// loader may be nil for caches filled only through Add/Set; Load then
// returns ErrNoLoader.
func New[A any, V any](loader Loader[A, V], opt Options[V]) Cache[A, V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	c := &cache[A, V]{
		shards: make([]*shard[V], util.ShardCount(opt.Shards)),
		loader: loader,
		opt:    opt,
	}
	for i := range c.shards {
		c.shards[i] = newShard[V](&c.entries)
	}
	return c
}

// ---- Cache[A,V] implementation ----

// Load returns the cached handle for name, loading it with args on a miss.
func (c *cache[A, V]) Load(ctx context.Context, name string, args A) (*Handle[V], error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	s := c.getShard(name)

	// fast path
	if h, ok := s.lookup(name); ok {
		c.opt.Metrics.Hit()
		return h, nil
	}
	c.opt.Metrics.Miss()
	if c.loader == nil {
		return nil, ErrNoLoader
	}

	for {
		led := false
		h, _, err := c.sf.Do(ctx, name, func() (*Handle[V], error) {
			led = true
			return c.loadSlow(ctx, s, name, args)
		})
		if err != nil {
			// The leader gave up on its own context; this caller has not,
			// so it retries and leads the next flight.
			if !led && ctx.Err() == nil && isContextErr(err) {
				continue
			}
			return nil, err
		}
		if h.tryAcquire() {
			return h, nil
		}
		// The entry was removed and destroyed between publish and acquire.
		if c.closed.Load() {
			return nil, ErrClosed
		}
	}
}

// loadSlow runs inside the singleflight leader. It returns a resident
// handle without taking a caller reference.
func (c *cache[A, V]) loadSlow(ctx context.Context, s *shard[V], name string, args A) (*Handle[V], error) {
	// double-check after flight join
	if h, ok := s.peek(name); ok {
		return h, nil
	}

	start := c.now()
	v, err := c.loader.Load(ctx, args)
	c.opt.Metrics.Load(time.Duration(c.now()-start), err)
	if err != nil {
		c.loadErrors.Add(1)
		return nil, &LoadError{Name: name, Err: err}
	}
	c.loads.Add(1)

	h := newHandle(name, v, c.destroy)
	got, inserted, err := s.insert(name, h, false)
	if err != nil {
		h.Release()
		return nil, err
	}
	if !inserted {
		// Lost to a concurrent Add/Set; keep one live value per name.
		c.drop(got, h)
		return got, nil
	}
	c.sized()
	return h, nil
}

// Add inserts v under name if absent; an existing entry wins.
func (c *cache[A, V]) Add(name string, v V) (*Handle[V], error) {
	h := newHandle(name, v, c.destroy)
	if c.closed.Load() {
		h.Release()
		return nil, ErrClosed
	}
	got, inserted, err := c.getShard(name).insert(name, h, true)
	if err != nil {
		h.Release()
		return nil, err
	}
	if !inserted {
		// The cache owns v now; it is not kept, so destroy it unless it
		// is the resident value itself.
		c.drop(got, h)
		return got, nil
	}
	c.sized()
	return got, nil
}

// Set inserts or replaces the entry for name.
func (c *cache[A, V]) Set(name string, v V) (*Handle[V], error) {
	h := newHandle(name, v, c.destroy)
	if c.closed.Load() {
		h.Release()
		return nil, ErrClosed
	}
	got, old, err := c.getShard(name).replace(name, h)
	if err != nil {
		h.Release()
		return nil, err
	}
	if got != h {
		// v is already resident under name.
		h.discard()
		return got, nil
	}
	if old != nil {
		old.Release()
	}
	c.sized()
	return h, nil
}

// Get returns the handle for name or *NotFoundError.
func (c *cache[A, V]) Get(name string) (*Handle[V], error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	h, ok := c.getShard(name).lookup(name)
	if !ok {
		c.opt.Metrics.Miss()
		return nil, &NotFoundError{Name: name}
	}
	c.opt.Metrics.Hit()
	return h, nil
}

// Contains reports whether name is resident.
func (c *cache[A, V]) Contains(name string) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(name).contains(name)
}

// Remove drops name and returns true if it was resident.
func (c *cache[A, V]) Remove(name string) bool {
	if c.closed.Load() {
		return false
	}
	h, ok := c.getShard(name).remove(name)
	if !ok {
		return false
	}
	h.Release()
	c.sized()
	return true
}

// Len returns the total number of resident entries across all shards.
func (c *cache[A, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.len()
	}
	return total
}

// Names returns the resident names in unspecified order.
func (c *cache[A, V]) Names() []string {
	names := make([]string, 0, max(0, int(c.entries.Load())))
	for _, s := range c.shards {
		names = s.appendNames(names)
	}
	return names
}

// Stats sums per-shard counters with the cache-level ones.
func (c *cache[A, V]) Stats() Stats {
	st := Stats{
		Entries:    c.Len(),
		Loads:      c.loads.Load(),
		LoadErrors: c.loadErrors.Load(),
	}
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
	}
	return st
}

// Close drops the cache's reference on every entry. Values still held
// elsewhere are destroyed when their last holder releases them.
func (c *cache[A, V]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	for _, s := range c.shards {
		for _, h := range s.drain() {
			h.Release()
		}
	}
	c.sized()
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing the name.
// len(c.shards) is guaranteed to be a power of two.
func (c *cache[A, V]) getShard(name string) *shard[V] {
	return c.shards[util.ShardIndex(util.HashName(name), len(c.shards))]
}

// sized reports the current entry count to Metrics.
func (c *cache[A, V]) sized() {
	c.opt.Metrics.Size(int(c.entries.Load()))
}

// drop disposes of h, which lost an insert to resident. When both wrap
// the same value the destructor must not run.
func (c *cache[A, V]) drop(resident, h *Handle[V]) {
	if resident.holds(h.val) {
		h.discard()
		return
	}
	h.Release()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// destroy is the release path shared by every handle of this cache.
func (c *cache[A, V]) destroy(name string, v V) {
	if c.opt.OnRelease != nil {
		c.opt.OnRelease(name, v)
		return
	}
	if cl, ok := any(v).(io.Closer); ok {
		_ = cl.Close()
	}
}

func (c *cache[A, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}
