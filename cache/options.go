package cache

import (
	"context"
	"time"
)

// Loader constructs a resource from loader-specific arguments.
// Implementations know nothing about caching; they may do I/O.
type Loader[A any, V any] interface {
	Load(ctx context.Context, args A) (V, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc[A any, V any] func(ctx context.Context, args A) (V, error)

// Load calls f(ctx, args).
func (f LoaderFunc[A, V]) Load(ctx context.Context, args A) (V, error) { return f(ctx, args) }

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	// Load observes one Loader call; err is nil on success.
	Load(d time.Duration, err error)
	// Size reports the resident entry count after a mutation.
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache. Zero values are safe:
//   - Shards <= 0   => auto (rounded up to power of two)
//   - nil Metrics   => NoopMetrics
//   - nil OnRelease => io.Closer.Close when V implements it, else nothing
type Options[V any] struct {
	// Shards is the number of lock partitions. Rounded up to a power of two.
	Shards int

	// OnRelease destroys a value once its last reference is released.
	// Called outside shard locks.
	OnRelease func(name string, v V)

	Metrics Metrics

	// Clock times Loader calls for Metrics.Load. Nil => time.Now().
	Clock Clock
}
