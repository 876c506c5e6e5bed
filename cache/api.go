package cache

import "context"

// Cache is a named resource cache backed by a Loader.
// All methods are safe for concurrent use by multiple goroutines.
//
// Every method that returns a *Handle hands the caller one reference;
// callers Release it when done. Repeated lookups of the same name return
// the same *Handle until the entry is replaced or removed.
type Cache[A any, V any] interface {
	// Load returns the handle cached under name. On a miss it invokes the
	// Loader with args, caches the result and returns it. args are ignored
	// on a hit: they only matter for the first load of a name.
	//
	// Concurrent misses for the same name share one Loader call. If the
	// caller leading that call gives up on its context, waiters whose own
	// context is live retry instead of failing.
	// A Loader failure is returned as *LoadError and leaves the cache
	// untouched. If no Loader was configured, returns ErrNoLoader.
	Load(ctx context.Context, name string, args A) (*Handle[V], error)

	// Add inserts v under name only if name is absent (insert-if-absent).
	// If name is already cached, the existing handle is returned and v is
	// discarded. Add takes ownership of v either way, so a discarded v is
	// destroyed through the release path (see Options.OnRelease), unless
	// it is the resident value itself.
	Add(name string, v V) (*Handle[V], error)

	// Set inserts or replaces the entry for name. A replaced entry loses
	// the cache's reference and is destroyed once its holders release it.
	// Setting the value that is already resident keeps the current handle.
	Set(name string, v V) (*Handle[V], error)

	// Get returns the handle for name, or *NotFoundError if absent.
	// It never constructs anything.
	Get(name string) (*Handle[V], error)

	// Contains reports whether name is cached, without taking a reference
	// or touching hit/miss counters.
	Contains(name string) bool

	// Remove drops the entry for name and returns true if it existed.
	// Outstanding handles stay valid until they are released.
	Remove(name string) bool

	// Len returns the number of resident entries.
	Len() int

	// Names returns the resident names in unspecified order.
	Names() []string

	// Stats returns a point-in-time snapshot of the cache counters.
	Stats() Stats

	// Close drops every entry and marks the cache closed. Later calls
	// return ErrClosed. Close is idempotent.
	Close() error
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Entries    int
	Hits       uint64
	Misses     uint64
	Loads      uint64 // successful Loader calls
	LoadErrors uint64 // failed Loader calls
}
