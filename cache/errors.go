package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched (errors.Is) by every *NotFoundError.
	ErrNotFound = errors.New("cache: resource not found")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: closed")

	// ErrNoLoader is returned by Load when the cache was built without a Loader.
	ErrNoLoader = errors.New("cache: no Loader provided")
)

// NotFoundError reports a Get for a name that is not cached.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("cache: %q not found", e.Name) }

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LoadError wraps a Loader failure with the name being loaded.
// Err is the Loader's error, unchanged.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("cache: load %q: %v", e.Name, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }
