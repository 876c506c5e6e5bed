// Package loader provides decorators for cache.Loader implementations.
//
// The cache itself never logs or retries; these wrappers let callers add
// reporting and deadlines around a backend without the backend knowing.
package loader

import (
	"context"
	"time"

	"github.com/IvanBrykalov/rescache/cache"
	"github.com/rs/zerolog"
)

// WithLogging logs every call to next: debug with the duration on success,
// error with the cause on failure. kind tags the entries (e.g. "texture").
func WithLogging[A any, V any](next cache.Loader[A, V], logger zerolog.Logger, kind string) cache.Loader[A, V] {
	l := logger.With().Str("kind", kind).Logger()
	return cache.LoaderFunc[A, V](func(ctx context.Context, args A) (V, error) {
		start := time.Now()
		v, err := next.Load(ctx, args)
		if err != nil {
			l.Error().Err(err).Interface("args", args).Dur("took", time.Since(start)).Msg("[loader] load failed")
			return v, err
		}
		l.Debug().Interface("args", args).Dur("took", time.Since(start)).Msg("[loader] loaded")
		return v, nil
	})
}

// WithTimeout bounds each call to next by d. A non-positive d returns next
// unchanged. The backend must honour ctx for the bound to take effect.
func WithTimeout[A any, V any](next cache.Loader[A, V], d time.Duration) cache.Loader[A, V] {
	if d <= 0 {
		return next
	}
	return cache.LoaderFunc[A, V](func(ctx context.Context, args A) (V, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Load(ctx, args)
	})
}
