// Package cache memoizes expensive-to-construct resources (textures, fonts,
// anything a Loader can build) under string names, so each resource is
// built at most once and shared by reference afterwards.
//
// Design
//
//   - Loader: construction is delegated to a Loader[A, V] bound at New.
//     A is the loader-specific argument type (a file path, a font
//     path+size pair, ...). The cache never inspects it.
//
//   - Handles: values are wrapped in reference-counted *Handle[V]. The
//     cache owns one reference per entry; every Load/Add/Set/Get hands
//     the caller another. The last Release destroys the value through
//     Options.OnRelease, or io.Closer when V implements it.
//
//   - Names are the canonical key. Load args only matter on a miss; a hit
//     ignores them.
//
//   - Add is insert-if-absent: an existing entry wins and the supplied
//     value is discarded. Set is the explicit overwrite.
//
//   - Concurrency: names hash onto power-of-two shards, each guarded by an
//     RWMutex. The Loader always runs outside shard locks, and concurrent
//     misses of one name are coalesced (singleflight).
//
//   - No self-eviction: entries leave only via Remove, Set or Close.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Load/Size signals.
//     NoopMetrics is the default; see metrics/prom and metrics/vm.
//
// The cache does not log, retry or substitute fallback resources; failures
// are returned to the caller as is (wrapped in *LoadError).
//
// Basic usage
//
//	textures := cache.New[string, *Texture](
//	    cache.LoaderFunc[string, *Texture](loadTexture),
//	    cache.Options[*Texture]{},
//	)
//	h, err := textures.Load(ctx, "hero", "assets/hero.png")
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//	draw(h.Value())
//
// Injecting a procedurally built value
//
//	h, err := textures.Add("noise", makeNoiseTexture())
package cache
