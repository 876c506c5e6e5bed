// Command bench runs a synthetic asset-loading workload against the
// resource cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/rescache/cache"
	pmet "github.com/IvanBrykalov/rescache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// asset stands in for a texture: a blob that costs latency to build.
type asset struct {
	name string
	data []byte
}

var errSynthetic = errors.New("synthetic load failure")

// validateFlags rejects settings rand.NewZipf or the workers cannot use.
func validateFlags(keys int, zipfS, zipfV float64, size int) error {
	switch {
	case keys <= 0:
		return fmt.Errorf("-keys must be > 0, got %d", keys)
	case !(zipfS > 1):
		return fmt.Errorf("-zipf_s must be > 1, got %v", zipfS)
	case !(zipfV >= 1):
		return fmt.Errorf("-zipf_v must be >= 1, got %v", zipfV)
	case size <= 0:
		return fmt.Errorf("-size must be > 0, got %d", size)
	}
	return nil
}

func main() {
	// ---- Flags ----
	var (
		shards   = flag.Int("shards", 0, "number of shards (0=auto)")
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys      = flag.Int("keys", 10_000, "asset name space size")
		zipfS     = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV     = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		latency   = flag.Duration("latency", 2*time.Millisecond, "simulated loader latency")
		failPct   = flag.Int("fail", 1, "loader failure percentage [0..100]")
		removePct = flag.Int("remove", 1, "percentage of ops that Remove a name [0..100]")
		assetSize = flag.Int("size", 4096, "bytes per synthetic asset")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	)
	flag.Parse()
	if err := validateFlags(*keys, *zipfS, *zipfV, *assetSize); err != nil {
		log.Fatal().Err(err).Msg("[bench] invalid flags")
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Info().Msgf("[bench] pprof: serving at %s", *pprofAddr)
			log.Err(http.ListenAndServe(*pprofAddr, nil)).Msg("[bench] pprof stopped")
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	var metrics cache.Metrics = cache.NoopMetrics{}
	if *metricsAddr != "" {
		metrics = pmet.New(nil, "rescache", "bench", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info().Msgf("[bench] metrics: serving at %s", *metricsAddr)
			log.Err(http.ListenAndServe(*metricsAddr, nil)).Msg("[bench] metrics stopped")
		}()
	}

	// ---- Build cache ----
	var loaderCalls, destroyed uint64
	failPctVal, latencyVal, sizeVal := *failPct, *latency, *assetSize
	loaderRand := rand.New(rand.NewSource(*seed))
	var loaderRandMu sync.Mutex

	l := cache.LoaderFunc[string, *asset](func(ctx context.Context, name string) (*asset, error) {
		atomic.AddUint64(&loaderCalls, 1)
		select {
		case <-time.After(latencyVal):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		loaderRandMu.Lock()
		fail := loaderRand.Intn(100) < failPctVal
		loaderRandMu.Unlock()
		if fail {
			return nil, errSynthetic
		}
		return &asset{name: name, data: make([]byte, sizeVal)}, nil
	})
	c := cache.New[string, *asset](l, cache.Options[*asset]{
		Shards:    *shards,
		Metrics:   metrics,
		OnRelease: func(string, *asset) { atomic.AddUint64(&destroyed, 1) },
	})

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	removePctVal := *removePct
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var loads, removes, errs, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for ctx.Err() == nil {
				atomic.AddUint64(&total, 1)
				name := "asset:" + strconv.FormatUint(localZipf.Uint64(), 10)
				if int(localR.Int31n(100)) < removePctVal {
					atomic.AddUint64(&removes, 1)
					c.Remove(name)
					continue
				}
				atomic.AddUint64(&loads, 1)
				h, err := c.Load(ctx, name, name)
				if err != nil {
					if !errors.Is(err, context.DeadlineExceeded) {
						atomic.AddUint64(&errs, 1)
					}
					continue
				}
				_ = h.Value().data[0]
				h.Release()
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	st := c.Stats()
	_ = c.Close()

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	hitRate := 0.0
	if st.Hits+st.Misses > 0 {
		hitRate = float64(st.Hits) / float64(st.Hits+st.Misses) * 100
	}

	fmt.Printf("shards=%d workers=%d keys=%d dur=%v seed=%d latency=%v fail=%d%%\n",
		*shards, workersN, *keys, elapsed, seedBase, latencyVal, failPctVal)
	fmt.Printf("ops=%d (%.0f ops/s)  loads=%d  removes=%d  errors=%d\n",
		ops, float64(ops)/elapsed.Seconds(), atomic.LoadUint64(&loads), atomic.LoadUint64(&removes), atomic.LoadUint64(&errs))
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  loader-calls=%d  load-errors=%d\n",
		st.Hits, st.Misses, hitRate, atomic.LoadUint64(&loaderCalls), st.LoadErrors)
	fmt.Printf("entries-at-end=%d  destroyed=%d\n", st.Entries, atomic.LoadUint64(&destroyed))
}
