package cache

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
)

// benchmarkLoad exercises Load against a warm cache where hitPct of the
// names are resident. Misses use a trivial loader, so this measures the
// cache path rather than construction.
func benchmarkLoad(b *testing.B, hitPct int) {
	l := LoaderFunc[string, string](func(_ context.Context, p string) (string, error) { return p, nil })
	c := New[string, string](l, Options[string]{})
	b.Cleanup(func() { _ = c.Close() })

	const resident = 4096
	names := make([]string, 2*resident)
	for i := range names {
		names[i] = "asset:" + strconv.Itoa(i)
	}
	for i := 0; i < resident; i++ {
		h, _ := c.Load(context.Background(), names[i], names[i])
		h.Release()
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		ctx := context.Background()
		for pb.Next() {
			var n string
			if r.Intn(100) < hitPct {
				n = names[r.Intn(resident)]
			} else {
				n = names[resident+r.Intn(resident)]
			}
			if h, err := c.Load(ctx, n, n); err == nil {
				h.Release()
			}
		}
	})
}

func BenchmarkCache_Load_Hit100(b *testing.B) { benchmarkLoad(b, 100) }
func BenchmarkCache_Load_Hit90(b *testing.B)  { benchmarkLoad(b, 90) }

func BenchmarkCache_Get(b *testing.B) {
	c := New[string, int](nil, Options[int]{})
	b.Cleanup(func() { _ = c.Close() })
	h, _ := c.Add("hero", 1)
	h.Release()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if h, err := c.Get("hero"); err == nil {
				h.Release()
			}
		}
	})
}
