package cache

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// A mixed workload of concurrent Load/Add/Set/Get/Remove on random names.
// Every handle obtained is released; values must be destroyed exactly once.
// Should pass under `-race` without detector reports.
func TestRace_Basic(t *testing.T) {
	var destroyed, created atomic.Int64
	l := LoaderFunc[string, *resource](func(_ context.Context, p string) (*resource, error) {
		created.Add(1)
		return &resource{id: p}, nil
	})
	c := New[string, *resource](l, Options[*resource]{
		Shards: 8,
		OnRelease: func(_ string, r *resource) {
			if r.closed.Add(1) != 1 {
				t.Errorf("%s destroyed twice", r.id)
			}
			destroyed.Add(1)
		},
	})

	workers := 4 * runtime.GOMAXPROCS(0)
	names := 256
	deadline := time.Now().Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(names))
				var h *Handle[*resource]
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% Remove
					c.Remove(k)
				case 5, 6, 7: // ~3% Set
					created.Add(1)
					h, _ = c.Set(k, &resource{id: k})
				case 8, 9, 10, 11, 12: // ~5% Add
					created.Add(1)
					h, _ = c.Add(k, &resource{id: k})
				case 13, 14, 15, 16, 17, 18, 19, 20, 21, 22: // ~10% Get
					h, _ = c.Get(k)
				default: // ~77% Load
					h, _ = c.Load(context.Background(), k, k)
				}
				if h != nil {
					if !h.Alive() {
						t.Errorf("got dead handle for %s", k)
					}
					h.Release()
				}
			}
		}(w)
	}
	wg.Wait()

	_ = c.Close()
	if created.Load() != destroyed.Load() {
		t.Fatalf("created %d values, destroyed %d", created.Load(), destroyed.Load())
	}
}

// One hundred goroutines call Load on the same name concurrently.
// The Loader should run at most once (singleflight coalescing).
func TestRace_Load(t *testing.T) {
	var calls int64

	c := New[string, string](LoaderFunc[string, string](func(_ context.Context, p string) (string, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(2 * time.Millisecond) // simulate I/O
		return "v:" + p, nil
	}), Options[string]{})
	t.Cleanup(func() { _ = c.Close() })

	const goroutines = 100
	key := "same-key"

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			h, err := c.Load(context.Background(), key, key)
			if err != nil {
				t.Errorf("Load error: %v", err)
				return
			}
			defer h.Release()
			if h.Value() != "v:"+key {
				t.Errorf("unexpected value: %q", h.Value())
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got > 1 {
		t.Fatalf("loader should run at most once, got %d", got)
	}

	// Subsequent call should be a pure cache hit.
	if h, err := c.Load(context.Background(), key, key); err != nil || h.Value() != "v:"+key {
		t.Fatalf("second Load failed: err=%v", err)
	}
}
