// Package vm exports cache.Metrics through a VictoriaMetrics metrics.Set.
package vm

import (
	"io"
	"strings"
	"time"

	"github.com/IvanBrykalov/rescache/cache"
	"github.com/VictoriaMetrics/metrics"
)

// Adapter implements cache.Metrics on top of a dedicated metrics.Set.
type Adapter struct {
	set *metrics.Set

	hits       *metrics.Counter
	misses     *metrics.Counter
	loadsOK    *metrics.Counter
	loadsError *metrics.Counter
	loadDur    *metrics.Histogram
	size       *metrics.Gauge
}

// New creates an adapter whose series are named prefix_* and carry the
// given cache label, e.g. New("rescache", "fonts") yields
// rescache_hits_total{cache="fonts"}. cacheName may hold any characters;
// it is escaped for the label value.
func New(prefix, cacheName string) *Adapter {
	s := metrics.NewSet()
	cacheLabel := `cache="` + labelEscaper.Replace(cacheName) + `"`
	name := func(metric, extra string) string {
		labels := cacheLabel
		if extra != "" {
			labels += "," + extra
		}
		return prefix + "_" + metric + "{" + labels + "}"
	}
	return &Adapter{
		set:        s,
		hits:       s.NewCounter(name("hits_total", "")),
		misses:     s.NewCounter(name("misses_total", "")),
		loadsOK:    s.NewCounter(name("loads_total", `result="ok"`)),
		loadsError: s.NewCounter(name("loads_total", `result="error"`)),
		loadDur:    s.NewHistogram(name("load_duration_seconds", "")),
		size:       s.NewGauge(name("size_entries", ""), nil),
	}
}

// labelEscaper escapes a label value per the Prometheus text format.
var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Hit counts a cache hit.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss counts a cache miss.
func (a *Adapter) Miss() { a.misses.Inc() }

// Load counts a loader call by outcome and records its duration.
func (a *Adapter) Load(d time.Duration, err error) {
	if err != nil {
		a.loadsError.Inc()
	} else {
		a.loadsOK.Inc()
	}
	a.loadDur.Update(d.Seconds())
}

// Size sets the resident entry gauge.
func (a *Adapter) Size(entries int) { a.size.Set(float64(entries)) }

// WritePrometheus writes the adapter's series in Prometheus text format.
func (a *Adapter) WritePrometheus(w io.Writer) { a.set.WritePrometheus(w) }

// Set exposes the underlying set, e.g. for metrics.RegisterSet.
func (a *Adapter) Set() *metrics.Set { return a.set }

var _ cache.Metrics = (*Adapter)(nil)
