// Package prom exports keep-alive boundary metrics to Prometheus.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/keepalive/cache"
	"github.com/IvanBrykalov/keepalive/keepalive"
)

// Adapter implements keepalive.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	bypass  prometheus.Counter
	evicts  *prometheus.CounterVec
	entries prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Render passes served from the cache",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Render passes that staged a new insertion",
			ConstLabels: constLabels,
		}),
		bypass: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "bypass_total",
			Help:        "Render passes whose candidate was filtered out",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason and whether the instance was destroyed",
				ConstLabels: constLabels,
			},
			[]string{"reason", "disposed"},
		),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "entries",
			Help:        "Number of cached instances",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.bypass, a.evicts, a.entries)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Bypass increments the pass-through counter.
func (a *Adapter) Bypass() { a.bypass.Inc() }

// Evict increments the eviction counter.
func (a *Adapter) Evict(r cache.EvictReason, disposed bool) {
	a.evicts.WithLabelValues(r.String(), strconv.FormatBool(disposed)).Inc()
}

// Size updates the entry gauge.
func (a *Adapter) Size(entries int) { a.entries.Set(float64(entries)) }

// Compile-time check: ensure Adapter implements keepalive.Metrics.
var _ keepalive.Metrics = (*Adapter)(nil)
