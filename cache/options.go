package cache

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keepalive/policy"
)

// Instance is an externally owned unit of work held by the cache.
// Destroy releases its resources; the store calls it at most once.
type Instance interface {
	Destroy()
}

// Entry is one cached instance.
type Entry struct {
	// Name is the display name used for filter matching ("" = unnamed).
	Name string
	// Tag discriminates implementations; it only drives the eviction exemption.
	Tag string
	// Instance is owned by the store until eviction.
	Instance Instance
}

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity: removed to keep the store within Max after a commit.
	EvictCapacity EvictReason = iota
	// EvictPrune: rejected by a filter sweep after a configuration change.
	EvictPrune
	// EvictTeardown: removed because the owning boundary was torn down.
	EvictTeardown
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictPrune:
		return "prune"
	case EvictTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// Metrics exposes store-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	// Evict reports a removal; disposed is false when the exemption rule
	// kept the instance alive.
	Evict(reason EvictReason, disposed bool)
	Size(entries int)
}

// Options configures a Store. Zero values are safe; defaults are applied in New():
//   - Max <= 0       => unbounded
//   - nil Policy     => LRU
//   - nil Exemption  => policy.SameTag
//   - nil Metrics    => NoopMetrics
//   - nil Logger     => zap.NewNop()
type Options struct {
	// Max is the upper bound on live entries.
	Max int

	// Policy orders entries; nil => LRU.
	Policy policy.Policy[string, Entry]

	// Exemption decides whether a capacity eviction skips disposal.
	Exemption policy.Exemption

	// OnEvict is called after every removal, once the instance (if not
	// exempt) has been destroyed.
	OnEvict func(key string, e Entry, reason EvictReason, disposed bool)

	Metrics Metrics
	Logger  *zap.Logger
}
