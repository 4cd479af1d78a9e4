package keepalive

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/keepalive/cache"
	"github.com/IvanBrykalov/keepalive/pattern"
	"github.com/IvanBrykalov/keepalive/policy"
)

// Metrics extends the store hooks with pass-through accounting.
type Metrics interface {
	cache.Metrics
	// Bypass counts a render pass whose candidate was filtered out.
	Bypass()
}

// NoopMetrics is the default Metrics implementation.
type NoopMetrics struct{ cache.NoopMetrics }

func (NoopMetrics) Bypass() {}

var _ Metrics = NoopMetrics{}

// Options configures a Boundary. Zero values are safe:
//   - nil Include  => every name is included
//   - nil Exclude  => nothing is excluded
//   - Max <= 0     => unbounded
//   - nil Metrics  => NoopMetrics
//   - nil Logger   => zap.NewNop()
type Options struct {
	Include pattern.Pattern
	Exclude pattern.Pattern
	Max     int

	// Strict panics on host contract violations instead of returning an
	// error. Enable it in development and tests.
	Strict bool

	// Exemption overrides the capacity-eviction exemption (default policy.SameTag).
	Exemption policy.Exemption

	// OnEvict observes every removal from the store.
	OnEvict func(key string, e cache.Entry, reason cache.EvictReason, disposed bool)

	Metrics Metrics
	Logger  *zap.Logger
}

// ParseMax converts a configured max value into a bound. It accepts
// integers, integral float64 values (as produced by JSON decoding) and
// decimal strings; anything else, and any non-positive value, means
// unbounded (0). Values above math.MaxInt32 are clamped.
//
// Strings must be whole decimal integers after trimming spaces: "3.5" and
// "10px" are not numbers and mean unbounded rather than being truncated to
// a numeric prefix.
func ParseMax(v any) int {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		n = clampUint(uint64(x))
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		n = clampUint(x)
	case float64:
		if x <= 0 || x != math.Trunc(x) {
			return 0
		}
		n = int64(math.Min(x, math.MaxInt32))
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	return int(n)
}

func clampUint(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(u)
}

// present reports whether a pattern is configured. An empty string counts
// as absent.
func present(p pattern.Pattern) bool {
	if p == nil {
		return false
	}
	if s, ok := p.(string); ok && s == "" {
		return false
	}
	return true
}
