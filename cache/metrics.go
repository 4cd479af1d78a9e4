package cache

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                    {}
func (NoopMetrics) Miss()                   {}
func (NoopMetrics) Evict(EvictReason, bool) {}
func (NoopMetrics) Size(int)                {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
