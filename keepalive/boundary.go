package keepalive

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/keepalive/cache"
	"github.com/IvanBrykalov/keepalive/event"
	"github.com/IvanBrykalov/keepalive/pattern"
	"github.com/IvanBrykalov/keepalive/registry"
)

// Instance is the host-owned unit of work a boundary keeps alive.
type Instance = cache.Instance

// Candidate is the single child produced by a render pass.
type Candidate struct {
	// Name is the display name matched against include/exclude ("" = unnamed).
	Name string
	// Tag is the implementation discriminator used in default keys and the
	// eviction exemption.
	Tag string
	// Key is an explicit cache key; "" derives one from Type and Tag.
	Key string
	// Type is the registered definition the instance is built from.
	Type *registry.Type
}

// CandidateFor builds a candidate whose name falls back from the
// definition name to the tag. An empty tag defaults to the type's local
// name, so locals sharing one definition still get distinct keys.
func CandidateFor(t *registry.Type, tag, key string) *Candidate {
	if tag == "" && t != nil {
		tag = t.Local
	}
	return &Candidate{Name: registry.NameOf(t, tag), Tag: tag, Key: key, Type: t}
}

// Result tells the host what to do with the candidate of a render pass.
type Result struct {
	// Key is the resolved cache key (empty when the candidate bypassed the cache).
	Key string
	// KeepAlive marks candidates managed by the boundary.
	KeepAlive bool
	// Hit is true when Instance was taken from the cache; the host must
	// reuse it instead of constructing a new one.
	Hit      bool
	Instance Instance
}

// EntryInfo describes one cached entry.
type EntryInfo struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	Tag  string `json:"tag"`
}

// Boundary caches the instances rendered inside one keep-alive subtree.
//
// Render and Txn.Commit follow the host's render/mount/update cycle; at
// most one insertion is pending at a time. All methods are safe for
// concurrent use so configuration changes may arrive from any goroutine.
// Instance disposal runs under the boundary lock and must not call back
// into the boundary.
type Boundary struct {
	mu       sync.Mutex
	store    *cache.Store
	include  pattern.Pattern
	exclude  pattern.Pattern
	pending  *Txn
	closed   bool
	bindings *event.Bindings

	opt Options
	log *zap.Logger
}

// New constructs a Boundary with the provided Options.
func New(opt Options) *Boundary {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	log := opt.Logger.Named("keepalive")

	b := &Boundary{
		store: cache.New(cache.Options{
			Max:       opt.Max,
			Exemption: opt.Exemption,
			OnEvict:   opt.OnEvict,
			Metrics:   opt.Metrics,
			Logger:    log,
		}),
		include: opt.Include,
		exclude: opt.Exclude,
		opt:     opt,
		log:     log,
	}
	b.checkPattern("include", opt.Include)
	b.checkPattern("exclude", opt.Exclude)
	return b
}

// Render resolves the candidate of one render pass. On a hit the cached
// instance is returned and promoted. On a miss a transaction is returned;
// the host must Commit it once the new instance has finished mounting or
// updating, or Discard it. Candidates that are nil, filtered out, or
// rendered after Close pass through with a zero Result and no transaction.
func (b *Boundary) Render(c *Candidate) (Result, *Txn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev := b.pending; prev != nil {
		prev.state = txnStale
		b.pending = nil
		b.violation(ErrPendingOutstanding, zap.String("key", prev.key))
	}
	if c == nil || b.closed {
		return Result{}, nil
	}
	if !b.cacheable(c.Name) {
		b.opt.Metrics.Bypass()
		b.log.Debug("bypass", zap.String("name", c.Name))
		return Result{}, nil
	}

	key, ok := deriveKey(c)
	if !ok {
		b.opt.Metrics.Bypass()
		b.log.Warn("candidate has neither key nor type; not cached",
			zap.String("name", c.Name), zap.String("tag", c.Tag))
		return Result{}, nil
	}

	if e, hit := b.store.Lookup(key); hit {
		b.store.Touch(key)
		b.log.Debug("hit", zap.String("key", key))
		return Result{Key: key, KeepAlive: true, Hit: true, Instance: e.Instance}, nil
	}

	t := &Txn{b: b, key: key, name: c.Name, tag: c.Tag}
	b.pending = t
	b.log.Debug("miss", zap.String("key", key))
	return Result{Key: key, KeepAlive: true}, t
}

// SetInclude replaces the include pattern and prunes cached entries whose
// names no longer match. Clearing the pattern (nil or "") prunes every
// named entry. It returns the number of pruned entries.
func (b *Boundary) SetInclude(p pattern.Pattern) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.include = p
	b.checkPattern("include", p)
	// An absent include admits every later render but matches no cached
	// name, so the sweep drops every named entry.
	n := b.store.PruneWhere(func(name string) bool { return pattern.Matches(p, name) })
	b.log.Debug("include changed", zap.Int("pruned", n))
	return n
}

// SetExclude replaces the exclude pattern and prunes cached entries whose
// names now match it. It returns the number of pruned entries.
func (b *Boundary) SetExclude(p pattern.Pattern) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.exclude = p
	b.checkPattern("exclude", p)
	if !present(p) {
		return 0
	}
	n := b.store.PruneWhere(func(name string) bool { return !pattern.Matches(p, name) })
	b.log.Debug("exclude changed", zap.Int("pruned", n))
	return n
}

// SetMax changes the bound (see ParseMax). It takes effect on the next commit.
func (b *Boundary) SetMax(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.SetMax(ParseMax(v))
}

// Bind subscribes the boundary to "include", "exclude" and "max" events on
// em. The first event argument carries the new value. Binding again moves
// the subscription to the new emitter.
func (b *Boundary) Bind(em *event.Emitter) {
	on := event.Listeners{
		"include": func(args ...any) error { b.SetInclude(firstArg(args)); return nil },
		"exclude": func(args ...any) error { b.SetExclude(firstArg(args)); return nil },
		"max":     func(args ...any) error { b.SetMax(firstArg(args)); return nil },
	}

	b.mu.Lock()
	prev := b.bindings
	if prev != nil && prev.Target() == em {
		b.mu.Unlock()
		prev.Update(on)
		return
	}
	b.bindings = event.Bind(em, on)
	b.mu.Unlock()

	if prev != nil {
		prev.Unbind()
	}
}

// Close tears the boundary down: every cached instance is destroyed, any
// pending transaction becomes stale, and event bindings are released.
// Close is safe to call multiple times.
func (b *Boundary) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	if b.pending != nil {
		b.pending.state = txnStale
		b.pending = nil
	}
	n := b.store.EvictAll()
	bindings := b.bindings
	b.bindings = nil
	b.mu.Unlock()

	if bindings != nil {
		bindings.Unbind()
	}
	b.log.Debug("teardown", zap.Int("destroyed", n))
	return nil
}

// Len returns the number of cached instances.
func (b *Boundary) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Len()
}

// Max returns the current bound (0 = unbounded).
func (b *Boundary) Max() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Max()
}

// Keys returns cached keys from oldest to newest.
func (b *Boundary) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Keys()
}

// Snapshot describes cached entries from oldest to newest.
func (b *Boundary) Snapshot() []EntryInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]EntryInfo, 0, b.store.Len())
	b.store.Range(func(key string, e cache.Entry) bool {
		out = append(out, EntryInfo{Key: key, Name: e.Name, Tag: e.Tag})
		return true
	})
	return out
}

// Pending reports whether an insertion awaits commit.
func (b *Boundary) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

// -------------------- internals (mu held) --------------------

// cacheable applies include/exclude to a display name. An empty name never
// matches: it fails any include filter and escapes any exclude filter.
func (b *Boundary) cacheable(name string) bool {
	if present(b.include) && (name == "" || !pattern.Matches(b.include, name)) {
		return false
	}
	if present(b.exclude) && name != "" && pattern.Matches(b.exclude, name) {
		return false
	}
	return true
}

// deriveKey prefers the explicit key. Otherwise it combines the type ID
// with the tag, since one definition may be registered under several local
// names.
func deriveKey(c *Candidate) (string, bool) {
	if c.Key != "" {
		return c.Key, true
	}
	if c.Type == nil {
		return "", false
	}
	if c.Tag == "" {
		return c.Type.ID.String(), true
	}
	return c.Type.ID.String() + "::" + c.Tag, true
}

func (b *Boundary) checkPattern(option string, p pattern.Pattern) {
	if present(p) && !pattern.Supported(p) {
		b.log.Warn("unsupported pattern never matches",
			zap.String("option", option), zap.String("type", fmt.Sprintf("%T", p)))
	}
}

// violation reports a host contract violation: panic in Strict mode,
// otherwise log and hand the error back.
func (b *Boundary) violation(err error, fields ...zap.Field) error {
	if b.opt.Strict {
		panic(err)
	}
	b.log.Warn(err.Error(), fields...)
	return err
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
