package cache

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keepalive/policy"
	"github.com/IvanBrykalov/keepalive/policy/lru"
)

// Store maps keys to cached instances and keeps an intrusive list of live
// keys (head = newest, tail = oldest). The list always holds exactly the
// keys present in the map.
//
// A Store is not safe for concurrent use; the owning boundary serializes access.
type Store struct {
	m    map[string]*node
	head *node // newest
	tail *node // oldest
	len  int

	pol policy.Recency[string, Entry]
	opt Options
}

// New constructs a Store with the provided Options.
func New(opt Options) *Store {
	if opt.Max < 0 {
		opt.Max = 0
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[string, Entry]()
	}
	if opt.Exemption == nil {
		opt.Exemption = policy.SameTag
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}

	s := &Store{
		m:   make(map[string]*node),
		opt: opt,
	}
	s.pol = opt.Policy.New(storeHooks{s: s})
	return s
}

// Lookup returns the entry for key without changing its position.
func (s *Store) Lookup(key string) (Entry, bool) {
	n, ok := s.m[key]
	if !ok {
		s.opt.Metrics.Miss()
		return Entry{}, false
	}
	s.opt.Metrics.Hit()
	return n.val, true
}

// Touch moves key to the newest position. It returns false (and does
// nothing) if key is not present.
func (s *Store) Touch(key string) bool {
	n, ok := s.m[key]
	if !ok {
		return false
	}
	s.pol.OnTouch(n)
	return true
}

// Commit inserts e under key at the newest position. If the store then
// exceeds Max, exactly one oldest entry is evicted with e.Tag as the
// exemption tag, even when a lowered Max leaves it more than one over. Commit returns false without any change when key is
// already present.
func (s *Store) Commit(key string, e Entry) bool {
	if _, exists := s.m[key]; exists {
		return false
	}
	n := &node{key: key, val: e}
	s.m[key] = n
	s.pol.OnAdd(n)

	if s.opt.Max > 0 && s.len > s.opt.Max {
		s.EvictOldest(e.Tag)
	}
	s.opt.Metrics.Size(s.len)
	return true
}

// EvictOldest removes the oldest entry and returns its key. When an
// exemption tag is given and the configured Exemption rule accepts the
// pair (by default: equal tags), the instance is not destroyed. Removal
// itself is unconditional.
func (s *Store) EvictOldest(exemptTag ...string) (string, bool) {
	n := s.tail
	if n == nil {
		return "", false
	}
	dispose := true
	if len(exemptTag) > 0 && s.opt.Exemption(n.val.Tag, exemptTag[0]) {
		dispose = false
	}
	s.evictNode(n, EvictCapacity, dispose)
	return n.key, true
}

// PruneWhere evicts and destroys every named entry whose name is rejected
// by keep. Unnamed entries are left alone. It returns the number of
// removed entries. Surviving entries keep their relative order.
func (s *Store) PruneWhere(keep func(name string) bool) int {
	removed := 0
	for n := s.tail; n != nil; {
		prev := n.prev
		if n.val.Name != "" && !keep(n.val.Name) {
			s.evictNode(n, EvictPrune, true)
			removed++
		}
		n = prev
	}
	if removed > 0 {
		s.opt.Metrics.Size(s.len)
	}
	return removed
}

// EvictAll destroys and removes every entry, oldest first.
func (s *Store) EvictAll() int {
	removed := 0
	for n := s.tail; n != nil; n = s.tail {
		s.evictNode(n, EvictTeardown, true)
		removed++
	}
	s.opt.Metrics.Size(0)
	return removed
}

// Len returns the number of live entries.
func (s *Store) Len() int { return s.len }

// Keys returns live keys from oldest to newest.
func (s *Store) Keys() []string {
	out := make([]string, 0, s.len)
	s.Range(func(key string, _ Entry) bool {
		out = append(out, key)
		return true
	})
	return out
}

// Range calls fn for each entry from oldest to newest until fn returns
// false. fn must not mutate the store.
func (s *Store) Range(fn func(key string, e Entry) bool) {
	for n := s.tail; n != nil; n = n.prev {
		if !fn(n.key, n.val) {
			return
		}
	}
}

// Max returns the configured bound (0 = unbounded).
func (s *Store) Max() int { return s.opt.Max }

// SetMax changes the bound. Lowering it does not evict anything until the
// next Commit, which still evicts at most one entry. Len may therefore stay
// above Max after the bound shrinks; this is intended. Commits keep the
// excess from growing, and only prune or teardown shrink it.
func (s *Store) SetMax(n int) {
	if n < 0 {
		n = 0
	}
	s.opt.Max = n
}

// -------------------- internals --------------------

// insertFront inserts n at the newest position in O(1).
func (s *Store) insertFront(n *node) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
}

// moveToFront promotes n to the newest position in O(1).
func (s *Store) moveToFront(n *node) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode unlinks n from the list in O(1).
func (s *Store) removeNode(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
}

// evictNode unlinks n and drops it from the map before destroying its
// instance, so a node can never be disposed twice.
func (s *Store) evictNode(n *node, reason EvictReason, dispose bool) {
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, n.key)

	s.opt.Metrics.Evict(reason, dispose)
	s.opt.Logger.Debug("evict",
		zap.String("key", n.key),
		zap.String("name", n.val.Name),
		zap.String("tag", n.val.Tag),
		zap.Stringer("reason", reason),
		zap.Bool("disposed", dispose),
	)

	if dispose && n.val.Instance != nil {
		n.val.Instance.Destroy()
	}
	if cb := s.opt.OnEvict; cb != nil {
		cb(n.key, n.val, reason, dispose)
	}
}

// -------------------- policy hooks --------------------

// storeHooks adapts the store's list operations to policy.Hooks.
type storeHooks struct{ s *Store }

func (h storeHooks) MoveToFront(x policy.Node[string, Entry]) { h.s.moveToFront(x.(*node)) }
func (h storeHooks) PushFront(x policy.Node[string, Entry])   { h.s.insertFront(x.(*node)) }
