// Package cache provides the bounded store behind a keep-alive boundary:
// a map from key to cached instance plus a recency-ordered list of live keys.
//
// Design
//
//   - Storage: a map[string]*node for lookups and an intrusive
//     newest↔oldest doubly linked list for ordering. All operations are O(1)
//     except PruneWhere and EvictAll, which walk the list once.
//
//   - Ordering: pluggable via the policy package. LRU is the default; Touch
//     is the only operation that reorders an existing key.
//
//   - Bound: with Options.Max > 0, Commit evicts exactly one oldest entry when
//     the store grows past Max.
//
//   - Exemption: a capacity eviction skips Destroy when Options.Exemption
//     accepts the (outgoing tag, incoming tag) pair. The default rule,
//     policy.SameTag, keeps an instance alive when its replacement carries
//     the same tag. Prune and teardown always destroy.
//
//   - Callbacks: Options.OnEvict(key, entry, reason, disposed) runs after
//     every removal (reason is one of EvictCapacity, EvictPrune, EvictTeardown).
//
// Basic usage
//
//	s := cache.New(cache.Options{Max: 10})
//	s.Commit("1::tabs", cache.Entry{Name: "Tabs", Tag: "tabs", Instance: inst})
//	if e, ok := s.Lookup("1::tabs"); ok {
//	    s.Touch("1::tabs")
//	    _ = e.Instance
//	}
//	s.PruneWhere(func(name string) bool { return name != "Tabs" })
//	s.EvictAll()
//
// A Store is not safe for concurrent use.
package cache
