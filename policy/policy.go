// Package policy defines how a cache store orders its entries and which
// evictions keep the outgoing instance alive.
package policy

// Node is the minimal contract a cache entry must satisfy for a policy.
type Node[K comparable, V any] interface {
	Key() K
}

// Hooks expose O(1) list operations that a policy can use to manipulate
// the store's intrusive newest↔oldest list. Implementations are provided by the store.
//
// Important: hooks manage only the list; the store owns the key->node map.
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to the newest position.
	MoveToFront(Node[K, V])
	// PushFront inserts the node at the newest position (used on commit).
	PushFront(Node[K, V])
}

// Recency is a store-local ordering policy bound to store hooks.
//
// Semantics:
//   - OnAdd places a freshly committed node. It never chooses victims;
//     the store evicts at most one oldest entry per commit.
//   - OnTouch promotes a node after a cache hit.
//   - OnRemove is a notification to update policy-internal state.
//     The store performs actual deletion.
type Recency[K comparable, V any] interface {
	OnAdd(Node[K, V])
	OnTouch(Node[K, V])
	OnRemove(Node[K, V])
}

// Policy is a factory that creates store-local recency instances
// bound to a particular store's hooks.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) Recency[K, V]
}

// Exemption reports whether an entry evicted to make room for an incoming
// entry must be dropped without disposing its instance. It is consulted only
// for capacity evictions triggered by a commit, never for prune or teardown.
type Exemption func(outgoingTag, incomingTag string) bool

// SameTag exempts the outgoing entry when it carries the same tag as the
// incoming one: both occupy an interchangeable slot.
func SameTag(outgoingTag, incomingTag string) bool { return outgoingTag == incomingTag }

// Never disposes every evicted entry.
func Never(string, string) bool { return false }
