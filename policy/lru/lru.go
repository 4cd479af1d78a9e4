// Package lru implements the least-recently-used ordering policy.
package lru

import "github.com/IvanBrykalov/keepalive/policy"

// lru is a classic "move-to-front" Least-Recently-Used policy.
// It delegates list manipulation to policy.Hooks provided by the store.
type lru[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type lruPolicy[K comparable, V any] struct{}

// New returns a Policy factory that constructs store-local LRU instances.
func New[K comparable, V any]() policy.Policy[K, V] { return lruPolicy[K, V]{} }

// New implements policy.Policy by binding store hooks.
func (lruPolicy[K, V]) New(h policy.Hooks[K, V]) policy.Recency[K, V] {
	return &lru[K, V]{h: h}
}

// OnAdd places the committed entry at the newest position.
func (p *lru[K, V]) OnAdd(n policy.Node[K, V]) { p.h.PushFront(n) }

// OnTouch promotes the entry to the newest position.
func (p *lru[K, V]) OnTouch(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnRemove is a no-op for pure LRU (nothing to clean up in policy state).
func (p *lru[K, V]) OnRemove(_ policy.Node[K, V]) {}
