package cache

// node is an intrusive doubly linked list element owned by a store.
type node struct {
	key string
	val Entry

	// Intrusive list links: head is newest, tail is oldest.
	prev *node
	next *node
}

// Key returns the node key (part of policy.Node interface).
func (n *node) Key() string { return n.key }
