package keepalive

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keepalive/cache"
)

type txnState uint8

const (
	txnOpen txnState = iota
	txnCommitted
	txnDiscarded
	txnStale
)

// Txn is a pending insertion produced by a cache miss. It is finished by
// exactly one Commit or Discard.
type Txn struct {
	b     *Boundary
	key   string
	name  string
	tag   string
	state txnState // guarded by b.mu
}

// Key returns the cache key the instance will be stored under.
func (t *Txn) Key() string { return t.key }

// Commit stores inst, which must have finished mounting or updating, and
// evicts the oldest entry if the boundary is over its bound. Committing a
// finished, superseded or closed transaction is a contract violation.
func (t *Txn) Commit(inst Instance) error {
	b := t.b
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case t.state == txnCommitted || t.state == txnDiscarded:
		return b.violation(ErrCommitted, zap.String("key", t.key))
	case t.state == txnStale || b.pending != t:
		return b.violation(ErrStaleTxn, zap.String("key", t.key))
	case inst == nil:
		return b.violation(ErrNilInstance, zap.String("key", t.key))
	}

	b.pending = nil
	t.state = txnCommitted
	if !b.store.Commit(t.key, cache.Entry{Name: t.name, Tag: t.tag, Instance: inst}) {
		return b.violation(ErrKeyExists, zap.String("key", t.key))
	}
	b.log.Debug("commit", zap.String("key", t.key), zap.Int("size", b.store.Len()))
	return nil
}

// Discard drops the pending insertion, e.g. when construction failed.
// Discarding a finished transaction is a no-op.
func (t *Txn) Discard() {
	b := t.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if t.state != txnOpen {
		return
	}
	t.state = txnDiscarded
	if b.pending == t {
		b.pending = nil
	}
}
