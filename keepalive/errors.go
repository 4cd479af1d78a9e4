package keepalive

import "errors"

// Host contract violations. In Strict mode they panic instead of being returned.
var (
	// ErrCommitted is returned when a transaction is committed or discarded twice.
	ErrCommitted = errors.New("keepalive: transaction already finished")

	// ErrStaleTxn is returned when committing a transaction that was
	// superseded by a later render pass or whose boundary was closed.
	ErrStaleTxn = errors.New("keepalive: stale transaction")

	// ErrNilInstance is returned when committing without an instance.
	ErrNilInstance = errors.New("keepalive: nil instance")

	// ErrKeyExists is returned when a commit targets a key that is already cached.
	ErrKeyExists = errors.New("keepalive: key already cached")

	// ErrPendingOutstanding reports a render pass that started while the
	// previous pass's insertion was neither committed nor discarded.
	ErrPendingOutstanding = errors.New("keepalive: render with pending insertion")
)
