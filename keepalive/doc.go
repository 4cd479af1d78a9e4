// Package keepalive decides which rendered instances survive re-renders.
//
// A Boundary owns one bounded cache. Each render pass hands it the single
// child candidate:
//
//	res, txn := b.Render(keepalive.CandidateFor(typ, "tabs", ""))
//	switch {
//	case res.Hit:
//	    reuse(res.Instance)            // skip construction
//	case txn != nil:
//	    inst := construct()            // host builds and mounts the instance
//	    if err := txn.Commit(inst); err != nil { ... }
//	default:
//	    construct()                    // filtered out: not cached
//	}
//
// Commits happen only after the host reports the instance as mounted or
// updated, so partially built instances never enter the cache. When the
// bound is exceeded the least recently used entry is evicted; if its tag
// equals the tag of the entry being committed its instance is dropped
// without Destroy, because the incoming instance takes over the same slot.
//
// Include/exclude changes prune the cache immediately (SetInclude,
// SetExclude, or Bind to an event.Emitter). Close destroys everything.
package keepalive
