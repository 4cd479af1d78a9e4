package event

import "sync"

// Listeners maps event names to handlers.
type Listeners map[string]Handler

// Bindings is a set of handlers attached to one target emitter. The target
// is held by the Bindings value itself; nothing is routed through shared state.
type Bindings struct {
	target *Emitter

	mu   sync.Mutex
	subs map[string]*binding
}

type binding struct {
	mu  sync.RWMutex
	fn  Handler
	sub Subscription
}

func (b *binding) invoke(args ...any) error {
	b.mu.RLock()
	fn := b.fn
	b.mu.RUnlock()
	return fn(args...)
}

// Bind attaches on to target and returns the resulting bindings.
func Bind(target *Emitter, on Listeners) *Bindings {
	b := &Bindings{target: target, subs: make(map[string]*binding, len(on))}
	b.Update(on)
	return b
}

// Update reconciles the bindings with on. Events no longer listed, or
// listed with a nil handler, are detached. Events present in both keep
// their position in the target's dispatch order and switch to the new
// handler.
func (b *Bindings) Update(on Listeners) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ev, cur := range b.subs {
		if fn := on[ev]; fn == nil {
			cur.sub.Cancel()
			delete(b.subs, ev)
		}
	}
	for ev, fn := range on {
		if fn == nil {
			continue
		}
		if cur, ok := b.subs[ev]; ok {
			cur.mu.Lock()
			cur.fn = fn
			cur.mu.Unlock()
			continue
		}
		nb := &binding{fn: fn}
		nb.sub = b.target.On(ev, nb.invoke)
		b.subs[ev] = nb
	}
}

// Target returns the emitter the bindings are attached to.
func (b *Bindings) Target() *Emitter { return b.target }

// Unbind detaches every handler.
func (b *Bindings) Unbind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ev, cur := range b.subs {
		cur.sub.Cancel()
		delete(b.subs, ev)
	}
}
