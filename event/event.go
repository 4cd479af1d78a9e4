// Package event is a small synchronous publish/subscribe mechanism used to
// deliver configuration changes to keep-alive boundaries.
package event

import (
	"errors"
	"fmt"
	"sync"
)

// Handler receives the arguments passed to Emit.
type Handler func(args ...any) error

type listener struct {
	id   uint64
	fn   Handler
	once bool
}

// Emitter dispatches named events to registered handlers in registration
// order. Safe for concurrent use; handlers run on the emitting goroutine,
// outside the emitter's lock.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	events map[string][]listener
}

// NewEmitter returns an emitter with no handlers.
func NewEmitter() *Emitter {
	return &Emitter{events: make(map[string][]listener)}
}

// Subscription identifies one registered handler.
type Subscription struct {
	e     *Emitter
	event string
	id    uint64
}

// Cancel removes the handler. Cancelling twice is a no-op.
func (s Subscription) Cancel() {
	if s.e == nil {
		return
	}
	s.e.remove(s.event, s.id)
}

// On registers fn for event.
func (e *Emitter) On(event string, fn Handler) Subscription {
	return e.add(event, fn, false)
}

// OnEach registers fn for every event in events.
func (e *Emitter) OnEach(events []string, fn Handler) []Subscription {
	subs := make([]Subscription, 0, len(events))
	for _, ev := range events {
		subs = append(subs, e.add(ev, fn, false))
	}
	return subs
}

// Once registers fn for a single delivery of event.
func (e *Emitter) Once(event string, fn Handler) Subscription {
	return e.add(event, fn, true)
}

// Off removes every handler for the given events. With no arguments it
// removes all handlers for all events.
func (e *Emitter) Off(events ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(events) == 0 {
		e.events = make(map[string][]listener)
		return
	}
	for _, ev := range events {
		delete(e.events, ev)
	}
}

// Listeners returns the number of handlers registered for event.
func (e *Emitter) Listeners(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events[event])
}

// Emit invokes the handlers registered for event with args. Handlers
// registered or removed during delivery do not affect the current round.
// Handler errors are joined and returned; a failing handler does not stop
// the others.
func (e *Emitter) Emit(event string, args ...any) error {
	e.mu.Lock()
	ls := e.events[event]
	snapshot := make([]listener, len(ls))
	copy(snapshot, ls)
	// once-handlers leave before delivery so reentrant emits skip them
	kept := ls[:0:0]
	for _, l := range ls {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.events, event)
	} else {
		e.events[event] = kept
	}
	e.mu.Unlock()

	var errs []error
	for _, l := range snapshot {
		if err := l.fn(args...); err != nil {
			errs = append(errs, fmt.Errorf("event handler for %q: %w", event, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Emitter) add(event string, fn Handler, once bool) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil {
		e.events = make(map[string][]listener)
	}
	e.nextID++
	id := e.nextID
	e.events[event] = append(e.events[event], listener{id: id, fn: fn, once: once})
	return Subscription{e: e, event: event, id: id}
}

func (e *Emitter) remove(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.events[event]
	for i := range ls {
		if ls[i].id == id {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(e.events, event)
	} else {
		e.events[event] = ls
	}
}
