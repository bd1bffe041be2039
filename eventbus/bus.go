// Package eventbus is the pub/sub layer (C3) that sits between transport's
// raw event handlers and consumers like the target manager and fetch
// interceptor. It generalizes the teacher's internal/relay.Broker — a
// single-topic SSE fan-out — into a bus keyed by (event method, session id)
// with per-subscriber bounded buffers and a drop-oldest overflow policy.
package eventbus

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 256

// Event is a single decoded CDP event delivered to subscribers.
type Event struct {
	Method    string
	SessionID string
	Params    json.RawMessage
	// Dropped is set on a synthetic event delivered in place of one or
	// more events this subscriber could not keep up with.
	Dropped int
}

// Subscription is a live stream of events matching a filter.
type Subscription struct {
	id     int64
	ch     chan Event
	bus    *Bus
	method string
	sessionID string
	hasSessionFilter bool
}

// C returns the channel to receive events on. Closed when Unsubscribe is
// called or the bus is closed.
func (s *Subscription) C() <-chan Event { return s.ch }

// Unsubscribe stops delivery and closes the channel.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

type subscriber struct {
	id               int64
	ch               chan Event
	method           string
	sessionID        string
	hasSessionFilter bool
	dropped          atomic.Int64
}

// Bus fans out decoded events to interested subscribers and synchronous
// callback handlers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber
	nextID      atomic.Int64

	callbackMu sync.RWMutex
	callbacks  map[string][]callback
	nextCbID   atomic.Int64
}

type callback struct {
	id int64
	fn func(Event)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[int64]*subscriber),
		callbacks:   make(map[string][]callback),
	}
}

// Subscribe registers a streaming subscriber filtered by method and,
// optionally, session id. With filterBySession false the subscriber receives
// events for every session; with it true only events whose session id
// equals sessionID ("" selects browser-level events only).
func (b *Bus) Subscribe(method, sessionID string, filterBySession bool) *Subscription {
	id := b.nextID.Add(1)
	sub := &subscriber{
		id:               id,
		ch:               make(chan Event, defaultBufferSize),
		method:           method,
		sessionID:        sessionID,
		hasSessionFilter: filterBySession,
	}
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return &Subscription{id: id, ch: sub.ch, bus: b, method: method, sessionID: sessionID, hasSessionFilter: filterBySession}
}

func (b *Bus) unsubscribe(id int64) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// AddHandler registers a synchronous callback for method, invoked on the
// dispatching goroutine for every matching event regardless of session.
// Returns a function that unregisters it. A panic inside fn is recovered
// and logged by Publish, so one misbehaving handler does not take down
// dispatch for the rest.
func (b *Bus) AddHandler(method string, fn func(Event)) func() {
	id := b.nextCbID.Add(1)
	b.callbackMu.Lock()
	b.callbacks[method] = append(b.callbacks[method], callback{id: id, fn: fn})
	b.callbackMu.Unlock()
	return func() {
		b.callbackMu.Lock()
		defer b.callbackMu.Unlock()
		cbs := b.callbacks[method]
		for i, cb := range cbs {
			if cb.id == id {
				b.callbacks[method] = append(cbs[:i], cbs[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches method/sessionID/params to every matching subscriber
// and callback. Subscriber delivery is non-blocking: a full subscriber
// buffer drops its oldest queued events to make room for a Dropped marker
// and the new event, rather than dropping the new one, so consumers see
// the freshest state.
func (b *Bus) Publish(method, sessionID string, params json.RawMessage) {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		if sub.method != method {
			continue
		}
		if sub.hasSessionFilter && sub.sessionID != sessionID {
			continue
		}
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	evt := Event{Method: method, SessionID: sessionID, Params: params}
	for _, sub := range subs {
		b.deliver(sub, evt)
	}

	b.callbackMu.RLock()
	cbs := make([]callback, len(b.callbacks[method]))
	copy(cbs, b.callbacks[method])
	b.callbackMu.RUnlock()
	for _, cb := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("eventbus: handler panicked", "method", method, "recovered", r)
				}
			}()
			cb.fn(evt)
		}()
	}
}

func (b *Bus) deliver(sub *subscriber, evt Event) {
	select {
	case sub.ch <- evt:
		return
	default:
	}
	// Buffer full: evict the two oldest queued events, one slot for a
	// Dropped marker so a subscriber reading its stream sees the gap instead
	// of silently missing events, and one for the current event.
	var n int64
	for i := 0; i < 2; i++ {
		select {
		case <-sub.ch:
			n = sub.dropped.Add(1)
		default:
		}
	}
	if n > 0 {
		select {
		case sub.ch <- Event{Dropped: int(n)}:
		default:
		}
	}
	select {
	case sub.ch <- evt:
	default:
		sub.dropped.Add(1)
	}
}

// DroppedEvents returns how many events have been dropped for this
// subscription due to a full buffer.
func (s *Subscription) DroppedEvents() int64 {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	sub, ok := s.bus.subscribers[s.id]
	if !ok {
		return 0
	}
	return sub.dropped.Load()
}

// Close tears down the bus, closing every live subscription channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
