// Package events provides the in-process publish/subscribe bus that
// connects the pricing engine, calculators, persistence and exporters.
//
// Delivery is synchronous: Emit returns after every subscriber registered
// at the time of the call has run, in registration order. A subscriber
// that panics is logged and skipped; the remaining subscribers still run.
package events

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"buildcost/internal/logging"
)

// Event is an ephemeral notification. Never persisted.
type Event struct {
	Name    Name
	Payload any
}

// Handler receives events
type Handler interface {
	Handle(Event)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(Event)

// Handle implements Handler
func (f HandlerFunc) Handle(e Event) { f(e) }

type subscription struct {
	id      uint64
	handler Handler
	once    bool
	fired   atomic.Bool
}

// Bus is a publish/subscribe hub keyed by event name
type Bus struct {
	mu     sync.RWMutex
	subs   map[Name][]*subscription
	nextID uint64
	logger *zap.Logger
}

// NewBus creates an event bus. A nil logger uses the global logger.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[Name][]*subscription),
		logger: logging.Component(logger, "events"),
	}
}

// On subscribes h to name and returns a function that removes it.
// Registering the same comparable handler twice keeps one subscription.
// Persistent and single-delivery subscriptions of one handler are distinct.
func (b *Bus) On(name Name, h Handler) (unsubscribe func()) {
	return b.add(name, h, false)
}

// OnFunc subscribes a plain function. Each call is a distinct subscription.
func (b *Bus) OnFunc(name Name, fn func(Event)) (unsubscribe func()) {
	return b.add(name, HandlerFunc(fn), false)
}

// Once subscribes h for a single delivery
func (b *Bus) Once(name Name, h Handler) (unsubscribe func()) {
	return b.add(name, h, true)
}

// OnceFunc subscribes a plain function for a single delivery
func (b *Bus) OnceFunc(name Name, fn func(Event)) (unsubscribe func()) {
	return b.add(name, HandlerFunc(fn), true)
}

func (b *Bus) add(name Name, h Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if isComparable(h) {
		for _, s := range b.subs[name] {
			if s.once == once && !s.fired.Load() && isComparable(s.handler) && s.handler == h {
				return b.remover(name, s.id)
			}
		}
	}

	b.nextID++
	s := &subscription{id: b.nextID, handler: h, once: once}
	b.subs[name] = append(b.subs[name], s)
	return b.remover(name, s.id)
}

func (b *Bus) remover(name Name, id uint64) func() {
	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, name)
			} else {
				b.subs[name] = next
			}
			return
		}
	}
}

// Emit delivers payload to every current subscriber of name
func (b *Bus) Emit(name Name, payload any) {
	b.mu.RLock()
	subs := b.subs[name]
	b.mu.RUnlock()

	event := Event{Name: name, Payload: payload}
	for _, s := range subs {
		if s.once {
			if !s.fired.CompareAndSwap(false, true) {
				continue
			}
			b.remove(name, s.id)
		}
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler failed",
				zap.String("event", string(event.Name)),
				zap.Uint64("subscription", s.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.handler.Handle(event)
}

// Off removes every subscriber of name
func (b *Bus) Off(name Name) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, name)
}

// Clear removes every subscriber
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Name][]*subscription)
}

// Subscribers returns the number of subscribers for name
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

func isComparable(h Handler) bool {
	return h != nil && reflect.TypeOf(h).Comparable()
}
