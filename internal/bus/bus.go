// Package bus is a typed, double-buffered publish/subscribe queue.
//
// Events emitted during a frame are queued and delivered together when the
// owner calls Flush at the end of the frame. Handlers run on the caller's
// goroutine. Ordering across subscribers is not guaranteed, so handlers
// should tolerate seeing the same logical event more than once.
package bus

import (
	"reflect"
	"sync"
)

type subscriber struct {
	id uint64
	fn func(any)
}

type Bus struct {
	mu       sync.Mutex // guards subscriptions only
	queued   map[reflect.Type][]any
	draining map[reflect.Type][]any
	subs     map[reflect.Type][]subscriber
	nextID   uint64
	pending  int
}

func New() *Bus {
	return &Bus{
		queued:   make(map[reflect.Type][]any),
		draining: make(map[reflect.Type][]any),
		subs:     make(map[reflect.Type][]subscriber),
	}
}

func topic[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event for the next Flush.
func Emit[T any](b *Bus, event T) {
	t := topic[T]()
	b.queued[t] = append(b.queued[t], event)
	b.pending++
}

// Subscribe registers a handler for events of type T and returns a func
// that removes it.
func Subscribe[T any](b *Bus, fn func(T)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := topic[T]()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscriber{id: id, fn: func(ev any) { fn(ev.(T)) }})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[t]
		for i, s := range list {
			if s.id == id {
				b.subs[t] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Flush delivers everything queued so far. Events emitted by handlers
// during a flush are held for the following one. It returns the number of
// events delivered.
func (b *Bus) Flush() int {
	b.queued, b.draining = b.draining, b.queued
	b.pending = 0

	n := 0
	for t, events := range b.draining {
		b.mu.Lock()
		subs := append([]subscriber(nil), b.subs[t]...)
		b.mu.Unlock()

		for _, ev := range events {
			for _, s := range subs {
				s.fn(ev)
			}
			n++
		}
		b.draining[t] = events[:0]
	}
	return n
}

// Pending reports how many events wait for the next Flush.
func (b *Bus) Pending() int { return b.pending }

// Reset drops queued events. Subscriptions stay.
func (b *Bus) Reset() {
	for t := range b.queued {
		b.queued[t] = b.queued[t][:0]
	}
	b.pending = 0
}
