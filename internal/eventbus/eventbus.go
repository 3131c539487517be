// Package eventbus is an in-process fan-out pub/sub. The conversation
// handler publishes domain events on it so metrics and other observers stay
// decoupled from the message flow.
package eventbus

import "sync"

// Bus fans events of type T out to every live subscription. Delivery is
// non-blocking: a subscriber that stops draining its channel loses events
// instead of stalling the publisher.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

// Subscription is one subscriber's handle on a Bus.
type Subscription[T any] struct {
	bus *Bus[T]
	ch  chan T
}

// New creates an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: map[*Subscription[T]]struct{}{}}
}

// Publish delivers e to every subscription that has channel capacity left.
func (b *Bus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscription with a small buffer.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{bus: b, ch: make(chan T, 16)}
	b.mu.Lock()
	if b.closed {
		close(s.ch)
	} else {
		b.subs[s] = struct{}{}
	}
	b.mu.Unlock()
	return s
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

// C is the receive side of the subscription. It is closed when the
// subscription is cancelled or the bus shuts down.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Cancel detaches the subscription and closes its channel.
func (s *Subscription[T]) Cancel() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
}
