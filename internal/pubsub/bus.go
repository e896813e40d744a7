// Package pubsub provides an in-process publish/subscribe bus with
// per-subscriber ordered, unbounded delivery.
package pubsub

import (
	"context"
	"sync"
)

// Bus fans out published payloads to every subscriber of a topic.
// The zero value is not usable; create one with New.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string]map[uint64]*subscriber[T]
	closed bool
	done   chan struct{}
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{
		topics: make(map[string]map[uint64]*subscriber[T]),
		done:   make(chan struct{}),
	}
}

// Publish hands payload to every current subscriber of topic and returns how
// many received it. It never blocks; with no subscribers the payload is dropped.
func (b *Bus[T]) Publish(topic string, payload T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}
	subs := b.topics[topic]
	for _, sub := range subs {
		sub.push(payload)
	}
	return len(subs)
}

// Subscribe registers a listener for topic and returns its delivery channel.
// Only payloads published after Subscribe returns are delivered. The channel
// is closed and the listener removed when ctx is done or the bus is closed.
func (b *Bus[T]) Subscribe(ctx context.Context, topic string) <-chan T {
	out := make(chan T)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(out)
		return out
	}
	b.nextID++
	id := b.nextID
	sub := &subscriber[T]{
		notify: make(chan struct{}, 1),
		out:    out,
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[uint64]*subscriber[T])
	}
	b.topics[topic][id] = sub
	b.mu.Unlock()

	go func() {
		defer close(out)
		defer b.remove(topic, id)
		sub.run(ctx, b.done)
	}()

	return out
}

// Subscribers returns the number of listeners currently attached to topic.
func (b *Bus[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close ends every subscription. Publishing after Close is a no-op.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

func (b *Bus[T]) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.topics[topic], id)
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// subscriber buffers payloads in an unbounded queue so a slow reader never
// blocks publishers and never loses events.
type subscriber[T any] struct {
	mu     sync.Mutex
	queue  []T
	notify chan struct{}
	out    chan T
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) pop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if len(s.queue) == 0 {
		return zero, false
	}
	v := s.queue[0]
	s.queue[0] = zero
	s.queue = s.queue[1:]
	return v, true
}

func (s *subscriber[T]) run(ctx context.Context, done <-chan struct{}) {
	for {
		v, ok := s.pop()
		if !ok {
			select {
			case <-s.notify:
				continue
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}

		select {
		case s.out <- v:
		case <-ctx.Done():
			return
		case <-done:
			return
		}
	}
}
