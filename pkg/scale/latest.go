package scale

import "sync"

// Latest is a single-slot channel with latest-wins semantics: Publish never
// blocks and replaces an undelivered value. It supports one producer; with a
// single producer values are never delivered out of order.
type Latest[T any] struct {
	ch   chan T
	once sync.Once
}

// NewLatest creates an empty single-slot channel.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

// Publish stores v, dropping any value the consumer has not received yet.
// It reports whether a pending value was dropped.
func (l *Latest[T]) Publish(v T) (dropped bool) {
	for {
		select {
		case l.ch <- v:
			return dropped
		default:
		}

		// Slot is full: discard the stale value and retry
		select {
		case <-l.ch:
			dropped = true
		default:
		}
	}
}

// C returns the receive side.
func (l *Latest[T]) C() <-chan T {
	return l.ch
}

// Close closes the channel. Only the producer may call it, after its last Publish.
func (l *Latest[T]) Close() {
	l.once.Do(func() { close(l.ch) })
}
