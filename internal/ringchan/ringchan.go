// Package ringchan provides a bounded channel with overwrite-oldest
// semantics. The scanner publishes device events through it so a slow or
// absent consumer never stalls the advertisement read loop; only the oldest
// unread events are lost.
package ringchan

import "sync/atomic"

// Ring wraps a buffered channel and guarantees producers never block: when
// the buffer is full the oldest element is discarded to make room.
type Ring[T any] struct {
	ch      chan T
	dropped atomic.Int64
}

// New creates a Ring with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// C returns the receive side. Consumers range over it until Close.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Send inserts v without ever blocking, discarding the oldest buffered
// element when full. It reports whether an element was discarded.
//
// The try-send/drop pair loops because concurrent senders can re-fill the
// slot a drop just freed; a plain send after the drop could then block.
func (r *Ring[T]) Send(v T) bool {
	var dropped bool
	for {
		select {
		case r.ch <- v:
			return dropped
		default:
		}
		select {
		case <-r.ch:
			r.dropped.Add(1)
			dropped = true
		default:
			// A consumer drained the buffer between the two selects.
		}
	}
}

// Dropped returns how many elements have been discarded so far.
func (r *Ring[T]) Dropped() int64 {
	return r.dropped.Load()
}

// Close closes the receive side. Sending after Close panics.
func (r *Ring[T]) Close() {
	close(r.ch)
}
