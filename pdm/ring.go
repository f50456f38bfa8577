// Package pdm converts the subwoofer sample stream into a 1-bit pulse
// density bitstream: a lock-free handoff ring, a 2nd-order sigma-delta
// modulator with TPDF dither, and the generator loop that keeps a circular
// word buffer ahead of its hardware consumer.
package pdm

import (
	"sync/atomic"
)

// ringSize is the handoff queue capacity in slots. Power of two; one slot
// is kept open to distinguish full from empty, so 255 messages fit.
const ringSize = 256

// Message is one subwoofer sample crossing from the packet context to the
// modulator context. Reset asks the modulator to zero its integrators
// before processing, used during stream silence so stale accumulator
// state cannot produce artifacts when audio resumes.
type Message struct {
	Sample int32
	Reset  bool
}

// Ring is a single-producer single-consumer queue. Exactly one goroutine
// may call TryPush and exactly one may call TryPop. Indices are free
// running; the consumer never observes a slot before the published head.
type Ring struct {
	slots [ringSize]Message
	head  atomic.Uint32
	tail  atomic.Uint32
	wake  chan struct{}
}

// NewRing returns an empty ring.
func NewRing() *Ring {
	return &Ring{wake: make(chan struct{}, 1)}
}

// TryPush enqueues one sample without blocking. It reports false when the
// ring is full; the caller drops the sample and counts the overrun.
func (r *Ring) TryPush(sample int32, reset bool) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= ringSize-1 {
		return false
	}

	r.slots[head&(ringSize-1)] = Message{Sample: sample, Reset: reset}
	r.head.Store(head + 1)

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// TryPop dequeues one message without blocking.
func (r *Ring) TryPop() (Message, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return Message{}, false
	}

	m := r.slots[tail&(ringSize-1)]
	r.tail.Store(tail + 1)
	return m, true
}

// Len returns the number of queued messages.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Wake returns the channel the producer signals on enqueue. The consumer
// blocks on it instead of spinning when it has nothing to do.
func (r *Ring) Wake() <-chan struct{} {
	return r.wake
}
