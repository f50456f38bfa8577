package pdm

import (
	"context"
	"sync/atomic"
	"time"
)

// Output buffer geometry.
const (
	// BufferWords is the circular output buffer size in 32-bit words,
	// about 10 ms of bitstream at 48 kHz.
	BufferWords = 2048
	bufferMask  = BufferWords - 1

	// TargetLead is how far the generator stays ahead of the consumer:
	// 256 words = 32 samples, about 0.67 ms at 48 kHz.
	TargetLead = 256
)

// silenceWord is an alternating bit pattern, the bitstream encoding of a
// zero sample at 50% duty cycle.
const silenceWord = 0xAAAAAAAA

// idlePoll bounds how long the loop sleeps before rechecking the
// consumer's position while no samples arrive.
const idlePoll = 200 * time.Microsecond

// WordSink is the hardware consumer of the bitstream. It exposes only a
// continuously advancing read position into the loop's circular buffer;
// the loop never writes behind that position.
type WordSink interface {
	ReadIndex() uint32
}

// Loop drains the handoff ring, modulates each sample into bitstream
// words, and keeps the circular buffer a fixed lead ahead of the sink.
// It synthesizes silence when starved and resynchronizes after underrun.
type Loop struct {
	ring *Ring
	sink WordSink
	mod  *Modulator

	buf   [BufferWords]uint32
	write atomic.Uint32

	underruns atomic.Uint64
	silences  atomic.Uint64
}

// NewLoop returns a loop with the buffer prefilled with silence.
func NewLoop(ring *Ring, sink WordSink) *Loop {
	l := &Loop{ring: ring, sink: sink, mod: NewModulator()}
	for i := range l.buf {
		l.buf[i] = silenceWord
	}
	return l
}

// Words exposes the circular output buffer for the consumer side.
func (l *Loop) Words() []uint32 { return l.buf[:] }

// WriteIndex returns the loop's current write position. The consumer may
// read words up to, but not including, this index.
func (l *Loop) WriteIndex() uint32 { return l.write.Load() }

// Underruns counts resynchronization events.
func (l *Loop) Underruns() uint64 { return l.underruns.Load() }

// Silences counts samples synthesized because the ring was empty while
// the lead was below target.
func (l *Loop) Silences() uint64 { return l.silences.Load() }

// Run produces bitstream words until ctx is cancelled. It is the only
// goroutine allowed to pop the ring and write the buffer.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		readIdx := l.sink.ReadIndex() & bufferMask
		write := l.write.Load()
		delta := (write - readIdx) & bufferMask

		// A lead beyond half the buffer means the consumer lapped us.
		// Resynchronize: clear the integrators and jump to the full
		// target lead ahead of the consumer.
		if delta > BufferWords/2 {
			l.mod.Reset()
			write = (readIdx + TargetLead) & bufferMask
			l.write.Store(write)
			delta = TargetLead
			l.underruns.Add(1)
		}

		msg, ok := l.ring.TryPop()
		switch {
		case ok:
		case delta < TargetLead:
			// Starved but the consumer is catching up: feed it
			// silence rather than let it run dry.
			msg = Message{}
			l.silences.Add(1)
		default:
			// At target lead with nothing to modulate. Sleep until
			// the producer enqueues or the lead shrinks.
			l.idle(ctx)
			continue
		}

		if msg.Reset {
			l.mod.Reset()
		}

		// Publish each word before advancing the index past it.
		words := l.mod.Modulate(msg.Sample)
		for _, w := range words {
			l.buf[write&bufferMask] = w
			write = (write + 1) & bufferMask
			l.write.Store(write)
		}
	}
}

func (l *Loop) idle(ctx context.Context) {
	t := time.NewTimer(idlePoll)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-l.ring.Wake():
	case <-t.C:
	}
}
