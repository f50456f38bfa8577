package pdm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink is a hardware consumer standing still at a settable position.
type fakeSink struct {
	idx atomic.Uint32
}

func (s *fakeSink) ReadIndex() uint32 { return s.idx.Load() }

// runLoop starts the loop and returns a stop function that cancels it and
// waits for Run to return.
func runLoop(t *testing.T, l *Loop) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("loop did not stop")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLoopSynthesizesSilenceWhenStarved(t *testing.T) {
	ring := NewRing()
	sink := &fakeSink{}
	l := NewLoop(ring, sink)

	stop := runLoop(t, l)
	waitFor(t, func() bool { return l.Silences() >= TargetLead/WordsPerSample })
	stop()

	// The loop filled exactly up to the target lead and then idled.
	assert.Equal(t, uint32(TargetLead), l.WriteIndex())
	assert.Equal(t, uint64(TargetLead/WordsPerSample), l.Silences())
}

func TestLoopModulatesRingSamples(t *testing.T) {
	ring := NewRing()
	sink := &fakeSink{}
	l := NewLoop(ring, sink)

	const s1, s2 = 1000 << 14, -2000 << 14
	require.True(t, ring.TryPush(s1, false))
	require.True(t, ring.TryPush(s2, false))

	stop := runLoop(t, l)
	waitFor(t, func() bool { return l.WriteIndex() >= TargetLead })
	stop()

	// Ring samples are consumed before silence synthesis kicks in, so the
	// first two blocks must match a reference modulation.
	ref := NewModulator()
	want1 := ref.Modulate(s1)
	want2 := ref.Modulate(s2)
	words := l.Words()
	assert.Equal(t, want1[:], words[:WordsPerSample])
	assert.Equal(t, want2[:], words[WordsPerSample:2*WordsPerSample])
}

func TestLoopHonorsResetMessage(t *testing.T) {
	ring := NewRing()
	sink := &fakeSink{}
	l := NewLoop(ring, sink)

	const s1, s2 = 20000 << 14, 500 << 14
	require.True(t, ring.TryPush(s1, false))
	require.True(t, ring.TryPush(s2, true))

	stop := runLoop(t, l)
	waitFor(t, func() bool { return l.WriteIndex() >= 2*WordsPerSample })
	stop()

	ref := NewModulator()
	ref.Modulate(s1)
	ref.Reset()
	want := ref.Modulate(s2)
	words := l.Words()
	assert.Equal(t, want[:], words[WordsPerSample:2*WordsPerSample])
}

func TestLoopResynchronizesAfterUnderrun(t *testing.T) {
	ring := NewRing()
	sink := &fakeSink{}
	// A read position far ahead of write means the consumer lapped the
	// generator.
	sink.idx.Store(512)
	l := NewLoop(ring, sink)

	stop := runLoop(t, l)
	waitFor(t, func() bool { return l.Underruns() >= 1 })
	stop()

	assert.Equal(t, uint64(1), l.Underruns())
	// The loop jumped to the full target lead ahead of the consumer.
	assert.Equal(t, uint32(512+TargetLead), l.WriteIndex())
}

func TestLoopWakesOnPush(t *testing.T) {
	ring := NewRing()
	sink := &fakeSink{}
	l := NewLoop(ring, sink)

	stop := runLoop(t, l)
	defer stop()

	// Let the loop reach the target lead and go idle.
	waitFor(t, func() bool { return l.WriteIndex() >= TargetLead })

	before := l.WriteIndex()
	require.True(t, ring.TryPush(123<<14, false))
	waitFor(t, func() bool { return l.WriteIndex() != before })
}
