// Package drift tracks how far the incoming sample stream has run ahead
// of or behind wall-clock time and derives the rate-feedback value the
// asynchronous host transport consumes. It also watches for stream gaps
// so playback restarts cleanly instead of underrunning immediately.
package drift

import (
	"sync"
	"time"
)

// FeedbackShift is the fixed-point position of the feedback value:
// samples per host frame in 10.14 format, one frame per millisecond.
const FeedbackShift = 14

// Proportional correction: drift * 50/1000 samples per frame, clamped so a
// wild clock estimate can never push the host far off the nominal rate.
const (
	correctionNum   = 50
	correctionDen   = 1000
	correctionClamp = 500
)

// DefaultGapThreshold is how long the stream may stall before the tracker
// declares a gap and resets its sync state.
const DefaultGapThreshold = 50 * time.Millisecond

// prefillBuffers is how many silence buffers the sink is asked to queue
// after a gap.
const prefillBuffers = 2

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithGapThreshold overrides the stall duration that counts as a gap.
func WithGapThreshold(d time.Duration) Option {
	return func(t *Tracker) { t.gapThreshold = d }
}

// Tracker accumulates produced samples against elapsed time. AddSamples is
// called from the packet path; Feedback and TakePrefill from the transport.
type Tracker struct {
	mu sync.Mutex

	now          func() time.Time
	gapThreshold time.Duration
	sampleRate   uint32

	started    bool
	startTime  time.Time
	lastPacket time.Time
	produced   uint64

	gaps    uint64
	prefill int
}

// NewTracker returns a tracker for the given stream rate in Hz.
func NewTracker(sampleRate uint32, opts ...Option) *Tracker {
	t := &Tracker{
		now:          time.Now,
		gapThreshold: DefaultGapThreshold,
		sampleRate:   sampleRate,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetSampleRate switches the stream rate and resets sync state; the drift
// estimate from the old rate is meaningless at the new one.
func (t *Tracker) SetSampleRate(rate uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sampleRate = rate
	t.started = false
	t.produced = 0
}

// AddSamples records the arrival of n samples. The first packet after
// construction, a rate change or a gap starts a new measurement epoch.
func (t *Tracker) AddSamples(n int) {
	if n <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.started && now.Sub(t.lastPacket) > t.gapThreshold {
		t.started = false
		t.produced = 0
		t.gaps++
		t.prefill = prefillBuffers
	}

	if !t.started {
		t.started = true
		t.startTime = now
		t.produced = 0
	}

	t.produced += uint64(n)
	t.lastPacket = now
}

// Feedback returns the corrected samples-per-frame value in 10.14 format.
// The correction engages only after a full second of audio, before that
// the measurement noise would dominate the drift signal.
func (t *Tracker) Feedback() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	nominal := (t.sampleRate << FeedbackShift) / 1000

	if !t.started || t.produced <= uint64(t.sampleRate) {
		return nominal
	}

	elapsed := t.now().Sub(t.startTime)
	expected := uint64(elapsed.Microseconds()) * uint64(t.sampleRate) / 1e6
	drift := int64(t.produced) - int64(expected)

	correction := drift * correctionNum / correctionDen
	if correction > correctionClamp {
		correction = correctionClamp
	}
	if correction < -correctionClamp {
		correction = -correctionClamp
	}

	return uint32(int64(nominal) - correction)
}

// TakePrefill returns how many silence buffers the sink should queue
// before resuming, clearing the request. Zero means none pending.
func (t *Tracker) TakePrefill() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.prefill
	t.prefill = 0
	return n
}

// Gaps counts detected stream gaps.
func (t *Tracker) Gaps() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gaps
}

// Produced returns the samples accumulated in the current epoch.
func (t *Tracker) Produced() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.produced
}
