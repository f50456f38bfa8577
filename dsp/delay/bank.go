package delay

// Output channel indices within a Bank.
const (
	TapLeft = iota
	TapRight
	TapSub
	TapCount
)

// MaxDelaySamples is the per-channel delay line capacity, about 170 ms at
// 48 kHz.
const MaxDelaySamples = 8192

// SubAlignMS is the fixed offset added to the sub channel so its output
// stays time-aligned with the stereo path, whose downstream modulator adds
// latency of its own.
const SubAlignMS = 3.83

// Bank delays the three output channels by independent amounts. All lines
// share one write position, so a single Process call keeps the channels
// sample-locked relative to each other.
type Bank[S any] struct {
	lines   [TapCount]*Line[S]
	samples [TapCount]int
}

// NewBank returns a bank with all delays at zero.
func NewBank[S any]() *Bank[S] {
	b := &Bank[S]{}
	for i := range b.lines {
		// MaxDelaySamples is a power of two, New cannot fail.
		b.lines[i], _ = New[S](MaxDelaySamples)
	}
	return b
}

// SetDelays converts the per-channel delays from milliseconds to samples at
// the given rate. The sub channel additionally receives the fixed alignment
// offset. Delays are clamped to the line capacity.
func (b *Bank[S]) SetDelays(leftMS, rightMS, subMS, sampleRate float64) {
	b.samples[TapLeft] = msToSamples(leftMS, sampleRate)
	b.samples[TapRight] = msToSamples(rightMS, sampleRate)
	b.samples[TapSub] = msToSamples(subMS+SubAlignMS, sampleRate)
}

// Delays returns the current per-channel delays in samples.
func (b *Bank[S]) Delays() [TapCount]int {
	return b.samples
}

// Process writes one sample per channel and returns the delayed outputs.
func (b *Bank[S]) Process(left, right, sub S) (outLeft, outRight, outSub S) {
	b.lines[TapLeft].Write(left)
	b.lines[TapRight].Write(right)
	b.lines[TapSub].Write(sub)

	outLeft = b.lines[TapLeft].Read(b.samples[TapLeft])
	outRight = b.lines[TapRight].Read(b.samples[TapRight])
	outSub = b.lines[TapSub].Read(b.samples[TapSub])

	return outLeft, outRight, outSub
}

// Reset clears all line state. Delay settings are kept.
func (b *Bank[S]) Reset() {
	for _, l := range b.lines {
		l.Reset()
	}
}

func msToSamples(ms, sampleRate float64) int {
	n := int(ms * sampleRate / 1000)
	if n < 0 {
		n = 0
	}
	if n > MaxDelaySamples-1 {
		n = MaxDelaySamples - 1
	}
	return n
}
