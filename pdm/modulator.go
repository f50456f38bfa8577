package pdm

// Modulation parameters.
const (
	// Oversample is the number of output bits per input sample.
	Oversample = 256

	// WordsPerSample is the oversampled block size in 32-bit words.
	WordsPerSample = Oversample / 32

	// ClipThreshold hard-limits the 16-bit input to about 90% of full
	// modulation range. A 2nd-order modulator goes unstable when driven
	// to the rails.
	ClipThreshold = 26214

	// targetOffset biases the signed input into the unipolar range the
	// bit decision works in: silence modulates to a 50% duty cycle.
	targetOffset = 32768

	// feedbackHigh is the value fed back for an emitted 1 bit.
	feedbackHigh = 65535

	// ditherMask sizes the dither noise drawn per output word.
	ditherMask = 0x1FF

	// leakShift sets the integrator decay applied once per input sample.
	// At 48 kHz the resulting time constant is around a second, slow
	// enough not to touch audible low frequencies while bounding DC
	// drift.
	leakShift = 16
)

// xorshift32 is the dither noise source. Deterministic for a given seed,
// so modulation is reproducible in tests.
type xorshift32 struct {
	state uint32
}

func newXorshift32() xorshift32 {
	return xorshift32{state: 123456789}
}

func (r *xorshift32) next() uint32 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return r.state
}

// Modulator is a 2nd-order error-feedback sigma-delta converter producing
// Oversample bits per input sample. Not safe for concurrent use; the
// generator loop owns it exclusively.
type Modulator struct {
	err  int32
	err2 int32
	rng  xorshift32
}

// NewModulator returns a modulator with zeroed integrators.
func NewModulator() *Modulator {
	return &Modulator{rng: newXorshift32()}
}

// Reset zeroes both integrators. Called on explicit reset requests and on
// underrun recovery.
func (m *Modulator) Reset() {
	m.err = 0
	m.err2 = 0
}

// Modulate converts one sample at the 32-bit working scale into
// WordsPerSample output words, MSB first within each word.
func (m *Modulator) Modulate(sample int32) [WordsPerSample]uint32 {
	pcm := sample >> 14
	if pcm > ClipThreshold {
		pcm = ClipThreshold
	}
	if pcm < -ClipThreshold {
		pcm = -ClipThreshold
	}

	target := pcm + targetOffset

	var words [WordsPerSample]uint32
	for chunk := range words {
		// One dither value per word keeps the noise shaping cheap
		// without audible correlation artifacts.
		dither := int32(m.rng.next()&ditherMask) - ditherMask>>1

		var word uint32
		for k := 0; k < 32; k++ {
			var fb int32
			if m.err2+dither >= 0 {
				fb = feedbackHigh
				word |= 1 << (31 - k)
			}
			m.err += target - fb
			m.err2 += m.err - fb
		}
		words[chunk] = word
	}

	// Leaky integrators, once per input sample.
	m.err -= m.err >> leakShift
	m.err2 -= m.err2 >> leakShift

	return words
}
