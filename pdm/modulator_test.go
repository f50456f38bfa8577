package pdm

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

func countOnes(words [WordsPerSample]uint32) int {
	n := 0
	for _, w := range words {
		n += bits.OnesCount32(w)
	}
	return n
}

// dutyCycle modulates n copies of sample and returns the fraction of 1
// bits in the resulting stream.
func dutyCycle(m *Modulator, sample int32, n int) float64 {
	ones := 0
	for i := 0; i < n; i++ {
		ones += countOnes(m.Modulate(sample))
	}
	return float64(ones) / float64(n*Oversample)
}

func TestModulatorZeroInputDuty(t *testing.T) {
	m := NewModulator()
	duty := dutyCycle(m, 0, 1000)
	// Zero maps to target 32768 of 65535, just above 50%.
	assert.InDelta(t, 0.5, duty, 0.005)
}

func TestModulatorDutyTracksInput(t *testing.T) {
	for _, tc := range []struct {
		pcm  int32
		want float64
	}{
		{16384, 49152.0 / 65535},
		{-16384, 16384.0 / 65535},
		{8192, 40960.0 / 65535},
	} {
		m := NewModulator()
		duty := dutyCycle(m, tc.pcm<<14, 2000)
		assert.InDelta(t, tc.want, duty, 0.005, "pcm %d", tc.pcm)
	}
}

func TestModulatorDeterministic(t *testing.T) {
	a := NewModulator()
	b := NewModulator()
	for i := 0; i < 100; i++ {
		s := int32(i*37-1850) << 14
		assert.Equal(t, a.Modulate(s), b.Modulate(s), "sample %d", i)
	}
}

func TestModulatorClipsInput(t *testing.T) {
	clipped := NewModulator()
	limit := NewModulator()
	// Inputs beyond the clip threshold modulate identically to the
	// threshold itself.
	for i := 0; i < 50; i++ {
		assert.Equal(t,
			limit.Modulate(ClipThreshold<<14),
			clipped.Modulate(math.MaxInt32))
	}

	clipped = NewModulator()
	limit = NewModulator()
	for i := 0; i < 50; i++ {
		assert.Equal(t,
			limit.Modulate(-ClipThreshold<<14),
			clipped.Modulate(math.MinInt32))
	}
}

func TestModulatorResetRecovers(t *testing.T) {
	m := NewModulator()
	// Drive the integrators hard, then reset: the very next silent
	// sample must already sit near 50% duty.
	for i := 0; i < 100; i++ {
		m.Modulate(ClipThreshold << 14)
	}
	m.Reset()
	ones := countOnes(m.Modulate(0))
	assert.InDelta(t, Oversample/2, ones, 16)
}

// The decimated bitstream of a modulated sine must peak at the tone's
// frequency bin.
func TestModulatorSpectrum(t *testing.T) {
	const (
		n      = 512
		rate   = 48000.0
		bin    = 16 // 1500 Hz at 48 kHz over 512 samples
		ampPCM = 20000.0
	)

	m := NewModulator()
	decimated := make([]float64, n)
	for i := range decimated {
		s := int32(ampPCM*math.Sin(2*math.Pi*bin*float64(i)/n)) << 14
		words := m.Modulate(s)
		// Averaging each block of Oversample bits recovers the
		// baseband signal; the shaped noise stays above it.
		decimated[i] = float64(countOnes(words))/Oversample - 0.5
	}

	ft := fourier.NewFFT(n)
	coeffs := ft.Coefficients(nil, decimated)

	peakBin, peakMag := 0, 0.0
	for k := 1; k <= n/2; k++ {
		if mag := cmplxAbs(coeffs[k]); mag > peakMag {
			peakBin, peakMag = k, mag
		}
	}
	require.Equal(t, bin, peakBin)

	// The recovered amplitude is ampPCM/65535 of full duty swing.
	gotAmp := 2 * peakMag / n
	assert.InDelta(t, ampPCM/65535, gotAmp, 0.02)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
