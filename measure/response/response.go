// Package response measures frequency-domain behavior of processed
// signals: magnitude spectra, single-tone levels and input/output gain at
// a given frequency. It exists mostly for verification of filter, loudness
// and crossfeed stages.
package response

import (
	"errors"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-dac/dsp/window"
)

var ErrBadConfig = errors.New("response: invalid configuration")

// Config holds measurement parameters.
type Config struct {
	SampleRate float64
	FFTSize    int
}

func (c Config) valid() bool {
	return c.SampleRate > 0 && c.FFTSize > 1
}

// Magnitudes returns the single-sided magnitude spectrum of signal,
// Hann-windowed and zero-padded or truncated to FFTSize. The result has
// FFTSize/2+1 bins.
func Magnitudes(signal []float64, cfg Config) ([]float64, error) {
	if !cfg.valid() {
		return nil, ErrBadConfig
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, err
	}

	buf := make([]float64, cfg.FFTSize)
	n := copy(buf, signal)
	window.Apply(window.Hann, buf[:n])

	in := make([]complex128, cfg.FFTSize)
	for i, v := range buf {
		in[i] = complex(v, 0)
	}
	out := make([]complex128, cfg.FFTSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, err
	}

	bins := cfg.FFTSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mags := make([]float64, bins)
	vecmath.Magnitude(mags, re, im)
	return mags, nil
}

// ToneLevel returns the magnitude at the bin nearest freqHz, searching the
// three neighboring bins to tolerate tones that fall between bin centers.
func ToneLevel(signal []float64, freqHz float64, cfg Config) (float64, error) {
	mags, err := Magnitudes(signal, cfg)
	if err != nil {
		return 0, err
	}

	bin := int(math.Round(freqHz / cfg.SampleRate * float64(cfg.FFTSize)))
	level := 0.0
	for b := bin - 1; b <= bin+1; b++ {
		if b >= 0 && b < len(mags) && mags[b] > level {
			level = mags[b]
		}
	}
	return level, nil
}

// GainAt returns the out/in magnitude ratio at freqHz. Both signals are
// measured with the same window and FFT size, so spectral leakage cancels.
func GainAt(in, out []float64, freqHz float64, cfg Config) (float64, error) {
	inLevel, err := ToneLevel(in, freqHz, cfg)
	if err != nil {
		return 0, err
	}
	outLevel, err := ToneLevel(out, freqHz, cfg)
	if err != nil {
		return 0, err
	}
	if inLevel == 0 {
		return 0, nil
	}
	return outLevel / inLevel, nil
}

// GainDBAt returns GainAt in decibels.
func GainDBAt(in, out []float64, freqHz float64, cfg Config) (float64, error) {
	g, err := GainAt(in, out, freqHz, cfg)
	if err != nil {
		return 0, err
	}
	if g <= 0 {
		return math.Inf(-1), nil
	}
	return 20 * math.Log10(g), nil
}
