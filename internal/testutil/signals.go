// Package testutil provides deterministic test signal generators shared by
// the package test suites.
package testutil

import "math"

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// SinePCM16 generates a deterministic sine wave as 16-bit PCM. amplitude
// is in PCM units (32767 = full scale).
func SinePCM16(freqHz, sampleRate float64, amplitude int16, length int) []int16 {
	out := make([]int16, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = int16(math.Round(float64(amplitude) * math.Sin(step*float64(i))))
	}
	return out
}

// InterleaveStereo builds an interleaved stereo packet from two equal
// length channel slices.
func InterleaveStereo(left, right []int16) []int16 {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	out := make([]int16, 2*n)
	for i := 0; i < n; i++ {
		out[2*i] = left[i]
		out[2*i+1] = right[i]
	}
	return out
}

// MonoPCM16 duplicates a mono int16 signal into interleaved stereo.
func MonoPCM16(mono []int16) []int16 {
	return InterleaveStereo(mono, mono)
}
