// Package design derives biquad coefficients from filter recipes using the
// standard RBJ audio-EQ-cookbook equations.
package design

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dac/dsp/filter/biquad"
)

// Type selects the response shape of one filter band.
type Type uint8

// Filter types. Flat is the identity band every slot starts out as.
const (
	Flat Type = iota
	Peaking
	LowShelf
	HighShelf
	Lowpass
	Highpass

	typeCount // sentinel for validation
)

var typeNames = [typeCount]string{
	"Flat", "Peaking", "LowShelf", "HighShelf", "Lowpass", "Highpass",
}

// String returns the name of the filter type.
func (t Type) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Valid reports whether t is a known filter type.
func (t Type) Valid() bool { return t < typeCount }

// gainEpsilon is the dB magnitude below which a gain-based band is treated
// as identity.
const gainEpsilon = 0.01

// Recipe describes one configurable filter band.
type Recipe struct {
	Type        Type
	FrequencyHz float64
	Q           float64
	GainDB      float64
}

// DefaultRecipe is the neutral band slots are initialized to.
func DefaultRecipe() Recipe {
	return Recipe{Type: Flat, FrequencyHz: 1000, Q: defaultQ}
}

const defaultQ = 0.707

// IsIdentity reports whether the recipe collapses to a passthrough stage:
// a Flat type, a non-positive frequency, or (for gain-based types) a gain
// too small to matter.
func (r Recipe) IsIdentity() bool {
	if r.Type == Flat || !r.Type.Valid() || r.FrequencyHz <= 0 {
		return true
	}

	switch r.Type {
	case Peaking, LowShelf, HighShelf:
		return math.Abs(r.GainDB) < gainEpsilon
	default:
		return false
	}
}

// Compute derives a0-normalized biquad coefficients for the recipe at the
// given sample rate. Identity recipes (and non-positive sample rates) skip
// the trigonometric path entirely and return bypassed passthrough
// coefficients. The computation is deterministic: the same inputs always
// produce bit-identical coefficients.
func Compute(r Recipe, sampleRate float64) biquad.Coefficients {
	if sampleRate <= 0 || r.IsIdentity() {
		return biquad.Identity()
	}

	freq := r.FrequencyHz
	if freq >= sampleRate/2 {
		freq = sampleRate * 0.499
	}

	q := r.Q
	if q <= 0 {
		q = defaultQ
	}

	omega := 2 * math.Pi * freq / sampleRate
	sn := math.Sin(omega)
	cs := math.Cos(omega)
	alpha := sn / (2 * q)
	a := math.Pow(10, r.GainDB/40)

	var b0, b1, b2, a0, a1, a2 float64

	switch r.Type {
	case Lowpass:
		b0 = (1 - cs) / 2
		b1 = 1 - cs
		b2 = (1 - cs) / 2
		a0 = 1 + alpha
		a1 = -2 * cs
		a2 = 1 - alpha

	case Highpass:
		b0 = (1 + cs) / 2
		b1 = -(1 + cs)
		b2 = (1 + cs) / 2
		a0 = 1 + alpha
		a1 = -2 * cs
		a2 = 1 - alpha

	case Peaking:
		b0 = 1 + alpha*a
		b1 = -2 * cs
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cs
		a2 = 1 - alpha/a

	case LowShelf:
		sqrtA := math.Sqrt(a)
		b0 = a * ((a + 1) - (a-1)*cs + 2*sqrtA*alpha)
		b1 = 2 * a * ((a - 1) - (a+1)*cs)
		b2 = a * ((a + 1) - (a-1)*cs - 2*sqrtA*alpha)
		a0 = (a + 1) + (a-1)*cs + 2*sqrtA*alpha
		a1 = -2 * ((a - 1) + (a+1)*cs)
		a2 = (a + 1) + (a-1)*cs - 2*sqrtA*alpha

	case HighShelf:
		sqrtA := math.Sqrt(a)
		b0 = a * ((a + 1) + (a-1)*cs + 2*sqrtA*alpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cs)
		b2 = a * ((a + 1) + (a-1)*cs - 2*sqrtA*alpha)
		a0 = (a + 1) - (a-1)*cs + 2*sqrtA*alpha
		a1 = 2 * ((a - 1) - (a+1)*cs)
		a2 = (a + 1) - (a-1)*cs - 2*sqrtA*alpha

	default:
		return biquad.Identity()
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// Shelf is a convenience wrapper for the loudness table: it designs a low
// or high shelf at the given frequency, Q and gain.
func Shelf(high bool, freqHz, q, gainDB, sampleRate float64) biquad.Coefficients {
	t := LowShelf
	if high {
		t = HighShelf
	}

	return Compute(Recipe{Type: t, FrequencyHz: freqHz, Q: q, GainDB: gainDB}, sampleRate)
}
