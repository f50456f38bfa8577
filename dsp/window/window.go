// Package window generates analysis window coefficients for the
// measurement helpers.
package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	Rectangular Type = iota
	Hann
	Hamming
	Blackman
)

// cosine-sum coefficients per type, a0 - a1*cos(x) + a2*cos(2x).
var terms = map[Type][3]float64{
	Rectangular: {1, 0, 0},
	Hann:        {0.5, 0.5, 0},
	Hamming:     {0.54, 0.46, 0},
	Blackman:    {0.42, 0.5, 0.08},
}

// Generate returns symmetric window coefficients of the given length.
// Unknown types fall back to Rectangular. Non-positive lengths return nil.
func Generate(t Type, length int) []float64 {
	if length <= 0 {
		return nil
	}

	a, ok := terms[t]
	if !ok {
		a = terms[Rectangular]
	}

	out := make([]float64, length)
	if length == 1 {
		// A single sample sits at the window peak.
		out[0] = a[0] + a[1] + a[2]
		return out
	}
	for i := range out {
		x := 2 * math.Pi * float64(i) / float64(length-1)
		out[i] = a[0] - a[1]*math.Cos(x) + a[2]*math.Cos(2*x)
	}
	return out
}

// Apply multiplies signal by the window in place.
func Apply(t Type, signal []float64) {
	vecmath.MulBlockInPlace(signal, Generate(t, len(signal)))
}
