package biquad

import "github.com/cwbudde/algo-dac/dsp/sample"

// Coefficients holds the a0-normalized transfer function of a single
// second-order section as designed in float64, before backend quantization.
//
// The sign convention follows Direct Form II Transposed:
//
//	y  = B0*x + s1
//	s1 = B1*x - A1*y + s2
//	s2 = B2*x - A2*y
//
// Bypassed marks a stage whose recipe collapsed to identity; the runtime
// skips it without touching state.
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
	Bypassed   bool
}

// Identity returns passthrough coefficients flagged bypassed.
func Identity() Coefficients {
	return Coefficients{B0: 1, Bypassed: true}
}

// Section is a single biquad with backend-quantized coefficients and
// internal Direct Form II Transposed state.
type Section[S sample.Num[S]] struct {
	b0, b1, b2 S
	a1, a2     S
	bypassed   bool

	s1, s2 S
}

// NewSection quantizes c into the backend and returns a Section with zero
// state.
func NewSection[S sample.Num[S]](c Coefficients) *Section[S] {
	s := &Section[S]{}
	s.Update(c)

	return s
}

// Update replaces the coefficients and resets the state. A restarted filter
// must carry no audible memory of its previous configuration.
func (s *Section[S]) Update(c Coefficients) {
	var z S
	s.b0 = z.FromCoeff(c.B0)
	s.b1 = z.FromCoeff(c.B1)
	s.b2 = z.FromCoeff(c.B2)
	s.a1 = z.FromCoeff(c.A1)
	s.a2 = z.FromCoeff(c.A2)
	s.bypassed = c.Bypassed
	s.Reset()
}

// Bypassed reports whether the section is an identity stage.
func (s *Section[S]) Bypassed() bool { return s.bypassed }

// ProcessSample filters one sample and returns the output. Bypassed
// sections return the input unchanged.
func (s *Section[S]) ProcessSample(x S) S {
	if s.bypassed {
		return x
	}

	y := s.b0.Mul(x).Add(s.s1)
	s.s1 = s.b1.Mul(x).Sub(s.a1.Mul(y)).Add(s.s2)
	s.s2 = s.b2.Mul(x).Sub(s.a2.Mul(y))

	return y
}

// Reset clears the delay-line state to zero.
func (s *Section[S]) Reset() {
	var z S
	s.s1 = z
	s.s2 = z
}

// State returns the current delay-line state [s1, s2].
func (s *Section[S]) State() [2]S {
	return [2]S{s.s1, s.s2}
}
