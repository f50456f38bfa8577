// Package sample provides the numeric backends the signal path is generic
// over: F64 (floating point) and Q28 (Q4.28 fixed point).
//
// Both backends carry audio at the same amplitude scale: a 16-bit PCM value
// occupies bits 14..29, leaving four bits of headroom above full scale for
// inter-stage overshoot. Filter coefficients enter through FromCoeff, which
// quantizes the designed float64 value into the backend's representation
// (identity for F64, Q4.28 for Q28).
package sample

import "math"

const (
	// CoeffShift is the binary point of Q28 coefficients.
	CoeffShift = 28
	// PCMShift positions a 16-bit PCM value within the 32-bit sample range.
	PCMShift = 14
)

const (
	pcmScale   = 1 << PCMShift
	coeffScale = 1 << CoeffShift
)

// Num is the arithmetic contract shared by the numeric backends. It is a
// self-referential constraint: every operation stays within one backend.
//
// Mul multiplies a coefficient (or gain multiplier) by a sample. For Q28
// that is the exact (a*b)>>28 with saturation; the firmware-style shortcut
// that drops the low partial product is a speed-for-precision trade this
// implementation does not need.
type Num[S any] interface {
	Add(S) S
	Sub(S) S
	Mul(S) S
	Neg() S
	Half() S

	// FromCoeff quantizes a designed filter coefficient or linear gain.
	FromCoeff(float64) S
	// FromPCM16 converts one 16-bit PCM sample to the working scale.
	FromPCM16(int16) S
	// PCM16 rounds and clips back to 16-bit PCM.
	PCM16() int16
	// PDM32 returns the signed 32-bit value handed to the PDM modulator.
	PDM32() int32

	// FromFloat and Float convert to/from 16-bit PCM units expressed as
	// float64. They exist for analysis and tests, not for the signal path.
	FromFloat(float64) S
	Float() float64
}

// F64 is the floating-point backend.
type F64 float64

// Add returns x + y.
func (x F64) Add(y F64) F64 { return x + y }

// Sub returns x - y.
func (x F64) Sub(y F64) F64 { return x - y }

// Mul returns x * y.
func (x F64) Mul(y F64) F64 { return x * y }

// Neg returns -x.
func (x F64) Neg() F64 { return -x }

// Half returns x / 2.
func (x F64) Half() F64 { return x / 2 }

// FromCoeff stores a designed coefficient unchanged.
func (F64) FromCoeff(c float64) F64 { return F64(c) }

// FromPCM16 scales a 16-bit PCM sample into the working range.
func (F64) FromPCM16(v int16) F64 { return F64(v) * pcmScale }

// PCM16 rounds to the nearest 16-bit PCM value and clips.
func (x F64) PCM16() int16 {
	v := int64(x) + pcmScale/2
	return clipPCM16(v >> PCMShift)
}

// PDM32 clips to the signed 32-bit range used by the modulator.
func (x F64) PDM32() int32 { return sat32(int64(x)) }

// FromFloat converts from 16-bit PCM units.
func (F64) FromFloat(f float64) F64 { return F64(f * pcmScale) }

// Float converts to 16-bit PCM units.
func (x F64) Float() float64 { return float64(x) / pcmScale }

// Q28 is the fixed-point backend: samples are int32 at PCM<<14 scale,
// coefficients are Q4.28 fractions.
type Q28 int32

// Add returns x + y with saturation.
func (x Q28) Add(y Q28) Q28 { return Q28(sat32(int64(x) + int64(y))) }

// Sub returns x - y with saturation.
func (x Q28) Sub(y Q28) Q28 { return Q28(sat32(int64(x) - int64(y))) }

// Mul returns the Q4.28 product (x*y)>>28 with saturation.
func (x Q28) Mul(y Q28) Q28 {
	return Q28(sat32((int64(x) * int64(y)) >> CoeffShift))
}

// Neg returns -x with saturation.
func (x Q28) Neg() Q28 { return Q28(sat32(-int64(x))) }

// Half returns x >> 1.
func (x Q28) Half() Q28 { return x >> 1 }

// FromCoeff quantizes a designed coefficient to Q4.28. Truncation matches
// the reference tables, so recomputation stays bit-identical.
func (Q28) FromCoeff(c float64) Q28 { return Q28(sat32(int64(c * coeffScale))) }

// FromPCM16 shifts a 16-bit PCM sample into the working range.
func (Q28) FromPCM16(v int16) Q28 { return Q28(int32(v) << PCMShift) }

// PCM16 rounds to the nearest 16-bit PCM value and clips.
func (x Q28) PCM16() int16 {
	v := int64(x) + pcmScale/2
	return clipPCM16(v >> PCMShift)
}

// PDM32 returns the raw sample value.
func (x Q28) PDM32() int32 { return int32(x) }

// FromFloat converts from 16-bit PCM units.
func (Q28) FromFloat(f float64) Q28 { return Q28(sat32(int64(f * pcmScale))) }

// Float converts to 16-bit PCM units.
func (x Q28) Float() float64 { return float64(x) / pcmScale }

func sat32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

func clipPCM16(v int64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
