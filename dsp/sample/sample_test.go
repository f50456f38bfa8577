package sample

import (
	"math"
	"testing"
)

func TestF64PCMRoundTrip(t *testing.T) {
	var z F64
	for _, v := range []int16{0, 1, -1, 12345, -12345, 32767, -32768} {
		got := z.FromPCM16(v).PCM16()
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestQ28PCMRoundTrip(t *testing.T) {
	var z Q28
	for _, v := range []int16{0, 1, -1, 12345, -12345, 32767, -32768} {
		got := z.FromPCM16(v).PCM16()
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestQ28MulMatchesFloat(t *testing.T) {
	var z Q28
	// 0.5 * half-scale input: coefficient in Q4.28, sample at PCM<<14.
	half := z.FromCoeff(0.5)
	x := z.FromPCM16(16384)
	y := half.Mul(x)
	if got := y.PCM16(); got != 8192 {
		t.Fatalf("0.5*16384: got %d, want 8192", got)
	}
}

func TestQ28MulExactShift(t *testing.T) {
	// (a*b)>>28 with small operands, checked by hand:
	// a = 1<<28 (1.0), b = 12345 => 12345.
	a := Q28(1 << CoeffShift)
	b := Q28(12345)
	if got := a.Mul(b); got != 12345 {
		t.Fatalf("1.0*12345: got %d", got)
	}
}

func TestQ28Saturation(t *testing.T) {
	big := Q28(math.MaxInt32)
	if got := big.Add(big); got != Q28(math.MaxInt32) {
		t.Errorf("add overflow: got %d, want MaxInt32", got)
	}

	small := Q28(math.MinInt32)
	if got := small.Sub(big); got != Q28(math.MinInt32) {
		t.Errorf("sub underflow: got %d, want MinInt32", got)
	}

	if got := small.Neg(); got != Q28(math.MaxInt32) {
		t.Errorf("neg MinInt32: got %d, want MaxInt32", got)
	}
}

func TestPCM16Clips(t *testing.T) {
	var f F64
	over := f.FromPCM16(32767).Add(f.FromPCM16(32767))
	if got := over.PCM16(); got != 32767 {
		t.Errorf("F64 clip high: got %d", got)
	}

	var q Q28
	qOver := q.FromPCM16(32767).Add(q.FromPCM16(32767))
	if got := qOver.PCM16(); got != 32767 {
		t.Errorf("Q28 clip high: got %d", got)
	}
}

func TestHalf(t *testing.T) {
	var f F64
	if got := f.FromPCM16(100).Half().PCM16(); got != 50 {
		t.Errorf("F64 half: got %d", got)
	}

	var q Q28
	if got := q.FromPCM16(100).Half().PCM16(); got != 50 {
		t.Errorf("Q28 half: got %d", got)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	var f F64
	if got := f.FromFloat(123.5).Float(); got != 123.5 {
		t.Errorf("F64 float round trip: got %v", got)
	}

	var q Q28
	if got := q.FromFloat(123).Float(); got != 123 {
		t.Errorf("Q28 float round trip: got %v", got)
	}
}

func TestFromCoeffQuantizes(t *testing.T) {
	var q Q28
	if got := q.FromCoeff(1); got != 1<<CoeffShift {
		t.Errorf("FromCoeff(1): got %d, want %d", got, 1<<CoeffShift)
	}
	if got := q.FromCoeff(-1); got != -(1 << CoeffShift) {
		t.Errorf("FromCoeff(-1): got %d", got)
	}
	// Values beyond the Q4.28 range saturate instead of wrapping.
	if got := q.FromCoeff(100); got != math.MaxInt32 {
		t.Errorf("FromCoeff(100): got %d, want MaxInt32", got)
	}
}
