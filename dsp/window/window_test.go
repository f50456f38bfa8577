package window

import (
	"math"
	"testing"
)

func TestGenerateAllTypes(t *testing.T) {
	for _, typ := range []Type{Rectangular, Hann, Hamming, Blackman} {
		w := Generate(typ, 64)
		if len(w) != 64 {
			t.Fatalf("type=%v len=%d, want 64", typ, len(w))
		}
		for i, v := range w {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("type=%v coefficient[%d] invalid: %v", typ, i, v)
			}
			if v < -1e-12 || v > 1+1e-12 {
				t.Fatalf("type=%v coefficient[%d] out of range: %v", typ, i, v)
			}
		}
	}
}

func TestGenerateSymmetry(t *testing.T) {
	for _, typ := range []Type{Hann, Hamming, Blackman} {
		w := Generate(typ, 65)
		for i := range w {
			j := len(w) - 1 - i
			if math.Abs(w[i]-w[j]) > 1e-12 {
				t.Fatalf("type=%v asymmetric at %d: %v vs %v", typ, i, w[i], w[j])
			}
		}
		if math.Abs(w[32]-1) > 1e-12 {
			t.Fatalf("type=%v center=%v, want 1", typ, w[32])
		}
	}
}

func TestGenerateHannEndpoints(t *testing.T) {
	w := Generate(Hann, 16)
	if w[0] != 0 || math.Abs(w[15]) > 1e-15 {
		t.Fatalf("endpoints %v %v, want 0", w[0], w[15])
	}
}

func TestGenerateEdgeLengths(t *testing.T) {
	if Generate(Hann, 0) != nil {
		t.Fatal("length 0 should return nil")
	}
	if Generate(Hann, -3) != nil {
		t.Fatal("negative length should return nil")
	}
	w := Generate(Hann, 1)
	if len(w) != 1 || w[0] != 1 {
		t.Fatalf("length 1 = %v, want [1]", w)
	}
}

func TestApplyScalesInPlace(t *testing.T) {
	sig := []float64{2, 2, 2, 2, 2, 2, 2, 2}
	want := Generate(Hann, len(sig))
	Apply(Hann, sig)
	for i := range sig {
		if math.Abs(sig[i]-2*want[i]) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, sig[i], 2*want[i])
		}
	}
}
