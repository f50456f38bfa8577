package biquad

import (
	"testing"

	"github.com/cwbudde/algo-dac/dsp/sample"
)

func TestCascadeAllBypassed(t *testing.T) {
	c := NewCascade[sample.F64]([]Coefficients{Identity(), Identity(), Identity()})
	if !c.AllBypassed() {
		t.Fatal("expected all-bypassed cascade")
	}

	var z sample.F64
	if y := c.ProcessSample(z.FromFloat(42)); y.Float() != 42 {
		t.Fatalf("bypassed cascade output: got %v", y.Float())
	}
}

func TestCascadeUpdateClearsFastPath(t *testing.T) {
	c := NewCascade[sample.F64]([]Coefficients{Identity(), Identity()})

	c.UpdateSection(1, Coefficients{B0: 0.5})
	if c.AllBypassed() {
		t.Fatal("fast path still set after non-identity update")
	}

	var z sample.F64
	if y := c.ProcessSample(z.FromFloat(10)); y.Float() != 5 {
		t.Fatalf("got %v, want 5", y.Float())
	}

	c.UpdateSection(1, Identity())
	if !c.AllBypassed() {
		t.Fatal("fast path not restored after identity update")
	}
}

func TestCascadeOrder(t *testing.T) {
	// Two 0.5 gain stages in series: overall 0.25.
	c := NewCascade[sample.F64]([]Coefficients{{B0: 0.5}, {B0: 0.5}})
	var z sample.F64
	if y := c.ProcessSample(z.FromFloat(100)); y.Float() != 25 {
		t.Fatalf("got %v, want 25", y.Float())
	}
}

func TestCascadeUpdateOutOfRange(t *testing.T) {
	c := NewCascade[sample.F64]([]Coefficients{Identity()})
	c.UpdateSection(-1, Coefficients{B0: 2})
	c.UpdateSection(5, Coefficients{B0: 2})
	if !c.AllBypassed() {
		t.Fatal("out-of-range update must be ignored")
	}
}

func TestCascadeResetBothBackends(t *testing.T) {
	coeffs := []Coefficients{{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}}

	fc := NewCascade[sample.F64](coeffs)
	var zf sample.F64
	fc.ProcessSample(zf.FromFloat(1000))
	fc.Reset()
	if st := fc.Section(0).State(); st != [2]sample.F64{0, 0} {
		t.Fatalf("float state after reset: %v", st)
	}

	qc := NewCascade[sample.Q28](coeffs)
	var zq sample.Q28
	qc.ProcessSample(zq.FromFloat(1000))
	qc.Reset()
	if st := qc.Section(0).State(); st != [2]sample.Q28{0, 0} {
		t.Fatalf("fixed state after reset: %v", st)
	}
}
