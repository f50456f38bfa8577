package delay

import (
	"testing"
)

func TestNewRejectsBadSize(t *testing.T) {
	if _, err := New[float64](0); err == nil {
		t.Error("size 0 accepted")
	}
	if _, err := New[float64](-5); err == nil {
		t.Error("negative size accepted")
	}
}

func TestNewRoundsToPowerOfTwo(t *testing.T) {
	d, err := New[float64](1000)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1024 {
		t.Fatalf("len: got %d, want 1024", d.Len())
	}
}

func TestImpulseReadback(t *testing.T) {
	d, err := New[float64](64)
	if err != nil {
		t.Fatal(err)
	}

	const delaySamples = 17
	d.Write(1)
	for i := 0; i < delaySamples; i++ {
		d.Write(0)
	}
	if got := d.Read(delaySamples); got != 1 {
		t.Fatalf("impulse after %d samples: got %v", delaySamples, got)
	}
	if got := d.Read(delaySamples - 1); got != 0 {
		t.Fatalf("one sample early: got %v, want 0", got)
	}
}

func TestReadZeroIsLatestWrite(t *testing.T) {
	d, _ := New[int32](8)
	d.Write(5)
	d.Write(7)
	if got := d.Read(0); got != 7 {
		t.Fatalf("Read(0): got %d, want 7", got)
	}
	if got := d.Read(1); got != 5 {
		t.Fatalf("Read(1): got %d, want 5", got)
	}
}

func TestWraparound(t *testing.T) {
	d, _ := New[int](8)
	for i := 0; i < 100; i++ {
		d.Write(i)
	}
	if got := d.Read(0); got != 99 {
		t.Fatalf("Read(0) after wrap: got %d", got)
	}
	if got := d.Read(7); got != 92 {
		t.Fatalf("Read(7) after wrap: got %d", got)
	}
}

func TestReset(t *testing.T) {
	d, _ := New[float64](8)
	d.Write(3)
	d.Reset()
	if got := d.Read(0); got != 0 {
		t.Fatalf("after reset: got %v", got)
	}
}
