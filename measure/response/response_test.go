package response

import (
	"math"
	"testing"
)

func sine(freqHz, rate, amp float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freqHz*float64(i)/rate)
	}
	return s
}

func TestMagnitudesPeakAtToneBin(t *testing.T) {
	cfg := Config{SampleRate: 48000, FFTSize: 1024}
	// Bin-centered tone: 48000/1024*32 = 1500 Hz.
	sig := sine(1500, 48000, 1, 1024)

	mags, err := Magnitudes(sig, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(mags) != 513 {
		t.Fatalf("got %d bins, want 513", len(mags))
	}

	peak := 0
	for i := range mags {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	if peak != 32 {
		t.Errorf("peak at bin %d, want 32", peak)
	}
}

func TestToneLevelBetweenBins(t *testing.T) {
	cfg := Config{SampleRate: 48000, FFTSize: 1024}
	centered := sine(1500, 48000, 1, 1024)
	offset := sine(1523, 48000, 1, 1024)

	lc, err := ToneLevel(centered, 1500, cfg)
	if err != nil {
		t.Fatal(err)
	}
	lo, err := ToneLevel(offset, 1523, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// A tone halfway between bins still lands within the Hann window's
	// scalloping loss of the centered case.
	if lo < lc*0.8 || lo > lc*1.05 {
		t.Errorf("off-center level %g outside [%g, %g]", lo, lc*0.8, lc*1.05)
	}
}

func TestGainDBAtMeasuresAttenuation(t *testing.T) {
	cfg := Config{SampleRate: 48000, FFTSize: 1024}
	in := sine(1500, 48000, 1, 1024)
	out := sine(1500, 48000, 0.1, 1024)

	db, err := GainDBAt(in, out, 1500, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(db+20) > 0.01 {
		t.Errorf("gain %.3f dB, want -20", db)
	}
}

func TestGainDBAtSilentOutput(t *testing.T) {
	cfg := Config{SampleRate: 48000, FFTSize: 256}
	in := sine(1500, 48000, 1, 256)
	out := make([]float64, 256)

	db, err := GainDBAt(in, out, 1500, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(db, -1) {
		t.Errorf("gain %.3f dB, want -Inf", db)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := Magnitudes([]float64{1}, Config{SampleRate: 0, FFTSize: 64}); err == nil {
		t.Error("zero sample rate accepted")
	}
	if _, err := Magnitudes([]float64{1}, Config{SampleRate: 48000, FFTSize: 1}); err == nil {
		t.Error("FFT size 1 accepted")
	}
}
