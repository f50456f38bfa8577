// Package loudness implements equal-loudness volume compensation based on
// the ISO 226:2003 contours.
//
// At reduced listening levels the ear loses sensitivity at the spectral
// extremes faster than at 1 kHz. The compensator precomputes, per volume
// step, a low-shelf and a high-shelf biquad whose gains restore the
// perceived balance: the shelf gain is the contour difference between the
// reference level and the effective level, minus the flat volume change.
// Tables are rebuilt off the audio path and published atomically, so the
// per-sample lookup never waits on a recompute.
package loudness

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dac/dsp/core"
	"github.com/cwbudde/algo-dac/dsp/filter/biquad"
	"github.com/cwbudde/algo-dac/dsp/filter/design"
)

// VolumeSteps is the number of table entries, one per whole-dB attenuation
// step from 0 dB (step 0, reference level) to -90 dB (step 90).
const VolumeSteps = 91

// ShelfCount is the number of biquads applied per channel.
const ShelfCount = 2

// Reference SPL calibration limits, in phon.
const (
	MinReferenceSPL = 40.0
	MaxReferenceSPL = 100.0
)

// Shelf corner frequencies and shared Q.
const (
	lowShelfHz  = 200.0
	highShelfHz = 6000.0
	shelfQ      = 0.707
)

// ISO 226:2003 Table 1 constants for the two evaluation frequencies.
// Tf is the hearing threshold, af the exponent, Lu the magnitude of the
// linear transfer function, all at the given frequency.
const (
	iso50Tf = 44.0
	iso50Af = 0.432
	iso50Lu = 80.4

	iso10kTf = 13.9
	iso10kAf = 0.301
	iso10kLu = 17.8
)

// Table holds the shelf coefficients for every volume step. A Table is
// immutable once published.
type Table struct {
	steps [VolumeSteps][ShelfCount]biquad.Coefficients
}

// At returns the shelf coefficients for the given volume step. The index is
// clamped to the valid range.
func (t *Table) At(volStep int) [ShelfCount]biquad.Coefficients {
	return t.steps[core.ClampInt(volStep, 0, VolumeSteps-1)]
}

// Compensator owns the active table and rebuilds it when the calibration
// or the sample rate changes. Lookup is safe from a concurrent goroutine.
type Compensator struct {
	active atomic.Pointer[Table]
}

// NewCompensator returns a compensator with an identity table (no
// compensation at any step).
func NewCompensator() *Compensator {
	c := &Compensator{}
	var t Table
	for i := range t.steps {
		for j := range t.steps[i] {
			t.steps[i][j] = biquad.Identity()
		}
	}
	c.active.Store(&t)
	return c
}

// Lookup returns the shelf coefficients for a volume step from the most
// recently published table.
func (c *Compensator) Lookup(volStep int) [ShelfCount]biquad.Coefficients {
	return c.active.Load().At(volStep)
}

// Recompute rebuilds the full table for the given reference SPL (phon,
// clamped to [40, 100]), intensity (percent, 0 disables compensation) and
// sample rate, then publishes it. Safe to call while Lookup is in use.
func (c *Compensator) Recompute(refSPL, intensityPct, sampleRate float64) {
	if sampleRate < 1 {
		sampleRate = 48000
	}
	refSPL = core.Clamp(refSPL, MinReferenceSPL, MaxReferenceSPL)

	t := &Table{}
	for volStep := 0; volStep < VolumeSteps; volStep++ {
		volDB := -float64(volStep)

		// The effective listening level tracks the volume setting but
		// never rises above the reference and never falls below 20 phon,
		// where the contour data ends.
		effectivePhon := core.Clamp(refSPL+volDB, 20, refSPL)

		lowGainDB := compensationDB(iso50Tf, iso50Af, iso50Lu,
			refSPL, effectivePhon, intensityPct)
		highGainDB := compensationDB(iso10kTf, iso10kAf, iso10kLu,
			refSPL, effectivePhon, intensityPct)

		t.steps[volStep][0] = design.Shelf(false, lowShelfHz, shelfQ, lowGainDB, sampleRate)
		t.steps[volStep][1] = design.Shelf(true, highShelfHz, shelfQ, highGainDB, sampleRate)
	}

	c.active.Store(t)
}

// iso226SPL evaluates equations 1 and 2 of ISO 226:2003 at one frequency:
//
//	Af = 4.47e-3 * (10^(0.025*Ln) - 1.15) + (0.4 * 10^((Tf+Lu)/10 - 9))^af
//	Lp = (10/af) * log10(Af) - Lu + 94
func iso226SPL(tf, af, lu, phon float64) float64 {
	b := 0.4 * math.Pow(10, (tf+lu)/10-9)
	threshold := math.Pow(b, af)

	aF := 4.47e-3*(math.Pow(10, 0.025*phon)-1.15) + threshold
	if aF < 1e-10 {
		aF = 1e-10
	}

	return (10/af)*math.Log10(aF) - lu + 94
}

// compensationDB returns the shelf gain in dB for one frequency: the SPL
// change along the equal-loudness contour minus the flat volume change at
// 1 kHz, scaled by the intensity percentage. Positive means boost.
func compensationDB(tf, af, lu, refSPL, effectivePhon, intensityPct float64) float64 {
	if effectivePhon >= refSPL {
		return 0
	}

	splRef := iso226SPL(tf, af, lu, refSPL)
	splEff := iso226SPL(tf, af, lu, effectivePhon)

	flatChange := effectivePhon - refSPL
	freqChange := splEff - splRef

	return (freqChange - flatChange) * intensityPct / 100
}
