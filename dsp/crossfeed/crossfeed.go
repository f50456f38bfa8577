// Package crossfeed implements Bauer stereophonic-to-binaural (BS2B style)
// crossfeed for headphone listening.
//
// A single-pole lowpass extracts the head-shadowed low-frequency component
// of each channel; a first-order allpass adds the interaural time delay not
// already supplied by the lowpass's own group delay. The direct path is the
// exact complement of the lowpass, so mono content passes at unity gain at
// DC and hard-panned high-frequency content is unchanged:
//
//	outL = (inL - lp(inL)) + ap(lp(inR))
//	outR = (inR - lp(inR)) + ap(lp(inL))
package crossfeed

import (
	"math"

	"github.com/cwbudde/algo-dac/dsp/core"
	"github.com/cwbudde/algo-dac/dsp/sample"
)

// Preset selects one of the fixed (cutoff, feed level) pairs.
type Preset uint8

// Presets. Custom uses the config's center frequency and feed level.
const (
	PresetDefault  Preset = iota // 700 Hz / 4.5 dB, balanced
	PresetChuMoy                 // 700 Hz / 6.0 dB, stronger spatial effect
	PresetJanMeier               // 650 Hz / 9.5 dB, subtle, natural
	PresetCustom
)

// Custom parameter limits.
const (
	MinCenterHz = 500.0
	MaxCenterHz = 2000.0
	MinFeedDB   = 0.0
	MaxFeedDB   = 15.0
)

// itdSeconds is the interaural time delay for a standard 60-degree speaker
// placement (head width 0.15 m, listening distance 1 m, c = 340 m/s).
const itdSeconds = 220e-6

var presets = [3]struct{ centerHz, feedDB float64 }{
	{700, 4.5},
	{700, 6.0},
	{650, 9.5},
}

// Config is the externally persisted crossfeed configuration.
type Config struct {
	Enabled        bool
	ITDEnabled     bool
	Preset         Preset
	CustomCenterHz float64
	CustomFeedDB   float64
}

// Processor holds the derived coefficients and per-channel filter state.
// Configure recomputes coefficients and zeroes the state; the per-sample
// path never recomputes anything.
type Processor[S sample.Num[S]] struct {
	enabled bool

	lpA0, lpB1 S
	apA        S

	lpL, lpR S
	apL, apR S
}

// New returns a disabled Processor.
func New[S sample.Num[S]]() *Processor[S] {
	return &Processor[S]{}
}

// Enabled reports whether the crossfeed is active.
func (p *Processor[S]) Enabled() bool { return p.enabled }

// Configure derives the lowpass and allpass coefficients for cfg at the
// given sample rate and clears all filter state. A disabled config (or a
// degenerate sample rate) leaves the processor inert.
func (p *Processor[S]) Configure(cfg Config, sampleRate float64) {
	p.Reset()
	p.enabled = cfg.Enabled && sampleRate >= 1

	if !p.enabled {
		return
	}

	centerHz, feedDB := presetParams(cfg)

	// Complementary constraint: direct + cross = 1 at DC, with
	// 20*log10(direct/cross) = feedDB.
	levelRatio := math.Pow(10, feedDB/20)
	g := 1 / (1 + levelRatio)

	// Single-pole lowpass H(z) = G*(1-x) / (1 - x*z^-1), x = exp(-2π·fc/fs).
	x := math.Exp(-2 * math.Pi * centerHz / sampleRate)
	lpA0 := g * (1 - x)
	lpB1 := x

	// The lowpass already delays its output by x/((1-x)·fs) seconds at DC.
	// A first-order allpass with a = (1-D)/(1+D) supplies the remaining D
	// samples of the ITD; a = 1 degenerates to a pure passthrough.
	apA := 1.0
	if cfg.ITDEnabled {
		lpDelaySec := x / ((1 - x) * sampleRate)
		if remaining := itdSeconds - lpDelaySec; remaining > 0 {
			d := remaining * sampleRate
			apA = (1 - d) / (1 + d)
		}
	}

	var z S
	p.lpA0 = z.FromCoeff(lpA0)
	p.lpB1 = z.FromCoeff(lpB1)
	p.apA = z.FromCoeff(apA)
}

// ProcessStereo applies the crossfeed transform to one L/R pair. When
// disabled it returns the inputs unchanged.
func (p *Processor[S]) ProcessStereo(inL, inR S) (outL, outR S) {
	if !p.enabled {
		return inL, inR
	}

	// Lowpass both channels: the crossfeed (head shadow) component.
	lpOutL := p.lpA0.Mul(inL).Add(p.lpB1.Mul(p.lpL))
	lpOutR := p.lpA0.Mul(inR).Add(p.lpB1.Mul(p.lpR))
	p.lpL = lpOutL
	p.lpR = lpOutR

	// First-order allpass on the crossfeed paths, transposed DF2:
	//   y = a*x + s; s' = x - a*y
	apOutL := p.apA.Mul(lpOutL).Add(p.apL)
	p.apL = lpOutL.Sub(p.apA.Mul(apOutL))
	apOutR := p.apA.Mul(lpOutR).Add(p.apR)
	p.apR = lpOutR.Sub(p.apA.Mul(apOutR))

	outL = inL.Sub(lpOutL).Add(apOutR)
	outR = inR.Sub(lpOutR).Add(apOutL)

	return outL, outR
}

// Reset zeroes all filter state.
func (p *Processor[S]) Reset() {
	var z S
	p.lpL, p.lpR = z, z
	p.apL, p.apR = z, z
}

func presetParams(cfg Config) (centerHz, feedDB float64) {
	if cfg.Preset < PresetCustom {
		pr := presets[cfg.Preset]
		return pr.centerHz, pr.feedDB
	}

	centerHz = core.Clamp(cfg.CustomCenterHz, MinCenterHz, MaxCenterHz)
	feedDB = core.Clamp(cfg.CustomFeedDB, MinFeedDB, MaxFeedDB)

	return centerHz, feedDB
}
