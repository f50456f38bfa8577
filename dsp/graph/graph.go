// Package graph runs the fixed per-sample signal flow of the output stage:
// preamp, loudness shelves, master EQ, crossfeed, sub derivation, output
// EQ, gain/mute, master volume, delay alignment and final dispatch to the
// PCM and PDM sinks.
//
// ProcessPacket and all setters share one mutex. Packets are short, so a
// configuration change waits at most one packet; the real-time path never
// observes a half-updated filter stage. The loudness table is the one
// exception: it is rebuilt off this lock and published atomically.
package graph

import (
	"errors"
	"sync"

	"github.com/cwbudde/algo-dac/dsp/buffer"
	"github.com/cwbudde/algo-dac/dsp/core"
	"github.com/cwbudde/algo-dac/dsp/crossfeed"
	"github.com/cwbudde/algo-dac/dsp/delay"
	"github.com/cwbudde/algo-dac/dsp/filter/biquad"
	"github.com/cwbudde/algo-dac/dsp/filter/design"
	"github.com/cwbudde/algo-dac/dsp/loudness"
	"github.com/cwbudde/algo-dac/dsp/sample"
)

// Validation errors returned by the configuration surface.
var (
	ErrSampleRate = errors.New("graph: unsupported sample rate")
	ErrChannel    = errors.New("graph: invalid channel")
	ErrBand       = errors.New("graph: band index out of range")
)

// Supported stream rates.
var validRates = []float64{44100, 48000, 96000}

// DefaultSampleRate is the rate assumed until the transport negotiates one.
const DefaultSampleRate = 48000

// silenceThresholdPCM is the per-sample magnitude under which a packet
// counts as silent, in 16-bit PCM units.
const silenceThresholdPCM = 64

// Pool sizing for the PCM output path: packets are at most 1 ms of stereo
// audio at the highest supported rate.
const (
	poolBuffers      = 4
	maxPacketSamples = 512
)

// PCMSink receives finished stereo packets. The sink owns the buffer until
// it returns it to the graph's Pool.
type PCMSink interface {
	Submit(b *buffer.Buffer)
}

// SubSink receives the subwoofer sample stream destined for the modulator.
// TryPush must not block; it reports false when the queue is full.
type SubSink interface {
	TryPush(sample int32, reset bool) bool
}

// Status is a snapshot of the meters and anomaly counters.
type Status struct {
	// Peaks holds the per-channel peak magnitude of the last packet, in
	// 16-bit PCM units. Master peaks are measured after the master EQ,
	// output peaks after the output EQ and before volume.
	Peaks [ChannelCount]float64

	PDMOverruns uint64
	PCMDrops    uint64

	// Silent reports whether the last packet stayed under the silence
	// threshold on both input channels.
	Silent bool
}

// Graph is the complete per-sample processing pipeline for one stereo
// stream. Instantiate with sample.F64 or sample.Q28.
type Graph[S sample.Num[S]] struct {
	mu sync.Mutex

	sampleRate float64

	cascades [ChannelCount]*biquad.Cascade[S]
	recipes  [ChannelCount][MaxBands]design.Recipe

	comp        *loudness.Compensator
	loudnessOn  bool
	loudnessRef float64
	loudnessPct float64
	shelves     [2][loudness.ShelfCount]*biquad.Section[S]

	xfeed *crossfeed.Processor[S]
	xcfg  crossfeed.Config

	delays  *delay.Bank[S]
	delayMS [delay.TapCount]float64

	preampDB     float64
	preamp       S
	volStep      int
	volMul       S
	masterBypass bool

	gainDB [delay.TapCount]float64
	gains  [delay.TapCount]S
	mutes  [delay.TapCount]bool

	pool *buffer.Pool
	pcm  PCMSink
	sub  SubSink

	peaks       [ChannelCount]float64
	pdmOverruns uint64
	pcmDrops    uint64
	lastSilent  bool
}

// New returns a graph at the default rate with the default device program:
// all bands flat except an 80 Hz highpass on the stereo outputs and an
// 80 Hz lowpass on the sub. Either sink may be nil, which discards that
// output path.
func New[S sample.Num[S]](pcm PCMSink, sub SubSink) *Graph[S] {
	g := &Graph[S]{
		sampleRate:  DefaultSampleRate,
		comp:        loudness.NewCompensator(),
		xfeed:       crossfeed.New[S](),
		delays:      delay.NewBank[S](),
		loudnessRef: 83,
		loudnessPct: 100,
		pool:        buffer.NewPool(poolBuffers, maxPacketSamples),
		pcm:         pcm,
		sub:         sub,
	}

	for ch := Channel(0); ch < ChannelCount; ch++ {
		for b := 0; b < MaxBands; b++ {
			g.recipes[ch][b] = design.DefaultRecipe()
		}
		coeffs := make([]biquad.Coefficients, ch.Bands())
		for i := range coeffs {
			coeffs[i] = biquad.Identity()
		}
		g.cascades[ch] = biquad.NewCascade[S](coeffs)
	}

	hp := design.Recipe{Type: design.Highpass, FrequencyHz: 80, Q: 0.707}
	lp := design.Recipe{Type: design.Lowpass, FrequencyHz: 80, Q: 0.707}
	g.recipes[OutLeft][0] = hp
	g.recipes[OutRight][0] = hp
	g.recipes[OutSub][0] = lp

	for side := 0; side < 2; side++ {
		for j := 0; j < loudness.ShelfCount; j++ {
			g.shelves[side][j] = biquad.NewSection[S](biquad.Identity())
		}
	}

	var z S
	g.preamp = z.FromCoeff(1)
	g.volMul = z.FromCoeff(volumeMultiplier(0))
	for i := range g.gains {
		g.gains[i] = z.FromCoeff(1)
	}

	g.applyRateLocked(g.sampleRate)
	return g
}

// Pool returns the PCM buffer pool. Sinks return submitted buffers here.
func (g *Graph[S]) Pool() *buffer.Pool { return g.pool }

// SampleRate returns the current stream rate.
func (g *Graph[S]) SampleRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampleRate
}

// SetSampleRate switches the stream rate, recomputing every cascade, the
// crossfeed, the loudness table and all delay offsets before the next
// packet is processed.
func (g *Graph[S]) SetSampleRate(rate float64) error {
	ok := false
	for _, r := range validRates {
		if rate == r {
			ok = true
			break
		}
	}
	if !ok {
		return ErrSampleRate
	}

	g.comp.Recompute(g.loudnessRef, g.loudnessPct, rate)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.applyRateLocked(rate)
	return nil
}

func (g *Graph[S]) applyRateLocked(rate float64) {
	g.sampleRate = rate
	for ch := Channel(0); ch < ChannelCount; ch++ {
		for b := 0; b < ch.Bands(); b++ {
			g.cascades[ch].UpdateSection(b, design.Compute(g.recipes[ch][b], rate))
		}
	}
	g.xfeed.Configure(g.xcfg, rate)
	g.delays.SetDelays(g.delayMS[delay.TapLeft], g.delayMS[delay.TapRight],
		g.delayMS[delay.TapSub], rate)
	g.delays.Reset()
	g.updateLoudnessLocked()
}

// SetRecipe programs one EQ band. Bands beyond the channel's active count
// are stored but not processed, matching the configuration surface's fixed
// 12-band layout.
func (g *Graph[S]) SetRecipe(ch Channel, band int, r design.Recipe) error {
	if !ch.Valid() {
		return ErrChannel
	}
	if band < 0 || band >= MaxBands {
		return ErrBand
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.recipes[ch][band] = r
	if band < ch.Bands() {
		g.cascades[ch].UpdateSection(band, design.Compute(r, g.sampleRate))
	}
	return nil
}

// Recipe returns the stored recipe for one band.
func (g *Graph[S]) Recipe(ch Channel, band int) (design.Recipe, error) {
	if !ch.Valid() {
		return design.Recipe{}, ErrChannel
	}
	if band < 0 || band >= MaxBands {
		return design.Recipe{}, ErrBand
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recipes[ch][band], nil
}

// SetPreamp sets the global input gain in dB.
func (g *Graph[S]) SetPreamp(db float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var z S
	g.preampDB = db
	g.preamp = z.FromCoeff(core.DBToLinear(db))
}

// SetVolumeStep sets the master attenuation step, 0 (reference) to 90
// (-90 dB), clamping out-of-range values. The step also selects the active
// loudness table row.
func (g *Graph[S]) SetVolumeStep(step int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var z S
	g.volStep = core.ClampInt(step, 0, VolumeSteps-1)
	g.volMul = z.FromCoeff(volumeMultiplier(g.volStep))
	g.updateLoudnessLocked()
}

// VolumeStep returns the current attenuation step.
func (g *Graph[S]) VolumeStep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.volStep
}

// SetMasterBypass skips the master EQ cascades without touching their
// coefficients.
func (g *Graph[S]) SetMasterBypass(bypass bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masterBypass = bypass
}

// SetOutputGain sets one output channel's trim in dB.
func (g *Graph[S]) SetOutputGain(tap int, db float64) {
	if tap < 0 || tap >= delay.TapCount {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	var z S
	g.gainDB[tap] = db
	g.gains[tap] = z.FromCoeff(core.DBToLinear(db))
}

// SetOutputMute hard-mutes one output channel. Mute wins over gain.
func (g *Graph[S]) SetOutputMute(tap int, mute bool) {
	if tap < 0 || tap >= delay.TapCount {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutes[tap] = mute
}

// SetOutputDelay sets one output channel's alignment delay in ms.
func (g *Graph[S]) SetOutputDelay(tap int, ms float64) {
	if tap < 0 || tap >= delay.TapCount {
		return
	}
	if ms < 0 {
		ms = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.delayMS[tap] = ms
	g.delays.SetDelays(g.delayMS[delay.TapLeft], g.delayMS[delay.TapRight],
		g.delayMS[delay.TapSub], g.sampleRate)
}

// SetCrossfeed reconfigures the headphone crossfeed.
func (g *Graph[S]) SetCrossfeed(cfg crossfeed.Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.xcfg = cfg
	g.xfeed.Configure(cfg, g.sampleRate)
}

// SetLoudness enables or disables loudness compensation and rebuilds the
// table for the given reference SPL and intensity. The rebuild happens
// before the graph lock is taken; the swap is atomic.
func (g *Graph[S]) SetLoudness(enabled bool, refSPL, intensityPct float64) {
	g.comp.Recompute(refSPL, intensityPct, g.SampleRate())

	g.mu.Lock()
	defer g.mu.Unlock()
	g.loudnessOn = enabled
	g.loudnessRef = refSPL
	g.loudnessPct = intensityPct
	g.updateLoudnessLocked()
}

func (g *Graph[S]) updateLoudnessLocked() {
	row := g.comp.Lookup(g.volStep)
	for side := 0; side < 2; side++ {
		for j := 0; j < loudness.ShelfCount; j++ {
			g.shelves[side][j].Update(row[j])
		}
	}
}

// Status returns the current meters and counters.
func (g *Graph[S]) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Peaks:       g.peaks,
		PDMOverruns: g.pdmOverruns,
		PCMDrops:    g.pcmDrops,
		Silent:      g.lastSilent,
	}
}

// Reset clears all filter, crossfeed and delay state. Configuration is
// kept.
func (g *Graph[S]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.cascades {
		c.Reset()
	}
	for side := 0; side < 2; side++ {
		for _, s := range g.shelves[side] {
			s.Reset()
		}
	}
	g.xfeed.Reset()
	g.delays.Reset()
}

// ProcessPacket runs one packet of interleaved 16-bit stereo PCM through
// the full pipeline. An odd trailing sample is ignored. The PCM path emits
// nothing when the buffer pool is exhausted; the sub path and channel
// timing are unaffected.
func (g *Graph[S]) ProcessPacket(in []int16) {
	g.mu.Lock()
	defer g.mu.Unlock()

	frames := len(in) / 2

	var out *buffer.Buffer
	if g.pcm != nil && frames > 0 {
		out = g.pool.TryTake()
		if out == nil {
			g.pcmDrops++
		} else {
			out.Resize(frames * 2)
		}
	}

	var z S
	var peaks [ChannelCount]float64
	silent := true

	for i := 0; i < frames; i++ {
		rawL := in[2*i]
		rawR := in[2*i+1]
		if abs16(rawL) > silenceThresholdPCM || abs16(rawR) > silenceThresholdPCM {
			silent = false
		}

		l := z.FromPCM16(rawL).Mul(g.preamp)
		r := z.FromPCM16(rawR).Mul(g.preamp)

		if g.loudnessOn {
			l = g.shelves[0][0].ProcessSample(l)
			l = g.shelves[0][1].ProcessSample(l)
			r = g.shelves[1][0].ProcessSample(r)
			r = g.shelves[1][1].ProcessSample(r)
		}

		if !g.masterBypass {
			l = g.cascades[MasterLeft].ProcessSample(l)
			r = g.cascades[MasterRight].ProcessSample(r)
		}

		trackPeak(&peaks[MasterLeft], l)
		trackPeak(&peaks[MasterRight], r)

		l, r = g.xfeed.ProcessStereo(l, r)
		subIn := l.Add(r).Half()

		outL := g.cascades[OutLeft].ProcessSample(l)
		outR := g.cascades[OutRight].ProcessSample(r)
		outS := g.cascades[OutSub].ProcessSample(subIn)

		trackPeak(&peaks[OutLeft], outL)
		trackPeak(&peaks[OutRight], outR)
		trackPeak(&peaks[OutSub], outS)

		outL = g.applyOutput(outL, delay.TapLeft)
		outR = g.applyOutput(outR, delay.TapRight)
		outS = g.applyOutput(outS, delay.TapSub)

		dL, dR, dS := g.delays.Process(outL, outR, outS)

		if out != nil {
			s := out.Samples()
			s[2*i] = dL.PCM16()
			s[2*i+1] = dR.PCM16()
		}

		if g.sub != nil {
			if !g.sub.TryPush(dS.PDM32(), silent) {
				g.pdmOverruns++
			}
		}
	}

	g.peaks = peaks
	g.lastSilent = silent

	if out != nil {
		g.pcm.Submit(out)
	}
}

// applyOutput applies mute, trim gain and master volume to one output
// channel sample.
func (g *Graph[S]) applyOutput(x S, tap int) S {
	if g.mutes[tap] {
		var z S
		return z
	}
	return x.Mul(g.gains[tap]).Mul(g.volMul)
}

func trackPeak[S sample.Num[S]](peak *float64, x S) {
	v := x.Float()
	if v < 0 {
		v = -v
	}
	if v > *peak {
		*peak = v
	}
}

// abs16 widens before negating so math.MinInt16 keeps its magnitude.
func abs16(v int16) int {
	if v < 0 {
		return -int(v)
	}
	return int(v)
}
