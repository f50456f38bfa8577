// Command dacsim runs a WAV file through the full output pipeline offline:
// EQ, crossfeed, loudness, volume, delay alignment, and sigma-delta
// modulation of the derived subwoofer channel. It writes the processed
// stereo stream (and optionally the sub channel and raw PDM bitstream) and
// can audition the result on the default audio device.
package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-dac/drift"
	"github.com/cwbudde/algo-dac/dsp/buffer"
	"github.com/cwbudde/algo-dac/dsp/crossfeed"
	"github.com/cwbudde/algo-dac/dsp/delay"
	"github.com/cwbudde/algo-dac/dsp/filter/design"
	"github.com/cwbudde/algo-dac/dsp/graph"
	"github.com/cwbudde/algo-dac/dsp/sample"
	"github.com/cwbudde/algo-dac/pdm"
)

type options struct {
	input  string
	output string
	subOut string
	pdmOut string
	play   bool

	backend      string
	volume       int
	preampDB     float64
	masterBypass bool

	crossfeedMode string
	crossfeedFreq float64
	crossfeedFeed float64
	crossfeedITD  bool

	loudness    bool
	loudnessRef float64
	loudnessPct float64

	delayLeftMS  float64
	delayRightMS float64
	delaySubMS   float64

	eq []string
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "dacsim",
		Short: "Offline simulation of the DAC output pipeline",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "input WAV file (16-bit PCM)")
	f.StringVarP(&opts.output, "output", "o", "", "processed stereo WAV output")
	f.StringVar(&opts.subOut, "sub-out", "", "subwoofer channel WAV output")
	f.StringVar(&opts.pdmOut, "pdm-out", "", "raw PDM bitstream output (little-endian uint32 words)")
	f.BoolVar(&opts.play, "play", false, "play the processed stereo stream")

	f.StringVar(&opts.backend, "backend", "float", "numeric backend: float or fixed")
	f.IntVar(&opts.volume, "volume", 0, "attenuation step, 0 (reference) to 90 (-90 dB)")
	f.Float64Var(&opts.preampDB, "preamp", 0, "preamp gain in dB")
	f.BoolVar(&opts.masterBypass, "bypass", false, "bypass the master EQ")

	f.StringVar(&opts.crossfeedMode, "crossfeed", "off",
		"crossfeed: off, default, chumoy, meier or custom")
	f.Float64Var(&opts.crossfeedFreq, "crossfeed-freq", 700, "custom crossfeed cutoff in Hz")
	f.Float64Var(&opts.crossfeedFeed, "crossfeed-feed", 4.5, "custom crossfeed level in dB")
	f.BoolVar(&opts.crossfeedITD, "crossfeed-itd", true, "enable the crossfeed time delay")

	f.BoolVar(&opts.loudness, "loudness", false, "enable loudness compensation")
	f.Float64Var(&opts.loudnessRef, "loudness-ref", 83, "loudness reference SPL in dB")
	f.Float64Var(&opts.loudnessPct, "loudness-intensity", 100, "loudness intensity percent")

	f.Float64Var(&opts.delayLeftMS, "delay-left", 0, "left output delay in ms")
	f.Float64Var(&opts.delayRightMS, "delay-right", 0, "right output delay in ms")
	f.Float64Var(&opts.delaySubMS, "delay-sub", 0, "sub output delay in ms")

	f.StringArrayVar(&opts.eq, "eq", nil,
		"EQ band as channel:band:type:freq:q:gain, e.g. master-left:0:Peaking:1000:1.0:-3")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func run(opts *options) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pcm, rate, err := loadWAV(opts.input)
	if err != nil {
		return err
	}
	logger.Info("loaded input", "file", opts.input, "rate", rate,
		"frames", len(pcm)/2)

	switch opts.backend {
	case "float":
		return simulate[sample.F64](logger, opts, pcm, rate)
	case "fixed":
		return simulate[sample.Q28](logger, opts, pcm, rate)
	default:
		return fmt.Errorf("unknown backend %q", opts.backend)
	}
}

// pcmCollector gathers finished packets into one stream and recycles the
// buffers.
type pcmCollector struct {
	pool    *buffer.Pool
	samples []int16
}

func (c *pcmCollector) Submit(b *buffer.Buffer) {
	c.samples = append(c.samples, b.Samples()...)
	c.pool.Put(b)
}

func simulate[S sample.Num[S]](logger *slog.Logger, opts *options, pcm []int16, rate int) error {
	ring := pdm.NewRing()
	collector := &pcmCollector{}

	g := graph.New[S](collector, ring)
	collector.pool = g.Pool()

	if err := g.SetSampleRate(float64(rate)); err != nil {
		return fmt.Errorf("sample rate %d: %w", rate, err)
	}
	if err := configure(g, opts); err != nil {
		return err
	}

	tracker := drift.NewTracker(uint32(rate))
	mod := pdm.NewModulator()

	var subPCM []int16
	var pdmWords []uint32
	var pdmOnes, pdmBits uint64

	// One packet per host millisecond, the transport's natural cadence.
	packetFrames := rate / 1000
	for off := 0; off < len(pcm); off += 2 * packetFrames {
		end := off + 2*packetFrames
		if end > len(pcm) {
			end = len(pcm)
		}

		g.ProcessPacket(pcm[off:end])
		tracker.AddSamples((end - off) / 2)

		for {
			msg, ok := ring.TryPop()
			if !ok {
				break
			}
			if msg.Reset {
				mod.Reset()
			}

			subPCM = append(subPCM, clip16(int(msg.Sample>>sample.PCMShift)))

			words := mod.Modulate(msg.Sample)
			for _, w := range words {
				pdmOnes += uint64(bits.OnesCount32(w))
				pdmBits += 32
			}
			if opts.pdmOut != "" {
				pdmWords = append(pdmWords, words[:]...)
			}
		}
	}

	status := g.Status()
	logger.Info("processed",
		"frames", len(collector.samples)/2,
		"peak_master_l", int(status.Peaks[graph.MasterLeft]),
		"peak_master_r", int(status.Peaks[graph.MasterRight]),
		"peak_sub", int(status.Peaks[graph.OutSub]),
		"pcm_drops", status.PCMDrops,
		"pdm_overruns", status.PDMOverruns)

	if pdmBits > 0 {
		logger.Info("pdm bitstream",
			"words", pdmBits/32,
			"duty", fmt.Sprintf("%.4f", float64(pdmOnes)/float64(pdmBits)))
	}
	logger.Info("feedback", "samples_per_frame_q14", tracker.Feedback())

	if opts.output != "" {
		if err := writeWAV(opts.output, collector.samples, rate, 2); err != nil {
			return err
		}
		logger.Info("wrote output", "file", opts.output)
	}
	if opts.subOut != "" {
		if err := writeWAV(opts.subOut, subPCM, rate, 1); err != nil {
			return err
		}
		logger.Info("wrote sub channel", "file", opts.subOut)
	}
	if opts.pdmOut != "" {
		if err := writeWords(opts.pdmOut, pdmWords); err != nil {
			return err
		}
		logger.Info("wrote bitstream", "file", opts.pdmOut)
	}

	if opts.play {
		logger.Info("playing", "rate", rate)
		if err := play(collector.samples, rate); err != nil {
			return err
		}
	}
	return nil
}

func configure[S sample.Num[S]](g *graph.Graph[S], opts *options) error {
	g.SetVolumeStep(opts.volume)
	g.SetPreamp(opts.preampDB)
	g.SetMasterBypass(opts.masterBypass)

	g.SetOutputDelay(delay.TapLeft, opts.delayLeftMS)
	g.SetOutputDelay(delay.TapRight, opts.delayRightMS)
	g.SetOutputDelay(delay.TapSub, opts.delaySubMS)

	cfg := crossfeed.Config{
		ITDEnabled:     opts.crossfeedITD,
		CustomCenterHz: opts.crossfeedFreq,
		CustomFeedDB:   opts.crossfeedFeed,
	}
	switch opts.crossfeedMode {
	case "off":
	case "default":
		cfg.Enabled = true
		cfg.Preset = crossfeed.PresetDefault
	case "chumoy":
		cfg.Enabled = true
		cfg.Preset = crossfeed.PresetChuMoy
	case "meier":
		cfg.Enabled = true
		cfg.Preset = crossfeed.PresetJanMeier
	case "custom":
		cfg.Enabled = true
		cfg.Preset = crossfeed.PresetCustom
	default:
		return fmt.Errorf("unknown crossfeed mode %q", opts.crossfeedMode)
	}
	g.SetCrossfeed(cfg)

	g.SetLoudness(opts.loudness, opts.loudnessRef, opts.loudnessPct)

	for _, spec := range opts.eq {
		ch, band, recipe, err := parseEQ(spec)
		if err != nil {
			return err
		}
		if err := g.SetRecipe(ch, band, recipe); err != nil {
			return fmt.Errorf("eq %q: %w", spec, err)
		}
	}
	return nil
}

func parseEQ(spec string) (graph.Channel, int, design.Recipe, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 6 {
		return 0, 0, design.Recipe{},
			fmt.Errorf("eq %q: want channel:band:type:freq:q:gain", spec)
	}

	ch, ok := channelByName(parts[0])
	if !ok {
		return 0, 0, design.Recipe{}, fmt.Errorf("eq %q: unknown channel %q", spec, parts[0])
	}

	band, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, design.Recipe{}, fmt.Errorf("eq %q: bad band: %w", spec, err)
	}

	ft, ok := typeByName(parts[2])
	if !ok {
		return 0, 0, design.Recipe{}, fmt.Errorf("eq %q: unknown type %q", spec, parts[2])
	}

	freq, err1 := strconv.ParseFloat(parts[3], 64)
	q, err2 := strconv.ParseFloat(parts[4], 64)
	gain, err3 := strconv.ParseFloat(parts[5], 64)
	if err := errors.Join(err1, err2, err3); err != nil {
		return 0, 0, design.Recipe{}, fmt.Errorf("eq %q: %w", spec, err)
	}

	return ch, band, design.Recipe{Type: ft, FrequencyHz: freq, Q: q, GainDB: gain}, nil
}

func channelByName(name string) (graph.Channel, bool) {
	for ch := graph.Channel(0); ch < graph.ChannelCount; ch++ {
		if strings.EqualFold(ch.String(), name) {
			return ch, true
		}
	}
	return 0, false
}

func typeByName(name string) (design.Type, bool) {
	for t := design.Type(0); t.Valid(); t++ {
		if strings.EqualFold(t.String(), name) {
			return t, true
		}
	}
	return 0, false
}

func loadWAV(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	format := buf.Format
	shift := 0
	if dec.BitDepth > 16 {
		shift = int(dec.BitDepth) - 16
	}

	switch format.NumChannels {
	case 1:
		out := make([]int16, 2*len(buf.Data))
		for i, v := range buf.Data {
			s := clip16(v >> shift)
			out[2*i] = s
			out[2*i+1] = s
		}
		return out, format.SampleRate, nil
	case 2:
		out := make([]int16, len(buf.Data))
		for i, v := range buf.Data {
			out[i] = clip16(v >> shift)
		}
		return out, format.SampleRate, nil
	default:
		return nil, 0, fmt.Errorf("%s: %d channels, want mono or stereo",
			path, format.NumChannels)
	}
}

func writeWAV(path string, pcm []int16, rate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeWords(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, words); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func play(pcm []int16, rate int) error {
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	raw := make([]byte, 2*len(pcm))
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v))
	}

	p := ctx.NewPlayer(bytes.NewReader(raw))
	p.Play()
	for p.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return p.Close()
}

func clip16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
