// Package synth builds the audio graph fragments of notes, the master
// effects chain and the percussion pattern on top of a graph.Context.
package synth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
	"github.com/harmonia-audio/harmonia/pool"
)

type (
	// Engine synthesizes notes into an output node, usually the input of the
	// effects chain. Like the graph, it must be used with the context lock
	// held when the context is rendering.
	Engine struct {
		ctx        *graph.Context
		output     graph.Node
		settings   harmonia.Settings
		pools      Pools
		waves      map[harmonia.Waveform]*graph.PeriodicWave
		waveWarned bool
		logger     *slog.Logger
	}

	// Pools holds the node pools shared by the voices.
	Pools struct {
		Gains   *pool.Pool[graph.Gain, *graph.Gain]
		Filters *pool.Pool[graph.BiquadFilter, *graph.BiquadFilter]
		Panners *pool.Pool[graph.StereoPanner, *graph.StereoPanner]
	}

	// Voice is the audio graph fragment of one note. It owns its nodes until
	// Engine.Release returns them.
	Voice struct {
		Frequency   float64
		Oscillators []*graph.Oscillator
		// Mix is the node carrying the amplitude envelope.
		Mix *graph.Gain
		// Filter is nil unless the filter envelope is enabled.
		Filter *graph.BiquadFilter
		// Pan places the whole voice in the stereo field. It is nil for
		// centered voices.
		Pan     *graph.StereoPanner
		Panners []*graph.StereoPanner
		// Gains are the pooled level gains of the sub and detuned
		// oscillators.
		Gains      []*graph.Gain
		StopBuffer float64
		StartTime  float64
		StopTime   float64
		pooled     bool
		released   bool
	}
)

// Envelope constants. The amplitude peaks at peakGain after attackTime and
// decays to peakGain*SustainLevel in decayTime.
const (
	peakGain   = 0.3
	attackTime = 0.05
	decayTime  = 0.1
	floorGain  = 0.0001

	subGain      = 0.2
	detunedGain  = 0.25
	detunedPan   = 0.25
	maxCutoff    = 8000
	minBaseFreq  = 200
	minSustainHz = 400
)

// NewPools returns pools with the default retention limits.
func NewPools(ctx *graph.Context) Pools {
	return Pools{
		Gains:   pool.New(ctx.NewGain, pool.GainPoolSize),
		Filters: pool.New(ctx.NewBiquadFilter, pool.FilterPoolSize),
		Panners: pool.New(ctx.NewStereoPanner, pool.PannerPoolSize),
	}
}

func NewEngine(ctx *graph.Context, output graph.Node, pools Pools, settings harmonia.Settings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ctx:      ctx,
		output:   output,
		settings: settings,
		pools:    pools,
		waves:    map[harmonia.Waveform]*graph.PeriodicWave{},
		logger:   logger,
	}
}

func (e *Engine) SetSettings(s harmonia.Settings) { e.settings = s }

func (e *Engine) Settings() harmonia.Settings { return e.settings }

func (e *Engine) Pools() Pools { return e.pools }

// Synthesize schedules a note of frequency Hz starting at startTime on the
// audio clock and holding for duration seconds, after which the release
// takes StopBuffer more seconds. With multi-oscillator synthesis the note is
// a main oscillator, a sub oscillator an octave below and, with stereo
// enhancement, two detuned oscillators panned apart; otherwise it is a
// single oscillator with a plain, unpooled gain.
func (e *Engine) Synthesize(frequency, startTime, duration float64, waveform harmonia.Waveform) (*Voice, error) {
	return e.SynthesizePanned(frequency, 0, startTime, duration, waveform)
}

// SynthesizePanned is Synthesize with the voice placed at pan in [-1, 1]
// through a pooled panner after the mix and filter.
func (e *Engine) SynthesizePanned(frequency, pan, startTime, duration float64, waveform harmonia.Waveform) (*Voice, error) {
	if frequency <= 0 || math.IsNaN(frequency) || duration <= 0 {
		return nil, fmt.Errorf("cannot synthesize %v Hz for %v s", frequency, duration)
	}
	s := e.settings
	v := &Voice{
		Frequency:  frequency,
		StopBuffer: s.ReleaseTime,
		StartTime:  startTime,
		StopTime:   startTime + duration + s.ReleaseTime,
		pooled:     s.MultiOscillator,
	}
	if !s.MultiOscillator {
		osc := e.oscillator(frequency, 0, waveform)
		v.Mix = e.ctx.NewGain()
		osc.Connect(v.Mix)
		e.pan(v, v.Mix, pan)
		v.Oscillators = append(v.Oscillators, osc)
	} else {
		v.Mix = e.pools.Gains.Acquire()
		main := e.oscillator(frequency, 0, waveform)
		main.Connect(v.Mix)
		sub := e.oscillator(frequency/2, 0, waveform)
		v.Oscillators = append(v.Oscillators, main, sub)
		e.level(v, sub, subGain, v.Mix)
		if s.StereoEnhancement {
			for _, sign := range []float64{-1, 1} {
				osc := e.oscillator(frequency, sign*s.Detune, waveform)
				v.Oscillators = append(v.Oscillators, osc)
				pan := e.pools.Panners.Acquire()
				pan.Pan.SetValue(sign * detunedPan)
				v.Panners = append(v.Panners, pan)
				e.level(v, osc, detunedGain, pan)
				pan.Connect(v.Mix)
			}
		}
		if s.FilterEnvelope {
			v.Filter = e.pools.Filters.Acquire()
			v.Filter.Type = graph.Lowpass
			e.filterEnvelope(v.Filter.Frequency, frequency, startTime, duration)
			v.Mix.Connect(v.Filter)
			e.pan(v, v.Filter, pan)
		} else {
			e.pan(v, v.Mix, pan)
		}
	}
	e.amplitudeEnvelope(v.Mix.Gain, startTime, duration, v.StopBuffer)
	var errs []error
	for _, osc := range v.Oscillators {
		if err := osc.Start(startTime); err != nil {
			errs = append(errs, err)
		}
		if err := osc.Stop(v.StopTime); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		e.Release(v)
		return nil, fmt.Errorf("cannot schedule oscillators: %w", err)
	}
	return v, nil
}

func (e *Engine) oscillator(frequency, detune float64, waveform harmonia.Waveform) *graph.Oscillator {
	osc := e.ctx.NewOscillator()
	e.setWaveform(osc, waveform)
	osc.Frequency.SetValue(frequency)
	osc.Detune.SetValue(detune)
	return osc
}

// pan routes the last node of the voice into the output, through a pooled
// panner unless pan is zero.
func (e *Engine) pan(v *Voice, tail graph.Node, pan float64) {
	if pan == 0 || math.IsNaN(pan) {
		tail.Connect(e.output)
		return
	}
	v.Pan = e.pools.Panners.Acquire()
	v.Pan.Pan.SetValue(min(max(pan, -1), 1))
	tail.Connect(v.Pan)
	v.Pan.Connect(e.output)
}

// level routes src through a pooled gain of the given level into dst.
func (e *Engine) level(v *Voice, src graph.Node, level float64, dst graph.Node) {
	g := e.pools.Gains.Acquire()
	g.Gain.SetValue(level)
	src.Connect(g)
	g.Connect(dst)
	v.Gains = append(v.Gains, g)
}

// envelopeTimes shortens the attack and decay of notes too short to hold
// them fully.
func envelopeTimes(start, duration float64) (attackEnd, decayEnd float64) {
	return start + min(attackTime, duration/2), start + min(attackTime+decayTime, duration)
}

func (e *Engine) amplitudeEnvelope(p *graph.Param, start, duration, stopBuffer float64) {
	attackEnd, decayEnd := envelopeTimes(start, duration)
	end := start + duration
	p.SetValueAtTime(0, start)
	p.LinearRampToValueAtTime(peakGain, attackEnd)
	p.ExponentialRampToValueAtTime(peakGain*e.settings.SustainLevel, decayEnd)
	p.SetTargetAtTime(floorGain, end, e.settings.ReleaseTime/5)
	p.SetValueAtTime(0, end+stopBuffer)
}

func (e *Engine) filterEnvelope(p *graph.Param, frequency, start, duration float64) {
	attackEnd, decayEnd := envelopeTimes(start, duration)
	base := max(frequency*1.5, minBaseFreq)
	peak := min(frequency*e.settings.FilterEnvelopeAmount, maxCutoff)
	sustain := max(frequency*2.5, minSustainHz)
	p.SetValueAtTime(base, start)
	p.LinearRampToValueAtTime(peak, attackEnd)
	p.ExponentialRampToValueAtTime(sustain, decayEnd)
	p.SetTargetAtTime(base, start+duration, e.settings.ReleaseTime/5)
}

// StopVoice stops every oscillator of the voice at time at. Oscillators that
// already stopped on their own are not an error.
func (e *Engine) StopVoice(v *Voice, at float64) error {
	var errs []error
	for _, osc := range v.Oscillators {
		if err := osc.Stop(at); err != nil && !errors.Is(err, graph.ErrAlreadyStopped) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release disconnects the voice and returns its pooled nodes. Releasing a
// voice twice is a no-op.
func (e *Engine) Release(v *Voice) {
	if v == nil || v.released {
		return
	}
	v.released = true
	for _, osc := range v.Oscillators {
		osc.Disconnect()
	}
	e.pools.Panners.Release(v.Pan)
	v.Pan = nil
	if !v.pooled {
		v.Mix.Disconnect()
		return
	}
	for _, g := range v.Gains {
		e.pools.Gains.Release(g)
	}
	for _, p := range v.Panners {
		e.pools.Panners.Release(p)
	}
	e.pools.Filters.Release(v.Filter)
	e.pools.Gains.Release(v.Mix)
	v.Gains, v.Panners, v.Filter = nil, nil, nil
}

// Released reports if Release has been called on the voice.
func (v *Voice) Released() bool { return v.released }
