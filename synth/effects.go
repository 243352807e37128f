package synth

import (
	"fmt"
	"log/slog"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
)

type (
	// Effects is the master chain every voice is routed through. Input is
	// where voices connect; the chain ends in the context destination.
	Effects struct {
		Input *graph.Gain

		ctx      *graph.Context
		settings harmonia.EffectsSettings
		logger   *slog.Logger

		highpass, lowpass       *graph.BiquadFilter
		delay                   *graph.Delay
		dry, delayWet, feedback *graph.Gain
		reverbDry, reverbWet    *graph.Gain
		convolver               *graph.Convolver
		combs                   []*graph.Delay
		compressor, limiter     *graph.Compressor
		makeup, master          *graph.Gain
	}
)

const (
	highpassCutoff = 80
	maxDelayTime   = 2
	impulseSeed    = 0x1234567
)

// comb reverb taps used when convolution is not available
var combTaps = []struct{ delay, feedback float64 }{
	{0.0297, 0.7},
	{0.0371, 0.65},
	{0.0411, 0.6},
	{0.0437, 0.55},
}

// NewEffects builds the chain into the destination of ctx. With effects
// disabled, the input goes straight to the master volume.
func NewEffects(ctx *graph.Context, settings harmonia.Settings, logger *slog.Logger) *Effects {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Effects{
		ctx:      ctx,
		settings: settings.Effects,
		logger:   logger,
		Input:    ctx.NewGain(),
		master:   ctx.NewGain(),
	}
	e.master.Gain.SetValue(settings.MasterVolume)
	e.master.Connect(ctx.Destination())
	if !settings.Effects.Enabled {
		e.Input.Connect(e.master)
		return e
	}
	s := settings.Effects

	e.highpass = ctx.NewBiquadFilter()
	e.highpass.Type = graph.Highpass
	e.highpass.Frequency.SetValue(highpassCutoff)
	e.lowpass = ctx.NewBiquadFilter()
	e.lowpass.Frequency.SetValue(s.LowpassCutoff)
	e.lowpass.Q.SetValue(s.LowpassResonance)
	e.Input.Connect(e.highpass)
	e.highpass.Connect(e.lowpass)

	// dry + delay with a feedback loop, summed in the reverb send
	send := ctx.NewGain()
	e.dry = ctx.NewGain()
	e.delay = ctx.NewDelay(maxDelayTime)
	e.delayWet = ctx.NewGain()
	e.feedback = ctx.NewGain()
	e.lowpass.Connect(e.dry)
	e.lowpass.Connect(e.delay)
	e.delay.Connect(e.feedback)
	e.feedback.Connect(e.delay)
	e.delay.Connect(e.delayWet)
	e.dry.Connect(send)
	e.delayWet.Connect(send)
	e.SetDelay(s.DelayTime, s.DelayFeedback, s.DelayWet)

	e.compressor = ctx.NewCompressor()
	e.compressor.Threshold.SetValue(s.CompressorThreshold)
	e.compressor.Knee.SetValue(s.CompressorKnee)
	e.compressor.Ratio.SetValue(s.CompressorRatio)
	e.compressor.Attack.SetValue(s.CompressorAttack)
	e.compressor.Release.SetValue(s.CompressorRelease)

	e.reverbDry = ctx.NewGain()
	e.reverbWet = ctx.NewGain()
	send.Connect(e.reverbDry)
	e.reverbDry.Connect(e.compressor)
	e.reverbWet.Connect(e.compressor)
	if conv, err := ctx.NewConvolver(); err == nil {
		e.convolver = conv
		send.Connect(conv)
		conv.Connect(e.reverbWet)
		if err := e.SetReverbPreset(s.Reverb); err != nil {
			logger.Warn("cannot load reverb preset", "preset", s.Reverb, "err", err)
		}
	} else {
		logger.Warn("convolution not supported, using comb reverb", "err", err)
		sum := ctx.NewGain()
		sum.Gain.SetValue(1 / float64(len(combTaps)))
		for _, tap := range combTaps {
			d := ctx.NewDelay(tap.delay)
			d.DelayTime.SetValue(tap.delay)
			fb := ctx.NewGain()
			fb.Gain.SetValue(tap.feedback)
			send.Connect(d)
			d.Connect(fb)
			fb.Connect(d)
			d.Connect(sum)
			e.combs = append(e.combs, d)
		}
		sum.Connect(e.reverbWet)
	}
	e.SetReverbWet(s.ReverbWet)

	e.makeup = ctx.NewGain()
	e.makeup.Gain.SetValue(s.MakeupGain)
	e.compressor.Connect(e.makeup)
	if s.Limiter {
		e.limiter = ctx.NewCompressor()
		e.limiter.Threshold.SetValue(-1)
		e.limiter.Knee.SetValue(0)
		e.limiter.Ratio.SetValue(20)
		e.limiter.Attack.SetValue(0.001)
		e.limiter.Release.SetValue(0.01)
		e.makeup.Connect(e.limiter)
		e.limiter.Connect(e.master)
	} else {
		e.makeup.Connect(e.master)
	}
	return e
}

func (e *Effects) Enabled() bool { return e.highpass != nil }

// Convolution reports whether the reverb is a convolver rather than the comb
// fallback.
func (e *Effects) Convolution() bool { return e.convolver != nil }

func (e *Effects) Compressor() *graph.Compressor { return e.compressor }

func (e *Effects) Volume() float64 { return e.master.Gain.Value() }

func (e *Effects) SetVolume(v float64) {
	e.master.Gain.SetValue(harmonia.Clamp(v, 0, 1))
}

// SetReverbPreset swaps the impulse response of the convolver. It is a no-op
// with the comb reverb or with effects disabled.
func (e *Effects) SetReverbPreset(p harmonia.ReverbPreset) error {
	if e.convolver == nil {
		return nil
	}
	ir, err := Impulse(p, e.ctx.SampleRate(), impulseSeed)
	if err != nil {
		return fmt.Errorf("SetReverbPreset: %w", err)
	}
	e.convolver.SetBuffer(ir)
	e.settings.Reverb = p
	return nil
}

func (e *Effects) SetReverbWet(wet float64) {
	if !e.Enabled() {
		return
	}
	wet = harmonia.Clamp(wet, 0, 1)
	e.reverbWet.Gain.SetValue(wet)
	e.reverbDry.Gain.SetValue(1 - wet)
	e.settings.ReverbWet = wet
}

func (e *Effects) SetDelay(time, feedback, wet float64) {
	if !e.Enabled() {
		return
	}
	e.delay.DelayTime.SetValue(harmonia.Clamp(time, 0, maxDelayTime))
	e.feedback.Gain.SetValue(harmonia.Clamp(feedback, 0, 0.95))
	e.delayWet.Gain.SetValue(harmonia.Clamp(wet, 0, 1))
	e.settings.DelayTime, e.settings.DelayFeedback, e.settings.DelayWet = time, feedback, wet
}

// Close disconnects the chain from the destination.
func (e *Effects) Close() {
	e.master.Disconnect()
}

// Settings returns the effect settings as last applied.
func (e *Effects) Settings() harmonia.EffectsSettings { return e.settings }
