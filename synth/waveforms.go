package synth

import (
	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
)

// harmonic amplitudes of the precomputed waveforms; index 0 is DC, the rest
// are sine partials
var harmonics = map[harmonia.Waveform][]float64{
	harmonia.Piano:      {0, 1, 0.55, 0.32, 0.22, 0.14, 0.09, 0.06, 0.04, 0.025, 0.015},
	harmonia.WarmSine:   {0, 1, 0.12, 0.05, 0.02},
	harmonia.SoftSquare: {0, 1, 0, 0.3, 0, 0.15, 0, 0.08, 0, 0.04, 0, 0.02},
	harmonia.Organ:      {0, 1, 0.8, 0, 0.6, 0, 0.4, 0, 0.25, 0, 0, 0, 0.15},
}

// standard oscillator types used when periodic waves are not supported
var fallbacks = map[harmonia.Waveform]graph.OscillatorType{
	harmonia.Piano:      graph.Triangle,
	harmonia.WarmSine:   graph.Sine,
	harmonia.SoftSquare: graph.Square,
	harmonia.Organ:      graph.Sine,
}

// Fallback returns the standard oscillator type standing in for w.
func Fallback(w harmonia.Waveform) graph.OscillatorType {
	if t, ok := fallbacks[w]; ok {
		return t
	}
	if w.IsHarmonic() {
		return graph.Sine
	}
	return graph.OscillatorType(w)
}

// periodicWave returns the wavetable of a harmonic waveform, building it on
// first use. It returns nil if the context cannot make periodic waves; the
// first such failure is logged.
func (e *Engine) periodicWave(w harmonia.Waveform) *graph.PeriodicWave {
	if wave, ok := e.waves[w]; ok {
		return wave
	}
	h := harmonics[w]
	wave, err := e.ctx.NewPeriodicWave(make([]float64, len(h)), h)
	if err != nil {
		if !e.waveWarned {
			e.logger.Warn("periodic waves unavailable, using standard waveforms", "waveform", w, "err", err)
			e.waveWarned = true
		}
		return nil
	}
	e.waves[w] = wave
	return wave
}

func (e *Engine) setWaveform(osc *graph.Oscillator, w harmonia.Waveform) {
	if !w.IsHarmonic() {
		osc.Type = graph.OscillatorType(w)
		return
	}
	if wave := e.periodicWave(w); wave != nil {
		osc.SetPeriodicWave(wave)
		return
	}
	osc.Type = Fallback(w)
}
