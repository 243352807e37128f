package graph_test

import (
	"errors"
	"math"
	"testing"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
)

func newRunningContext(t *testing.T) *graph.Context {
	t.Helper()
	ctx := graph.NewContext(graph.Options{SampleRate: 44100})
	if err := ctx.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	return ctx
}

func impulse(ctx *graph.Context, value float32) *graph.BufferSource {
	src := ctx.NewBufferSource()
	src.Buffer = harmonia.AudioBuffer{{value, value}}
	return src
}

func TestSuspendedContextIsSilentAndStill(t *testing.T) {
	ctx := graph.NewContext(graph.Options{})
	osc := ctx.NewOscillator()
	osc.Connect(ctx.Destination())
	osc.Start(0)
	buf := ctx.RenderSeconds(0.01)
	if buf.Peak() != 0 {
		t.Fatalf("suspended context rendered audio")
	}
	if ctx.CurrentTime() != 0 {
		t.Fatalf("suspended clock advanced to %v", ctx.CurrentTime())
	}
	ctx.Resume()
	ctx.RenderSeconds(0.5)
	if math.Abs(ctx.CurrentTime()-0.5) > 1e-9 {
		t.Fatalf("CurrentTime() = %v, want 0.5", ctx.CurrentTime())
	}
}

func TestClosedContextSource(t *testing.T) {
	ctx := newRunningContext(t)
	buf := make(harmonia.AudioBuffer, 16)
	if err := ctx.Render(buf); err != nil {
		t.Fatalf("Render on running context returned %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	buf[0] = [2]float32{1, 1}
	if err := ctx.Render(buf); !errors.Is(err, graph.ErrClosed) {
		t.Fatalf("Render on closed context returned %v", err)
	}
	if buf[0] != [2]float32{} {
		t.Errorf("closed context did not render silence")
	}
	if err := ctx.Source()(buf); !errors.Is(err, graph.ErrClosed) {
		t.Fatalf("Source on closed context returned %v", err)
	}
	if err := ctx.Resume(); !errors.Is(err, graph.ErrClosed) {
		t.Fatalf("Resume on closed context returned %v", err)
	}
}

func TestOscillatorSchedule(t *testing.T) {
	ctx := newRunningContext(t)
	osc := ctx.NewOscillator()
	osc.Type = graph.Square
	osc.Frequency.SetValue(100)
	osc.Connect(ctx.Destination())
	if err := osc.Stop(1); !errors.Is(err, graph.ErrInvalidState) {
		t.Fatalf("Stop before Start returned %v", err)
	}
	osc.Start(0.1)
	osc.Stop(0.2)
	if err := osc.Start(0.3); !errors.Is(err, graph.ErrInvalidState) {
		t.Fatalf("second Start returned %v", err)
	}
	buf := ctx.RenderSeconds(0.3)
	if p := buf[:4410].Peak(); p != 0 {
		t.Fatalf("oscillator sounded before start: %v", p)
	}
	if p := buf[4410:8820].Peak(); p != 1 {
		t.Fatalf("square wave peak = %v, want 1", p)
	}
	if p := buf[8821:].Peak(); p != 0 {
		t.Fatalf("oscillator sounded after stop: %v", p)
	}
	if err := osc.Stop(0.5); !errors.Is(err, graph.ErrAlreadyStopped) {
		t.Fatalf("Stop after the stop time returned %v", err)
	}
	if !osc.Ended(ctx.CurrentTime()) {
		t.Fatalf("oscillator should have ended")
	}
}

func TestStopOverridesPendingStop(t *testing.T) {
	ctx := newRunningContext(t)
	osc := ctx.NewOscillator()
	osc.Start(0)
	osc.Stop(10)
	if err := osc.Stop(0.5); err != nil {
		t.Fatalf("overriding a pending stop failed: %v", err)
	}
	if osc.StopTime() != 0.5 {
		t.Fatalf("StopTime() = %v, want 0.5", osc.StopTime())
	}
}

func TestGainAndPeriodicWave(t *testing.T) {
	ctx := newRunningContext(t)
	wave, err := ctx.NewPeriodicWave([]float64{0, 0, 0}, []float64{0, 1, 0.5})
	if err != nil {
		t.Fatalf("NewPeriodicWave failed: %v", err)
	}
	osc := ctx.NewOscillator()
	osc.SetPeriodicWave(wave)
	osc.Frequency.SetValue(220)
	gain := ctx.NewGain()
	gain.Gain.SetValue(0.5)
	osc.Connect(gain)
	gain.Connect(ctx.Destination())
	osc.Start(0)
	buf := ctx.RenderSeconds(0.1)
	if p := buf.Peak(); math.Abs(float64(p)-0.5) > 0.01 {
		t.Fatalf("peak = %v, want 0.5", p)
	}
}

func TestPeriodicWaveNotSupported(t *testing.T) {
	ctx := graph.NewContext(graph.Options{Features: &graph.Features{Convolution: true}})
	if _, err := ctx.NewPeriodicWave([]float64{0, 1}, []float64{0, 0}); !errors.Is(err, graph.ErrNotSupported) {
		t.Fatalf("NewPeriodicWave returned %v", err)
	}
	if _, err := ctx.NewConvolver(); err != nil {
		t.Fatalf("NewConvolver failed: %v", err)
	}
	ctx = graph.NewContext(graph.Options{Features: &graph.Features{}})
	if _, err := ctx.NewConvolver(); !errors.Is(err, graph.ErrNotSupported) {
		t.Fatalf("NewConvolver returned %v", err)
	}
}

func TestDelayFeedbackCycle(t *testing.T) {
	ctx := newRunningContext(t)
	src := impulse(ctx, 1)
	delay := ctx.NewDelay(0.1)
	delay.DelayTime.SetValue(0.01)
	feedback := ctx.NewGain()
	feedback.Gain.SetValue(0.5)
	src.Connect(delay)
	delay.Connect(feedback)
	feedback.Connect(delay)
	delay.Connect(ctx.Destination())
	src.Start(0)
	buf := ctx.RenderSeconds(0.05)
	for _, c := range []struct {
		frame int
		want  float32
	}{{441, 1}, {882, 0.5}, {1323, 0.25}, {100, 0}} {
		if got := buf[c.frame][0]; math.Abs(float64(got-c.want)) > 1e-6 {
			t.Errorf("frame %v = %v, want %v", c.frame, got, c.want)
		}
	}
}

func TestConvolverIdentity(t *testing.T) {
	ctx := newRunningContext(t)
	conv, err := ctx.NewConvolver()
	if err != nil {
		t.Fatalf("NewConvolver failed: %v", err)
	}
	conv.Normalize = false
	ir := make(harmonia.AudioBuffer, 2000)
	ir[0] = [2]float32{1, 1}
	ir[1500] = [2]float32{0.5, 0.25}
	conv.SetBuffer(ir)
	src := impulse(ctx, 0.5)
	src.Connect(conv)
	conv.Connect(ctx.Destination())
	src.Start(0)
	buf := ctx.RenderSeconds(0.1)
	const latency = 512
	check := func(frame int, want [2]float32) {
		got := buf[frame]
		if math.Abs(float64(got[0]-want[0])) > 1e-4 || math.Abs(float64(got[1]-want[1])) > 1e-4 {
			t.Errorf("frame %v = %v, want %v", frame, got, want)
		}
	}
	check(latency, [2]float32{0.5, 0.5})
	check(latency+1, [2]float32{0, 0})
	check(latency+1500, [2]float32{0.25, 0.125})
	check(latency-1, [2]float32{0, 0})
}

func TestBiquadResponse(t *testing.T) {
	ctx := newRunningContext(t)
	lp := ctx.NewBiquadFilter()
	lp.Frequency.SetValue(500)
	if r := lp.Response(10000); r > 0.01 {
		t.Fatalf("lowpass response at 10 kHz = %v", r)
	}
	if r := lp.Response(20); math.Abs(r-1) > 0.01 {
		t.Fatalf("lowpass response at 20 Hz = %v", r)
	}
	hp := ctx.NewBiquadFilter()
	hp.Type = graph.Highpass
	hp.Frequency.SetValue(7000)
	if r := hp.Response(100); r > 0.001 {
		t.Fatalf("highpass response at 100 Hz = %v", r)
	}
	hp.Reset()
	if hp.Type != graph.Lowpass || hp.Frequency.Value() != 350 || hp.Q.Value() != 1 {
		t.Fatalf("Reset did not restore the defaults")
	}
}

func TestLowpassAttenuatesRendered(t *testing.T) {
	ctx := newRunningContext(t)
	osc := ctx.NewOscillator()
	osc.Frequency.SetValue(8000)
	lp := ctx.NewBiquadFilter()
	lp.Frequency.SetValue(200)
	osc.Connect(lp)
	lp.Connect(ctx.Destination())
	osc.Start(0)
	buf := ctx.RenderSeconds(0.2)
	if p := buf[4410:].Peak(); p > 0.01 {
		t.Fatalf("filtered 8 kHz sine peak = %v", p)
	}
}

func TestStereoPanner(t *testing.T) {
	ctx := newRunningContext(t)
	src := ctx.NewBufferSource()
	src.Buffer = harmonia.AudioBuffer{{1, 1}}
	pan := ctx.NewStereoPanner()
	pan.Pan.SetValue(-1)
	src.Connect(pan)
	pan.Connect(ctx.Destination())
	src.Start(0)
	buf := ctx.RenderSeconds(0.001)
	if math.Abs(float64(buf[0][0]-2)) > 1e-6 || math.Abs(float64(buf[0][1])) > 1e-6 {
		t.Fatalf("hard left pan gave %v", buf[0])
	}
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	ctx := newRunningContext(t)
	osc := ctx.NewOscillator()
	comp := ctx.NewCompressor()
	comp.Threshold.SetValue(-18)
	comp.Knee.SetValue(12)
	comp.Ratio.SetValue(4)
	osc.Connect(comp)
	comp.Connect(ctx.Destination())
	osc.Start(0)
	buf := ctx.RenderSeconds(1)
	if p := buf[22050:].Peak(); p > 0.5 {
		t.Fatalf("compressed peak = %v", p)
	}
	if comp.Reduction() >= -6 {
		t.Fatalf("Reduction() = %v dB", comp.Reduction())
	}
}

func TestDisconnect(t *testing.T) {
	ctx := newRunningContext(t)
	osc := ctx.NewOscillator()
	gain := ctx.NewGain()
	osc.Connect(gain)
	gain.Connect(ctx.Destination())
	if ctx.Destination().NumInputs() != 1 {
		t.Fatalf("destination has %v inputs", ctx.Destination().NumInputs())
	}
	gain.Disconnect()
	if ctx.Destination().NumInputs() != 0 {
		t.Fatalf("Disconnect left %v inputs", ctx.Destination().NumInputs())
	}
	gain.Reset()
	if gain.NumInputs() != 0 {
		t.Fatalf("Reset left %v inputs", gain.NumInputs())
	}
}

func TestNoiseBufferDeterministic(t *testing.T) {
	a := graph.NoiseBuffer(0.01, 44100, 1)
	b := graph.NoiseBuffer(0.01, 44100, 1)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise differs at %v", i)
		}
		if a[i][0] < -1 || a[i][0] > 1 {
			t.Fatalf("noise out of range: %v", a[i][0])
		}
	}
	if a.RMS() < 0.3 {
		t.Fatalf("noise RMS = %v", a.RMS())
	}
}
