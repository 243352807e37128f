package graph

import (
	"fmt"
	"math"
)

type (
	// Oscillator is a periodic source. It is silent outside of its scheduled
	// [start, stop) interval.
	Oscillator struct {
		node
		schedule
		Type      OscillatorType
		Frequency *Param
		// Detune in cents.
		Detune *Param
		wave   *PeriodicWave
		phase  float64
	}

	OscillatorType string

	// PeriodicWave is a single cycle wavetable built from Fourier
	// coefficients.
	PeriodicWave struct {
		table []float32
	}

	// schedule implements the start/stop bookkeeping of source nodes.
	schedule struct {
		started    bool
		start      float64
		stop       float64
		stopCalled bool
	}
)

const (
	Sine     OscillatorType = "sine"
	Square   OscillatorType = "square"
	Sawtooth OscillatorType = "sawtooth"
	Triangle OscillatorType = "triangle"
	Custom   OscillatorType = "custom"
)

const periodicWaveSize = 4096

// NewOscillator returns a 440 Hz sine oscillator.
func (c *Context) NewOscillator() *Oscillator {
	o := &Oscillator{Type: Sine, Frequency: newParam(c, 440), Detune: newParam(c, 0)}
	o.init(c, o)
	o.stop = math.Inf(1)
	return o
}

// NewPeriodicWave builds a wavetable from the cosine (real) and sine (imag)
// coefficients of the harmonics; index 0 is the DC term and is ignored. The
// table is normalized to a peak of 1.
func (c *Context) NewPeriodicWave(real, imag []float64) (*PeriodicWave, error) {
	if !c.features.PeriodicWave {
		return nil, fmt.Errorf("periodic wave: %w", ErrNotSupported)
	}
	if len(real) != len(imag) {
		return nil, fmt.Errorf("periodic wave: %v real and %v imaginary coefficients", len(real), len(imag))
	}
	table := make([]float32, periodicWaveSize)
	var peak float64
	sum := make([]float64, periodicWaveSize)
	for i := range sum {
		x := 2 * math.Pi * float64(i) / periodicWaveSize
		for k := 1; k < len(real); k++ {
			sum[i] += real[k]*math.Cos(float64(k)*x) + imag[k]*math.Sin(float64(k)*x)
		}
		peak = max(peak, math.Abs(sum[i]))
	}
	if peak > 0 {
		for i, v := range sum {
			table[i] = float32(v / peak)
		}
	}
	return &PeriodicWave{table: table}, nil
}

// SetPeriodicWave switches the oscillator to the custom wavetable.
func (o *Oscillator) SetPeriodicWave(w *PeriodicWave) {
	o.wave = w
	o.Type = Custom
}

func (o *Oscillator) Start(t float64) error { return o.schedule.startAt(t) }

// Stop schedules the end of the source. A later call overrides an earlier
// stop time that has not passed yet; once the stop time has passed,
// ErrAlreadyStopped is returned.
func (o *Oscillator) Stop(t float64) error { return o.schedule.stopAt(t, o.ctx.CurrentTime()) }

func (o *Oscillator) process(frame int64) [2]float32 {
	t := o.ctx.time(frame)
	if !o.playing(t) {
		return [2]float32{}
	}
	freq := o.Frequency.valueAt(t)
	if d := o.Detune.valueAt(t); d != 0 {
		freq *= math.Exp2(d / 1200)
	}
	var v float32
	p := o.phase
	switch o.Type {
	case Sine:
		v = float32(math.Sin(2 * math.Pi * p))
	case Square:
		v = 1
		if p >= 0.5 {
			v = -1
		}
	case Sawtooth:
		v = float32(2*p - 1)
	case Triangle:
		v = float32(1 - 4*math.Abs(p-0.5))
	case Custom:
		if o.wave != nil {
			v = o.wave.at(p)
		}
	}
	o.phase += freq / o.ctx.sampleRate
	o.phase -= math.Floor(o.phase)
	return [2]float32{v, v}
}

// at reads the wavetable at phase in [0,1) with linear interpolation.
func (w *PeriodicWave) at(phase float64) float32 {
	x := phase * periodicWaveSize
	i := int(x)
	frac := float32(x - float64(i))
	a := w.table[i%periodicWaveSize]
	b := w.table[(i+1)%periodicWaveSize]
	return a + (b-a)*frac
}

func (s *schedule) startAt(t float64) error {
	if s.started {
		return fmt.Errorf("start: %w", ErrInvalidState)
	}
	s.started = true
	s.start = t
	return nil
}

func (s *schedule) stopAt(t, now float64) error {
	if !s.started {
		return fmt.Errorf("stop before start: %w", ErrInvalidState)
	}
	if s.stopCalled && s.stop <= now {
		return ErrAlreadyStopped
	}
	s.stopCalled = true
	s.stop = max(t, s.start)
	return nil
}

func (s *schedule) playing(t float64) bool {
	return s.started && t >= s.start && t < s.stop
}

// StartTime and StopTime return the scheduled interval; StopTime is +Inf
// until Stop is called.
func (s *schedule) StartTime() float64 { return s.start }
func (s *schedule) StopTime() float64  { return s.stop }

// Ended reports if the stop time is at or before t.
func (s *schedule) Ended(t float64) bool {
	return s.stopCalled && s.stop <= t
}
