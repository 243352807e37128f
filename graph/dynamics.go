package graph

import (
	"math"

	"github.com/harmonia-audio/harmonia"
)

type (
	// Compressor is a feed-forward soft knee compressor with a stereo linked
	// peak detector. Threshold and Knee are in dB, Attack and Release in
	// seconds. It applies no automatic makeup gain.
	Compressor struct {
		node
		Threshold *Param
		Knee      *Param
		Ratio     *Param
		Attack    *Param
		Release   *Param
		reduction float64 // current gain reduction in dB, <= 0
	}

	// BufferSource plays an AudioBuffer once, or looped, from its start time.
	BufferSource struct {
		node
		schedule
		Buffer harmonia.AudioBuffer
		Loop   bool
		pos    int
	}
)

// NewCompressor returns a compressor with the Web Audio defaults: threshold
// -24 dB, knee 30 dB, ratio 12, attack 3 ms and release 250 ms.
func (c *Context) NewCompressor() *Compressor {
	m := &Compressor{
		Threshold: newParam(c, -24),
		Knee:      newParam(c, 30),
		Ratio:     newParam(c, 12),
		Attack:    newParam(c, 0.003),
		Release:   newParam(c, 0.25),
	}
	m.init(c, m)
	return m
}

// Reduction returns the current gain reduction in dB.
func (m *Compressor) Reduction() float64 { return m.reduction }

func (m *Compressor) process(frame int64) [2]float32 {
	in := m.input(frame)
	t := m.ctx.time(frame)
	level := math.Max(math.Abs(float64(in[0])), math.Abs(float64(in[1])))
	db := -120.0
	if level > 1e-6 {
		db = 20 * math.Log10(level)
	}
	target := gainComputer(db, m.Threshold.valueAt(t), m.Knee.valueAt(t), m.Ratio.valueAt(t)) - db
	timeConst := m.Release.valueAt(t)
	if target < m.reduction {
		timeConst = m.Attack.valueAt(t)
	}
	alpha := 0.0
	if timeConst > 0 {
		alpha = math.Exp(-1 / (timeConst * m.ctx.sampleRate))
	}
	m.reduction = alpha*m.reduction + (1-alpha)*target
	gain := float32(math.Pow(10, m.reduction/20))
	return [2]float32{in[0] * gain, in[1] * gain}
}

// gainComputer maps an input level to an output level, both in dB, with a
// quadratic knee of width knee centered on threshold.
func gainComputer(x, threshold, knee, ratio float64) float64 {
	ratio = max(ratio, 1)
	over := x - threshold
	switch {
	case 2*over < -knee:
		return x
	case knee > 0 && 2*math.Abs(over) <= knee:
		k := over + knee/2
		return x + (1/ratio-1)*k*k/(2*knee)
	}
	return threshold + over/ratio
}

func (c *Context) NewBufferSource() *BufferSource {
	s := &BufferSource{}
	s.init(c, s)
	s.stop = math.Inf(1)
	return s
}

func (s *BufferSource) Start(t float64) error { return s.schedule.startAt(t) }

func (s *BufferSource) Stop(t float64) error { return s.schedule.stopAt(t, s.ctx.CurrentTime()) }

func (s *BufferSource) process(frame int64) [2]float32 {
	if !s.playing(s.ctx.time(frame)) || len(s.Buffer) == 0 {
		return [2]float32{}
	}
	if s.pos >= len(s.Buffer) {
		if !s.Loop {
			return [2]float32{}
		}
		s.pos = 0
	}
	v := s.Buffer[s.pos]
	s.pos++
	return v
}

// NoiseBuffer returns seconds of white noise in [-1, 1], the same noise in
// both channels, from a deterministic generator seeded with seed.
func NoiseBuffer(seconds, sampleRate float64, seed uint32) harmonia.AudioBuffer {
	buf := make(harmonia.AudioBuffer, int(seconds*sampleRate))
	r := Rand(seed | 1)
	for i := range buf {
		v := r.Float32()
		buf[i] = [2]float32{v, v}
	}
	return buf
}

// Rand is a tiny multiplicative congruential generator returning values in
// [-1, 1). The zero value is not usable; seed it with an odd number.
type Rand uint32

func (r *Rand) Float32() float32 {
	*r *= 16007
	return float32(int32(*r)) / -2147483648.0
}
