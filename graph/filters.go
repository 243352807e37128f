package graph

import "math"

type (
	// BiquadFilter is a second order filter with the coefficients of the
	// RBJ audio EQ cookbook, run in transposed direct form II.
	BiquadFilter struct {
		node
		Type      FilterType
		Frequency *Param
		Q         *Param
		coeffs    biquadCoeffs
		lastFreq  float64
		lastQ     float64
		lastType  FilterType
		state     [2][2]float32
	}

	FilterType string

	biquadCoeffs struct {
		b0, b1, b2, a1, a2 float32
	}

	// StereoPanner pans its input with an equal power law; Pan is in [-1, 1].
	StereoPanner struct {
		node
		Pan *Param
	}

	// Delay delays its input by DelayTime seconds, up to the maximum given
	// at construction. It may be part of a feedback cycle.
	Delay struct {
		node
		DelayTime *Param
		buffer    [][2]float32
		pos       int
	}
)

const (
	Lowpass  FilterType = "lowpass"
	Highpass FilterType = "highpass"
	Bandpass FilterType = "bandpass"
)

// NewBiquadFilter returns a 350 Hz lowpass filter with Q of 1.
func (c *Context) NewBiquadFilter() *BiquadFilter {
	f := &BiquadFilter{Type: Lowpass, Frequency: newParam(c, 350), Q: newParam(c, 1)}
	f.init(c, f)
	return f
}

// Reset restores 350 Hz, Q 1 and lowpass, clears the filter memory and
// detaches every input.
func (f *BiquadFilter) Reset() {
	f.Type = Lowpass
	f.Frequency.Reset()
	f.Q.Reset()
	f.state = [2][2]float32{}
	f.lastType = ""
	f.clearInputs()
}

func (f *BiquadFilter) process(frame int64) [2]float32 {
	in := f.input(frame)
	t := f.ctx.time(frame)
	freq, q := f.Frequency.valueAt(t), f.Q.valueAt(t)
	if freq != f.lastFreq || q != f.lastQ || f.Type != f.lastType {
		f.coeffs = cookbook(f.Type, freq, q, f.ctx.sampleRate)
		f.lastFreq, f.lastQ, f.lastType = freq, q, f.Type
	}
	c := f.coeffs
	var out [2]float32
	for i := range 2 {
		s := &f.state[i]
		y := c.b0*in[i] + s[0]
		s[0] = c.b1*in[i] - c.a1*y + s[1]
		s[1] = c.b2*in[i] - c.a2*y
		out[i] = y
	}
	return out
}

// Response returns the magnitude response of the filter at frequency hz
// with its current parameters.
func (f *BiquadFilter) Response(hz float64) float64 {
	c := cookbook(f.Type, f.Frequency.Value(), f.Q.Value(), f.ctx.sampleRate)
	w := 2 * math.Pi * hz / f.ctx.sampleRate
	z1 := complex(math.Cos(-w), math.Sin(-w))
	z2 := z1 * z1
	num := complex(float64(c.b0), 0) + complex(float64(c.b1), 0)*z1 + complex(float64(c.b2), 0)*z2
	den := 1 + complex(float64(c.a1), 0)*z1 + complex(float64(c.a2), 0)*z2
	r := num / den
	return math.Hypot(real(r), imag(r))
}

func cookbook(typ FilterType, freq, q, sampleRate float64) biquadCoeffs {
	freq = min(max(freq, 10), sampleRate*0.49)
	q = max(q, 1e-4)
	omega := 2 * math.Pi * freq / sampleRate
	sin, cos := math.Sincos(omega)
	alpha := sin / (2 * q)
	var b0, b1, b2 float64
	switch typ {
	case Highpass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
	case Bandpass:
		b0, b1, b2 = alpha, 0, -alpha
	default:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
	}
	a0 := 1 + alpha
	return biquadCoeffs{
		b0: float32(b0 / a0),
		b1: float32(b1 / a0),
		b2: float32(b2 / a0),
		a1: float32(-2 * cos / a0),
		a2: float32((1 - alpha) / a0),
	}
}

// NewStereoPanner returns a centered panner.
func (c *Context) NewStereoPanner() *StereoPanner {
	p := &StereoPanner{Pan: newParam(c, 0)}
	p.init(c, p)
	return p
}

// Reset centers the panner and detaches every input.
func (p *StereoPanner) Reset() {
	p.Pan.Reset()
	p.clearInputs()
}

func (p *StereoPanner) process(frame int64) [2]float32 {
	in := p.input(frame)
	pan := min(max(p.Pan.valueAt(p.ctx.time(frame)), -1), 1)
	x := pan
	if pan <= 0 {
		x++
	}
	sin, cos := math.Sincos(x * math.Pi / 2)
	gl, gr := float32(cos), float32(sin)
	if pan <= 0 {
		return [2]float32{in[0] + in[1]*gl, in[1] * gr}
	}
	return [2]float32{in[0] * gl, in[1] + in[0]*gr}
}

// NewDelay returns a delay line holding up to maxDelay seconds.
func (c *Context) NewDelay(maxDelay float64) *Delay {
	d := &Delay{DelayTime: newParam(c, 0)}
	d.buffer = make([][2]float32, int(maxDelay*c.sampleRate)+2)
	d.init(c, d)
	return d
}

func (d *Delay) process(frame int64) [2]float32 {
	n := len(d.buffer)
	delay := min(max(d.DelayTime.valueAt(d.ctx.time(frame))*d.ctx.sampleRate, 0), float64(n-1))
	// read before pulling the input, so a cycle through this node sees the
	// delayed signal instead of silence
	pos := float64(d.pos) - delay
	if pos < 0 {
		pos += float64(n)
	}
	i := int(pos)
	frac := float32(pos - float64(i))
	a, b := d.buffer[i%n], d.buffer[(i+1)%n]
	out := [2]float32{a[0] + (b[0]-a[0])*frac, a[1] + (b[1]-a[1])*frac}
	d.out = out
	d.buffer[d.pos] = d.input(frame)
	d.pos = (d.pos + 1) % n
	return out
}
