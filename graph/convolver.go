package graph

import (
	"fmt"
	"math"

	"github.com/harmonia-audio/harmonia"
	"github.com/viterin/vek/vek32"
)

type (
	// Convolver convolves each input channel with the corresponding channel
	// of an impulse response, using uniformly partitioned FFT convolution.
	// The output lags the input by one partition (convolverBlock frames).
	Convolver struct {
		node
		// Normalize scales the impulse response by its power when SetBuffer
		// is called, like a Web Audio ConvolverNode.
		Normalize bool
		fft       *fft
		channels  [2]convolverChannel
		tmpC      []complex128
		tmp       []float32
		parts     int
		head      int
		pos       int
	}

	// convolverChannel holds the partitioned impulse response spectra, the
	// frequency domain delay line of past input blocks and the time domain
	// buffers of one channel.
	convolverChannel struct {
		irRe, irIm   [][]float32
		fdlRe, fdlIm [][]float32
		accRe, accIm []float32
		input        []float64
		output       []float32
	}
)

const convolverBlock = 512

// normalization constants of the Web Audio convolver
const (
	gainCalibration = 0.00125
	minPower        = 0.000125
)

func (c *Context) NewConvolver() (*Convolver, error) {
	if !c.features.Convolution {
		return nil, fmt.Errorf("convolver: %w", ErrNotSupported)
	}
	v := &Convolver{
		Normalize: true,
		fft:       newFFT(2 * convolverBlock),
		tmpC:      make([]complex128, 2*convolverBlock),
		tmp:       make([]float32, convolverBlock+1),
	}
	v.init(c, v)
	return v, nil
}

// SetBuffer partitions and transforms the impulse response. Setting an empty
// buffer silences the node.
func (v *Convolver) SetBuffer(ir harmonia.AudioBuffer) {
	const B = convolverBlock
	v.parts = (len(ir) + B - 1) / B
	v.head, v.pos = 0, 0
	scale := 1.0
	if v.Normalize && len(ir) > 0 {
		var power float64
		for _, s := range ir {
			power += float64(s[0])*float64(s[0]) + float64(s[1])*float64(s[1])
		}
		power = math.Sqrt(power / float64(2*len(ir)))
		scale = gainCalibration / max(power, minPower)
	}
	for ch := range v.channels {
		cc := &v.channels[ch]
		*cc = convolverChannel{
			irRe:   make([][]float32, v.parts),
			irIm:   make([][]float32, v.parts),
			fdlRe:  make([][]float32, v.parts),
			fdlIm:  make([][]float32, v.parts),
			accRe:  make([]float32, B+1),
			accIm:  make([]float32, B+1),
			input:  make([]float64, 2*B),
			output: make([]float32, B),
		}
		for p := range v.parts {
			clear(v.tmpC)
			for i := range B {
				if j := p*B + i; j < len(ir) {
					v.tmpC[i] = complex(float64(ir[j][ch])*scale, 0)
				}
			}
			v.fft.transform(v.tmpC, false)
			cc.irRe[p], cc.irIm[p] = split(v.tmpC[:B+1])
			cc.fdlRe[p] = make([]float32, B+1)
			cc.fdlIm[p] = make([]float32, B+1)
		}
	}
}

func (v *Convolver) process(frame int64) [2]float32 {
	in := v.input(frame)
	if v.parts == 0 {
		return [2]float32{}
	}
	var out [2]float32
	for ch := range v.channels {
		cc := &v.channels[ch]
		out[ch] = cc.output[v.pos]
		cc.input[convolverBlock+v.pos] = float64(in[ch])
	}
	v.pos++
	if v.pos == convolverBlock {
		for ch := range v.channels {
			v.block(&v.channels[ch])
		}
		v.head = (v.head + 1) % v.parts
		v.pos = 0
	}
	return out
}

// block transforms the last two input blocks, pushes the spectrum into the
// delay line and multiply-accumulates it against every partition of the
// impulse response. The last half of the inverse transform is the next
// output block.
func (v *Convolver) block(cc *convolverChannel) {
	const B = convolverBlock
	for i, x := range cc.input {
		v.tmpC[i] = complex(x, 0)
	}
	v.fft.transform(v.tmpC, false)
	re, im := cc.fdlRe[v.head], cc.fdlIm[v.head]
	for k := 0; k <= B; k++ {
		re[k], im[k] = float32(real(v.tmpC[k])), float32(imag(v.tmpC[k]))
	}
	clear(cc.accRe)
	clear(cc.accIm)
	for p := range v.parts {
		slot := (v.head - p + v.parts) % v.parts
		xr, xi := cc.fdlRe[slot], cc.fdlIm[slot]
		hr, hi := cc.irRe[p], cc.irIm[p]
		vek32.Mul_Into(v.tmp, xr, hr)
		vek32.Add_Inplace(cc.accRe, v.tmp)
		vek32.Mul_Into(v.tmp, xi, hi)
		vek32.Sub_Inplace(cc.accRe, v.tmp)
		vek32.Mul_Into(v.tmp, xr, hi)
		vek32.Add_Inplace(cc.accIm, v.tmp)
		vek32.Mul_Into(v.tmp, xi, hr)
		vek32.Add_Inplace(cc.accIm, v.tmp)
	}
	n := 2 * B
	for k := 0; k <= B; k++ {
		v.tmpC[k] = complex(float64(cc.accRe[k]), float64(cc.accIm[k]))
		if k > 0 && k < B {
			v.tmpC[n-k] = complex(float64(cc.accRe[k]), -float64(cc.accIm[k]))
		}
	}
	v.fft.transform(v.tmpC, true)
	for i := range B {
		cc.output[i] = float32(real(v.tmpC[B+i]) / float64(n))
	}
	copy(cc.input[:B], cc.input[B:])
}

func split(c []complex128) (re, im []float32) {
	re, im = make([]float32, len(c)), make([]float32, len(c))
	for i, v := range c {
		re[i], im[i] = float32(real(v)), float32(imag(v))
	}
	return
}
