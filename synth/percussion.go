package synth

import (
	"errors"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
)

type (
	// Percussion plays a simple drum pattern under chords. Its nodes are not
	// pooled; each Hit owns what it created.
	Percussion struct {
		ctx    *graph.Context
		bus    *graph.Gain
		noise  harmonia.AudioBuffer
		Volume float64
	}

	// Source is a scheduled sound generator, an oscillator or a buffer.
	Source interface {
		graph.Node
		Start(t float64) error
		Stop(t float64) error
		Ended(t float64) bool
	}

	// Hit is the graph fragment of one percussion sound.
	Hit struct {
		Source   Source
		End      float64
		nodes    []graph.Node
		released bool
	}
)

const noiseSeconds = 0.25

// NewPercussion returns a percussion section playing into output.
func NewPercussion(ctx *graph.Context, output graph.Node, volume float64) *Percussion {
	p := &Percussion{
		ctx:    ctx,
		bus:    ctx.NewGain(),
		noise:  graph.NoiseBuffer(noiseSeconds, ctx.SampleRate(), 0xBEEF),
		Volume: volume,
	}
	p.bus.Connect(output)
	return p
}

// Kick is a sine sweeping exponentially from 150 Hz to 40 Hz.
func (p *Percussion) Kick(at float64) (*Hit, error) {
	osc := p.ctx.NewOscillator()
	osc.Frequency.SetValueAtTime(150, at)
	osc.Frequency.ExponentialRampToValueAtTime(40, at+0.15)
	return p.hit(osc, nil, at, 1, 0.4)
}

// Snare is noise bandpassed at 1 kHz.
func (p *Percussion) Snare(at float64) (*Hit, error) {
	f := p.ctx.NewBiquadFilter()
	f.Type = graph.Bandpass
	f.Frequency.SetValue(1000)
	return p.hit(p.noiseSource(), f, at, 0.6, 0.2)
}

// HiHat is noise highpassed at 7 kHz.
func (p *Percussion) HiHat(at float64) (*Hit, error) {
	f := p.ctx.NewBiquadFilter()
	f.Type = graph.Highpass
	f.Frequency.SetValue(7000)
	return p.hit(p.noiseSource(), f, at, 0.25, 0.05)
}

// Pattern schedules the drums under one chord: a kick at the start, a snare
// at the midpoint and four evenly spaced hi-hats.
func (p *Percussion) Pattern(start, duration float64) ([]*Hit, error) {
	var ret []*Hit
	var errs []error
	add := func(h *Hit, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		ret = append(ret, h)
	}
	add(p.Kick(start))
	add(p.Snare(start + duration/2))
	for i := range 4 {
		add(p.HiHat(start + float64(i)*duration/4))
	}
	return ret, errors.Join(errs...)
}

func (p *Percussion) noiseSource() *graph.BufferSource {
	src := p.ctx.NewBufferSource()
	src.Buffer = p.noise
	return src
}

// hit routes src through filter, if any, and an envelope gain peaking at
// level and decaying over length seconds.
func (p *Percussion) hit(src Source, filter *graph.BiquadFilter, at, level, length float64) (*Hit, error) {
	env := p.ctx.NewGain()
	env.Gain.SetValueAtTime(level*p.Volume, at)
	env.Gain.ExponentialRampToValueAtTime(0.001, at+length)
	h := &Hit{Source: src, End: at + length, nodes: []graph.Node{src, env}}
	if filter != nil {
		src.Connect(filter)
		filter.Connect(env)
		h.nodes = append(h.nodes, filter)
	} else {
		src.Connect(env)
	}
	env.Connect(p.bus)
	if err := src.Start(at); err != nil {
		h.Release()
		return nil, err
	}
	if err := src.Stop(h.End); err != nil {
		h.Release()
		return nil, err
	}
	return h, nil
}

// Release disconnects every node of the hit.
func (h *Hit) Release() {
	for _, n := range h.nodes {
		n.Disconnect()
	}
	h.nodes = nil
	h.released = true
}

func (h *Hit) Released() bool { return h.released }
