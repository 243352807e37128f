package graph

import (
	"math"
	"slices"
)

type (
	// Param is a node parameter whose value can be automated over the audio
	// clock. Without scheduled events it holds its intrinsic value.
	Param struct {
		ctx          *Context
		value        float64
		defaultValue float64
		events       []paramEvent
	}

	paramEvent struct {
		kind         eventKind
		time         float64
		value        float64
		timeConstant float64
	}

	eventKind int
)

const (
	setValueEvent eventKind = iota
	linearRampEvent
	exponentialRampEvent
	setTargetEvent
)

// smallest magnitude an exponential ramp can reach
const minExponentialValue = 1e-5

func newParam(ctx *Context, defaultValue float64) *Param {
	return &Param{ctx: ctx, value: defaultValue, defaultValue: defaultValue}
}

// Value returns the value of the parameter at the current time.
func (p *Param) Value() float64 {
	return p.valueAt(p.ctx.CurrentTime())
}

// SetValue cancels all automation and sets the value immediately.
func (p *Param) SetValue(v float64) {
	p.events = p.events[:0]
	p.value = v
}

// Reset restores the default value and clears all automation.
func (p *Param) Reset() {
	p.SetValue(p.defaultValue)
}

// Events returns the number of scheduled automation events.
func (p *Param) Events() int { return len(p.events) }

func (p *Param) SetValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: setValueEvent, time: t, value: v})
}

// LinearRampToValueAtTime ramps linearly from the previous event to v,
// reaching it at time t.
func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: linearRampEvent, time: t, value: v})
}

// ExponentialRampToValueAtTime ramps exponentially from the previous event
// to v at time t. Values closer to zero than 1e-5 are pushed away from zero,
// keeping the sign.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	if math.Abs(v) < minExponentialValue {
		v = math.Copysign(minExponentialValue, v)
	}
	p.insert(paramEvent{kind: exponentialRampEvent, time: t, value: v})
}

// SetTargetAtTime starts approaching target at time t, with an exponential
// time constant in seconds.
func (p *Param) SetTargetAtTime(target, t, timeConstant float64) {
	p.insert(paramEvent{kind: setTargetEvent, time: t, value: target, timeConstant: max(timeConstant, 1e-6)})
}

// CancelScheduledValues removes every event at or after t.
func (p *Param) CancelScheduledValues(t float64) {
	p.events = slices.DeleteFunc(p.events, func(e paramEvent) bool { return e.time >= t })
}

// insert keeps the events sorted by time; events with equal times keep their
// insertion order.
func (p *Param) insert(e paramEvent) {
	i, _ := slices.BinarySearchFunc(p.events, e.time, func(a paramEvent, t float64) int {
		if a.time <= t {
			return -1
		}
		return 1
	})
	p.events = slices.Insert(p.events, i, e)
}

// valueAt evaluates the automation at time t. A ramp starts from the value
// and time of the event before it; after a SetTarget event the ramp starts
// from the value the target curve started from.
func (p *Param) valueAt(t float64) float64 {
	v := p.value
	prev := 0.0
	var target *paramEvent
loop:
	for i := range p.events {
		e := &p.events[i]
		if e.time > t {
			frac := (t - prev) / (e.time - prev)
			switch e.kind {
			case linearRampEvent:
				return v + (e.value-v)*frac
			case exponentialRampEvent:
				if v == 0 || (v > 0) != (e.value > 0) {
					return v
				}
				return v * math.Pow(e.value/v, frac)
			}
			break loop
		}
		if target != nil {
			v = targetCurve(v, target, e.time)
			target = nil
		}
		if e.kind == setTargetEvent {
			target = e
		} else {
			v = e.value
		}
		prev = e.time
	}
	if target != nil {
		return targetCurve(v, target, t)
	}
	return v
}

func targetCurve(start float64, e *paramEvent, t float64) float64 {
	return e.value + (start-e.value)*math.Exp(-(t-e.time)/e.timeConstant)
}
