package player

import (
	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
)

type (
	// Primitive is one of the independent kinds of playback.
	Primitive string

	// PrimitiveState is the state of one primitive: idle until something is
	// scheduled, playing from the first start time and idle again once
	// everything scheduled for it has ended.
	PrimitiveState string

	// State is a snapshot of the player.
	State struct {
		IsInitialized    bool                         `json:"isInitialized"`
		ContextState     graph.State                  `json:"contextState"`
		CurrentlyPlaying int                          `json:"currentlyPlaying"`
		Settings         harmonia.Settings            `json:"settings"`
		Primitives       map[Primitive]PrimitiveState `json:"primitives"`
		Loop             LoopState                    `json:"loop"`
	}

	tracker struct {
		state  PrimitiveState
		active int
	}
)

const (
	NotePrimitive        Primitive = "note"
	ChordPrimitive       Primitive = "chord"
	ScalePrimitive       Primitive = "scale"
	ProgressionPrimitive Primitive = "progression"
)

const (
	Idle      PrimitiveState = "idle"
	Scheduled PrimitiveState = "scheduled"
	Playing   PrimitiveState = "playing"
)

var primitives = []Primitive{NotePrimitive, ChordPrimitive, ScalePrimitive, ProgressionPrimitive}

func newTrackers() map[Primitive]*tracker {
	ret := make(map[Primitive]*tracker, len(primitives))
	for _, p := range primitives {
		ret[p] = &tracker{state: Idle}
	}
	return ret
}

// track moves the primitive through its states for something sounding from
// start to end on the audio clock. Must be called with the context locked.
func (p *Player) track(kind Primitive, start, end float64) {
	t := p.trackers[kind]
	t.active++
	if t.state == Idle {
		t.state = Scheduled
	}
	now := p.ctx.CurrentTime()
	p.after(AudioToWall(now, start), func() []harmonia.NoteEvent {
		if t.state == Scheduled {
			t.state = Playing
		}
		return nil
	})
	p.after(AudioToWall(now, end), func() []harmonia.NoteEvent {
		if t.active--; t.active <= 0 {
			t.active = 0
			t.state = Idle
		}
		return nil
	})
}

func (p *Player) resetTrackers() {
	for _, t := range p.trackers {
		t.state, t.active = Idle, 0
	}
}

// State returns a snapshot of the player.
func (p *Player) State() State {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	ret := State{
		IsInitialized: p.initialized,
		ContextState:  p.ctx.State(),
		Settings:      p.settings,
		Primitives:    make(map[Primitive]PrimitiveState, len(p.trackers)),
		Loop:          p.loop.snapshot(),
	}
	now := p.ctx.CurrentTime()
	for _, v := range p.voices {
		if v.StopTime > now {
			ret.CurrentlyPlaying++
		}
	}
	for k, t := range p.trackers {
		ret.Primitives[k] = t.state
	}
	return ret
}
