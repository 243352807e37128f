package player

import (
	"fmt"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/voicing"
)

type (
	// LoopState describes the progression loop. Key, mode and progression
	// are fixed for the lifetime of a loop.
	LoopState struct {
		Enabled         bool            `json:"enabled"`
		Key             string          `json:"key,omitempty"`
		Mode            string          `json:"mode,omitempty"`
		Progression     string          `json:"progression,omitempty"`
		PreviousVoicing voicing.Voicing `json:"previousVoicing,omitempty"`
		Iteration       int             `json:"iteration"`
	}

	// loopController owns the single pending timer of the loop. Every stop
	// bumps the generation, so an iteration that was already firing when the
	// loop stopped sees a stale generation and does nothing.
	loopController struct {
		state      LoopState
		timer      Timer
		generation uint64
		next       float64 // audio time where the next iteration starts
	}
)

func (l *loopController) snapshot() LoopState {
	ret := l.state
	ret.PreviousVoicing = append(voicing.Voicing(nil), l.state.PreviousVoicing...)
	return ret
}

func (l *loopController) stop() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.generation++
	l.state.Enabled = false
}

func (l *loopController) reset() {
	l.stop()
	l.state = LoopState{}
}

// PlayProgressionLoop plays the progression over and over, each iteration
// voice-led from the last chord of the previous one, until looping is
// disabled or StopAll is called. A loop already running is replaced.
func (p *Player) PlayProgressionLoop(key, mode, name string) error {
	p.ctx.Lock()
	if !p.initialized {
		p.ctx.Unlock()
		return ErrNotInitialized
	}
	if _, ok := p.theory.Progression(name, mode); !ok {
		p.ctx.Unlock()
		p.logger.Warn("unknown progression", "progression", name, "mode", mode)
		return nil
	}
	p.loop.reset()
	p.loop.state = LoopState{Enabled: true, Key: key, Mode: mode, Progression: name}
	p.loop.next = p.ctx.CurrentTime()
	events, err := p.loopIteration(p.loop.generation)
	p.unlockAndEmit(events)
	return err
}

// loopIteration plays one iteration and schedules the next. Must be called
// with the context locked.
func (p *Player) loopIteration(generation uint64) ([]harmonia.NoteEvent, error) {
	l := &p.loop
	start := max(p.ctx.CurrentTime(), l.next)
	res, events, err := p.playProgression(l.state.Key, l.state.Mode, l.state.Progression, l.state.PreviousVoicing, start)
	if err != nil {
		l.stop()
		return events, fmt.Errorf("loop iteration %d: %w", l.state.Iteration+1, err)
	}
	if res.TotalDuration <= 0 {
		l.stop()
		return events, nil
	}
	l.state.PreviousVoicing = res.FinalVoicing
	l.state.Iteration++
	l.next = start + res.TotalDuration
	delay := max(AudioToWall(p.ctx.CurrentTime(), l.next)-loopLookahead, 0)
	l.timer = p.scheduler.AfterFunc(delay, func() {
		p.ctx.Lock()
		if !l.state.Enabled || l.generation != generation {
			p.ctx.Unlock()
			return
		}
		events, err := p.loopIteration(generation)
		if err != nil {
			p.logger.Error("progression loop stopped", "err", err)
		}
		p.unlockAndEmit(events)
	})
	return events, nil
}

// SetLoopingEnabled(false) cancels the next loop iteration; whatever is
// already scheduled plays to its end. Enabling a stopped loop resumes its
// progression, voice-led from the last voicing it played. With no loop to
// resume, or with one already running, enabling does nothing.
func (p *Player) SetLoopingEnabled(enabled bool) {
	p.ctx.Lock()
	l := &p.loop
	switch {
	case !enabled:
		l.stop()
	case l.state.Enabled || l.state.Progression == "" || !p.initialized:
	default:
		l.state.Enabled = true
		events, err := p.loopIteration(l.generation)
		if err != nil {
			p.logger.Error("progression loop stopped", "err", err)
		}
		p.unlockAndEmit(events)
		return
	}
	p.ctx.Unlock()
}

func (p *Player) LoopState() LoopState {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	return p.loop.snapshot()
}
