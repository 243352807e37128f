// Package player schedules notes, chords, scales and chord progressions on a
// graph.Context and keeps track of what is sounding.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harmonia-audio/harmonia"
	"github.com/harmonia-audio/harmonia/graph"
	"github.com/harmonia-audio/harmonia/synth"
	"github.com/harmonia-audio/harmonia/theory"
	"github.com/harmonia-audio/harmonia/voicing"
)

type (
	// Player is safe for concurrent use; every method holds the lock of the
	// audio context while it touches the graph.
	Player struct {
		ctx       *graph.Context
		theory    *theory.Theory
		settings  harmonia.Settings
		logger    *slog.Logger
		scheduler Scheduler

		initialized bool
		bus         *graph.Gain
		engine      *synth.Engine
		effects     *synth.Effects
		percussion  *synth.Percussion

		voices   []*synth.Voice
		hits     []*synth.Hit
		timers   map[uint64]Timer
		nextID   uint64
		trackers map[Primitive]*tracker
		loop     loopController

		listeners []listener
	}

	Option func(*Player)

	// ProgressionResult is what PlayProgression scheduled. FinalVoicing is
	// the voicing of the last chord, to continue voice leading from.
	ProgressionResult struct {
		FinalVoicing  voicing.Voicing `json:"finalVoicing"`
		TotalDuration float64         `json:"totalDuration"`
	}
)

// ChordOctave is the base octave of progression voicings.
const ChordOctave = 4

var ErrNotInitialized = errors.New("player not initialized")

func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// WithScheduler replaces the wall clock used for cleanup and loop timers.
func WithScheduler(s Scheduler) Option {
	return func(p *Player) { p.scheduler = s }
}

// New returns a player for ctx. Invalid settings are replaced by the
// defaults. The player does nothing until Initialize succeeds.
func New(ctx *graph.Context, th *theory.Theory, settings harmonia.Settings, opts ...Option) *Player {
	p := &Player{
		ctx:       ctx,
		theory:    th,
		settings:  settings,
		logger:    slog.Default(),
		scheduler: WallClock,
		timers:    map[uint64]Timer{},
		trackers:  newTrackers(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.theory == nil {
		p.theory = theory.New(p.logger)
	}
	if err := settings.Validate(); err != nil {
		p.logger.Warn("using default settings", "err", err)
		p.settings = harmonia.DefaultSettings()
	}
	return p
}

// Initialize builds the synthesis engine and the effects chain and resumes
// the audio context. It reports false if the context cannot run.
func (p *Player) Initialize() bool {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	if p.initialized {
		return true
	}
	if err := p.ctx.Resume(); err != nil {
		p.logger.Error("cannot start audio context", "err", err)
		return false
	}
	p.bus = p.ctx.NewGain()
	p.effects = synth.NewEffects(p.ctx, p.settings, p.logger)
	p.bus.Connect(p.effects.Input)
	p.engine = synth.NewEngine(p.ctx, p.bus, synth.NewPools(p.ctx), p.settings, p.logger)
	p.percussion = synth.NewPercussion(p.ctx, p.bus, p.settings.Percussion.Volume)
	p.initialized = true
	p.logger.Debug("player initialized", "sampleRate", p.ctx.SampleRate())
	return true
}

// PlayNote plays a single note now. A duration <= 0 uses the configured
// note duration. Unknown notes are logged and ignored.
func (p *Player) PlayNote(note string, octave int, duration float64) error {
	p.ctx.Lock()
	if !p.initialized {
		p.ctx.Unlock()
		return ErrNotInitialized
	}
	if _, ok := theory.ParseNote(note); !ok {
		p.ctx.Unlock()
		p.logger.Warn("unknown note", "note", note)
		return nil
	}
	if duration <= 0 {
		duration = p.settings.NoteDuration
	}
	now := p.ctx.CurrentTime()
	v, err := p.engine.Synthesize(theory.NoteFrequency(note, octave), now, duration, p.settings.Waveform)
	if err != nil {
		p.ctx.Unlock()
		return fmt.Errorf("PlayNote %s%d: %w", note, octave, err)
	}
	p.schedule(NotePrimitive, now, now+duration, []*synth.Voice{v}, nil, []string{note})
	p.unlockAndEmit(noteEvents(harmonia.NoteStart, now, note))
	return nil
}

// PlayChord voices the notes upwards from the first one in octave and plays
// them now. A duration <= 0 uses the configured chord duration. It returns
// the voicing played.
func (p *Player) PlayChord(notes []string, octave int, duration float64) (voicing.Voicing, error) {
	p.ctx.Lock()
	if !p.initialized {
		p.ctx.Unlock()
		return nil, ErrNotInitialized
	}
	if duration <= 0 {
		duration = p.settings.ChordDuration
	}
	now := p.ctx.CurrentTime()
	v := voicing.VoiceChord(p.validNotes(notes), octave)
	voices := p.synthesize(v, now, duration)
	p.schedule(ChordPrimitive, now, now+duration, voices, nil, v.Notes())
	p.unlockAndEmit(noteEvents(harmonia.ChordStart, now, v.Notes()...))
	return v, nil
}

// PlayScale plays the seven notes of the scale and the octave above the
// tonic, ascending, each lasting half the note duration.
func (p *Player) PlayScale(key, mode string, octave int) error {
	p.ctx.Lock()
	if !p.initialized {
		p.ctx.Unlock()
		return ErrNotInitialized
	}
	notes := p.theory.ScaleNotes(key, mode)
	if len(notes) == 0 {
		p.ctx.Unlock()
		return nil
	}
	step := p.settings.NoteDuration / 2
	now := p.ctx.CurrentTime()
	var voices []*synth.Voice
	var events []harmonia.NoteEvent
	for i, voice := range voicing.VoiceChord(append(notes, notes[0]), octave) {
		at := now + float64(i)*step
		v, err := p.engine.Synthesize(voice.Frequency(), at, step, p.settings.Waveform)
		if err != nil {
			p.logger.Error("cannot synthesize scale note", "note", voice.Note, "err", err)
			continue
		}
		voices = append(voices, v)
		events = append(events, noteEvents(harmonia.NoteStart, at, voice.Note)...)
		p.after(AudioToWall(now, at+step), func() []harmonia.NoteEvent {
			return noteEvents(harmonia.NoteEnd, at+step, voice.Note)
		})
	}
	p.schedule(ScalePrimitive, now, now+float64(len(notes)+1)*step, voices, nil, nil)
	p.unlockAndEmit(events)
	return nil
}

// PlayProgression plays the named progression in key and mode from now,
// chord after chord, each voice-led from the one before and the first from
// previous, which may be nil. Unknown keys or progressions play nothing.
func (p *Player) PlayProgression(key, mode, name string, previous voicing.Voicing) (ProgressionResult, error) {
	p.ctx.Lock()
	if !p.initialized {
		p.ctx.Unlock()
		return ProgressionResult{FinalVoicing: previous}, ErrNotInitialized
	}
	res, events, err := p.playProgression(key, mode, name, previous, p.ctx.CurrentTime())
	p.unlockAndEmit(events)
	return res, err
}

func (p *Player) playProgression(key, mode, name string, previous voicing.Voicing, start float64) (ProgressionResult, []harmonia.NoteEvent, error) {
	ret := ProgressionResult{FinalVoicing: previous}
	chords := p.theory.ResolveProgression(key, mode, name)
	if len(chords) == 0 {
		return ret, nil, nil
	}
	d := p.settings.ProgressionChordDuration
	t := start
	var voices []*synth.Voice
	var hits []*synth.Hit
	var events []harmonia.NoteEvent
	for _, c := range chords {
		v := voicing.OptimizeVoicing(c.Notes, ret.FinalVoicing, ChordOctave)
		voices = append(voices, p.synthesize(v, t, d)...)
		if p.settings.Percussion.Enabled {
			h, err := p.percussion.Pattern(t, d)
			if err != nil {
				p.logger.Error("cannot schedule percussion", "err", err)
			}
			hits = append(hits, h...)
		}
		events = append(events, harmonia.NoteEvent{Note: c.Name(), Type: harmonia.ProgressionChord, Timestamp: t})
		events = append(events, noteEvents(harmonia.ChordStart, t, v.Notes()...)...)
		ret.FinalVoicing = v
		t += d
	}
	ret.TotalDuration = t - start
	p.schedule(ProgressionPrimitive, start, t, voices, hits, nil)
	p.logger.Debug("progression scheduled", "key", key, "mode", mode, "progression", name, "start", start, "duration", ret.TotalDuration)
	return ret, events, nil
}

// synthesize plays every voice of v at its pan; voices that fail are logged
// and skipped.
func (p *Player) synthesize(v voicing.Voicing, start, duration float64) []*synth.Voice {
	ret := make([]*synth.Voice, 0, len(v))
	for _, voice := range v {
		s, err := p.engine.SynthesizePanned(voice.Frequency(), voice.Pan, start, duration, p.settings.Waveform)
		if err != nil {
			p.logger.Error("cannot synthesize voice", "note", voice.Note, "octave", voice.Octave, "err", err)
			continue
		}
		ret = append(ret, s)
	}
	return ret
}

func (p *Player) validNotes(notes []string) []string {
	ret := make([]string, 0, len(notes))
	for _, n := range notes {
		if _, ok := theory.ParseNote(n); !ok {
			p.logger.Warn("unknown note", "note", n)
			continue
		}
		ret = append(ret, n)
	}
	return ret
}

// schedule tracks the voices and hits until they have ended, then releases
// them. Notes given get an end event at end.
func (p *Player) schedule(kind Primitive, start, end float64, voices []*synth.Voice, hits []*synth.Hit, ending []string) {
	p.voices = append(p.voices, voices...)
	p.hits = append(p.hits, hits...)
	p.track(kind, start, end)
	stop := end
	for _, v := range voices {
		stop = max(stop, v.StopTime)
	}
	for _, h := range hits {
		stop = max(stop, h.End)
	}
	p.after(AudioToWall(p.ctx.CurrentTime(), stop)+cleanupMargin, func() []harmonia.NoteEvent {
		for _, v := range voices {
			p.engine.Release(v)
		}
		for _, h := range hits {
			h.Release()
		}
		p.forget()
		return nil
	})
	if len(ending) > 0 {
		p.after(AudioToWall(p.ctx.CurrentTime(), end), func() []harmonia.NoteEvent {
			return noteEvents(harmonia.NoteEnd, end, ending...)
		})
	}
}

// forget drops released voices and hits from the active lists.
func (p *Player) forget() {
	voices := p.voices[:0]
	for _, v := range p.voices {
		if !v.Released() {
			voices = append(voices, v)
		}
	}
	clear(p.voices[len(voices):])
	p.voices = voices
	hits := p.hits[:0]
	for _, h := range p.hits {
		if !h.Released() {
			hits = append(hits, h)
		}
	}
	clear(p.hits[len(hits):])
	p.hits = hits
}

// after runs f with the context locked after d, unless StopAll cancels it
// first. The events f returns are emitted after unlocking.
func (p *Player) after(d time.Duration, f func() []harmonia.NoteEvent) {
	id := p.nextID
	p.nextID++
	p.timers[id] = p.scheduler.AfterFunc(d, func() {
		p.ctx.Lock()
		if _, ok := p.timers[id]; !ok {
			p.ctx.Unlock()
			return
		}
		delete(p.timers, id)
		p.unlockAndEmit(f())
	})
}

// StopAll silences everything now: sounding voices and percussion are
// stopped and released, pending timers are cancelled and the loop and the
// primitive states are reset.
func (p *Player) StopAll() {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	if !p.initialized {
		return
	}
	now := p.ctx.CurrentTime()
	for _, v := range p.voices {
		if err := p.engine.StopVoice(v, now); err != nil {
			p.logger.Error("cannot stop voice", "frequency", v.Frequency, "err", err)
		}
		p.engine.Release(v)
	}
	for _, h := range p.hits {
		if err := h.Source.Stop(now); err != nil && !errors.Is(err, graph.ErrAlreadyStopped) {
			p.logger.Error("cannot stop percussion", "err", err)
		}
		h.Release()
	}
	clear(p.voices)
	clear(p.hits)
	p.voices, p.hits = p.voices[:0], p.hits[:0]
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
	p.loop.reset()
	p.resetTrackers()
}

// Timers returns the number of pending cleanup, state and loop timers.
func (p *Player) Timers() int {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	n := len(p.timers)
	if p.loop.timer != nil {
		n++
	}
	return n
}

// Voices returns the voices not yet released, oldest first.
func (p *Player) Voices() []*synth.Voice {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	return append([]*synth.Voice(nil), p.voices...)
}

func (p *Player) Settings() harmonia.Settings {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	return p.settings
}

func (p *Player) SetVolume(v float64) error {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	s, err := p.settings.WithMasterVolume(v)
	if err != nil {
		return err
	}
	p.settings = s
	if p.initialized {
		p.effects.SetVolume(v)
	}
	return nil
}

// SetWaveform changes the waveform of notes played from now on.
func (p *Player) SetWaveform(w harmonia.Waveform) error {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	s, err := p.settings.WithWaveform(w)
	if err != nil {
		return err
	}
	p.apply(s)
	return nil
}

// UpdateSettings validates and applies new settings. A changed effects
// configuration rebuilds the effects chain; notes already sounding move to
// the new chain.
func (p *Player) UpdateSettings(s harmonia.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	p.ctx.Lock()
	defer p.ctx.Unlock()
	p.apply(s)
	return nil
}

func (p *Player) apply(s harmonia.Settings) {
	old := p.settings
	p.settings = s
	if !p.initialized {
		return
	}
	p.engine.SetSettings(s)
	p.percussion.Volume = s.Percussion.Volume
	if old.Effects != s.Effects {
		p.effects.Close()
		p.effects = synth.NewEffects(p.ctx, s, p.logger)
		p.bus.Disconnect()
		p.bus.Connect(p.effects.Input)
		return
	}
	p.effects.SetVolume(s.MasterVolume)
}

// Theory returns the music theory tables the player resolves keys with.
func (p *Player) Theory() *theory.Theory { return p.theory }

func (p *Player) Context() *graph.Context { return p.ctx }
