// Package midi exports voiced progressions as Standard MIDI Files and plays
// notes received from MIDI inputs.
package midi

import (
	"errors"
	"fmt"
	"io"

	"github.com/harmonia-audio/harmonia/theory"
	"github.com/harmonia-audio/harmonia/voicing"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ExportOptions controls WriteProgression. Zero fields take the defaults of
// DefaultExportOptions.
type ExportOptions struct {
	BPM        float64
	ChordBeats int // length of each chord in quarter notes
	Iterations int // how many times the progression repeats
	BaseOctave int
	Velocity   uint8
	Channel    uint8
}

const ticksPerQuarter = 960

var ErrUnknownProgression = errors.New("unknown progression")

func DefaultExportOptions() ExportOptions {
	return ExportOptions{BPM: 100, ChordBeats: 4, Iterations: 1, BaseOctave: 4, Velocity: 90}
}

func (o ExportOptions) withDefaults() ExportOptions {
	d := DefaultExportOptions()
	if o.BPM <= 0 {
		o.BPM = d.BPM
	}
	if o.ChordBeats <= 0 {
		o.ChordBeats = d.ChordBeats
	}
	if o.Iterations <= 0 {
		o.Iterations = d.Iterations
	}
	if o.BaseOctave == 0 {
		o.BaseOctave = d.BaseOctave
	}
	if o.Velocity == 0 {
		o.Velocity = d.Velocity
	}
	o.Channel &= 15
	return o
}

// WriteProgression writes the named progression in key and mode as a format
// 1 Standard MIDI File: a tempo track and one track of chords, voice-led the
// same way the player voices them, across every iteration.
func WriteProgression(w io.Writer, th *theory.Theory, key, mode, name string, opts ExportOptions) error {
	opts = opts.withDefaults()
	chords := th.ResolveProgression(key, mode, name)
	if len(chords) == 0 {
		return fmt.Errorf("%s in %s %s: %w", name, key, mode, ErrUnknownProgression)
	}
	var notes [][]string
	for range opts.Iterations {
		for _, c := range chords {
			notes = append(notes, c.Notes)
		}
	}
	voicings := voicing.Lead(notes, nil, opts.BaseOctave)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(opts.BPM))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("%s %s %s", key, mode, name)))
	length := uint32(opts.ChordBeats * ticksPerQuarter)
	for i, v := range voicings {
		c := chords[i%len(chords)]
		track.Add(0, smf.MetaText(c.Name()))
		for _, p := range v.Pitches() {
			track.Add(0, gomidi.NoteOn(opts.Channel, pitchByte(p), opts.Velocity))
		}
		for j, p := range v.Pitches() {
			var delta uint32
			if j == 0 {
				delta = length
			}
			track.Add(delta, gomidi.NoteOff(opts.Channel, pitchByte(p)))
		}
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return fmt.Errorf("error adding chord track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

func pitchByte(p int) uint8 {
	return uint8(min(max(p, 0), 127))
}
