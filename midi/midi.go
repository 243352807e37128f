package midi

import (
	"errors"

	"github.com/harmonia-audio/harmonia/theory"
)

// NotePlayer plays a note for the given duration in seconds; a duration of
// zero means the player's default. *player.Player implements it.
type NotePlayer interface {
	PlayNote(note string, octave int, duration float64) error
}

var ErrNoDriver = errors.New("no MIDI driver available")

// KeyNote converts a MIDI key number to a note name and octave, spelled with
// sharps. Key 60 is C4.
func KeyNote(key uint8) (note string, octave int) {
	return theory.Spell(int(key)%12, false), int(key)/12 - 1
}
