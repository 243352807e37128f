package theory

import (
	"math"
	"strings"
)

// Sharps and Flats are the twelve pitch classes starting from C, spelled with
// sharps or flats respectively.
var (
	Sharps = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	Flats  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

var letterIndex = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// PitchedNote is a note symbol placed in an octave.
type PitchedNote struct {
	Note      string  `json:"note"`
	Octave    int     `json:"octave"`
	Frequency float64 `json:"frequency"`
}

// Normalize replaces the unicode accidentals ♯ and ♭ with # and b and
// upper-cases the letter. Anything after the accidentals is kept as is.
func Normalize(note string) string {
	note = strings.TrimSpace(note)
	note = strings.ReplaceAll(note, "♯", "#")
	note = strings.ReplaceAll(note, "♭", "b")
	if len(note) > 0 && note[0] >= 'a' && note[0] <= 'g' {
		note = string(note[0]-'a'+'A') + note[1:]
	}
	return note
}

// ParseNote returns the chromatic index of a note symbol, C = 0, B = 11. Any
// number of sharps and flats are accepted. ok is false if the symbol does not
// start with a letter A-G or contains trailing garbage.
func ParseNote(note string) (index int, ok bool) {
	note = Normalize(note)
	if len(note) == 0 {
		return 0, false
	}
	index, ok = letterIndex[note[0]]
	if !ok {
		return 0, false
	}
	for _, c := range note[1:] {
		switch c {
		case '#':
			index++
		case 'b':
			index--
		default:
			return 0, false
		}
	}
	return mod12(index), true
}

// NoteIndex is ParseNote without the validity flag: unparseable notes map to
// 0. The result is always in [0,11] and the same for enharmonic spellings.
func NoteIndex(note string) int {
	index, _ := ParseNote(note)
	return index
}

// Pitch returns the MIDI note number of note in octave, C4 = 60. The octave
// is taken as written, so Cb4 and B4 are the same pitch.
func Pitch(note string, octave int) int {
	return (octave+1)*12 + NoteIndex(note)
}

// NoteFrequency returns the equal-tempered frequency of the note in Hz, with
// A4 = 440 Hz.
func NoteFrequency(note string, octave int) float64 {
	return PitchFrequency(Pitch(note, octave))
}

// PitchFrequency converts a MIDI note number to Hz.
func PitchFrequency(pitch int) float64 {
	return 440 * math.Pow(2, float64(pitch-69)/12)
}

// NewPitchedNote resolves the frequency of note in octave.
func NewPitchedNote(note string, octave int) PitchedNote {
	return PitchedNote{Note: note, Octave: octave, Frequency: NoteFrequency(note, octave)}
}

// Spell returns the name of the pitch class index using flats or sharps.
func Spell(index int, flats bool) string {
	if flats {
		return Flats[mod12(index)]
	}
	return Sharps[mod12(index)]
}

// SamePitchClass reports if the two note symbols are enharmonically equal.
func SamePitchClass(a, b string) bool {
	return NoteIndex(a) == NoteIndex(b)
}

func mod12(i int) int {
	return ((i % 12) + 12) % 12
}
