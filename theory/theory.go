// Package theory implements the music theory lookups: scales, chords, key
// signatures, roman numeral analysis and the table of named chord
// progressions.
//
// All lookups fail soft: an unknown key, mode or progression logs a warning
// and returns an empty or default result instead of an error.
package theory

import (
	"log/slog"
	"slices"
	"strings"
)

type (
	// Theory holds the progression table and the logger used to report
	// invalid input. It is immutable after New and safe for concurrent use.
	Theory struct {
		logger       *slog.Logger
		progressions progressionTable
	}

	// KeySignature lists the accidentals of a key, in the order they are
	// written on the staff.
	KeySignature struct {
		Sharps      int      `json:"sharps"`
		Flats       int      `json:"flats"`
		Accidentals []string `json:"accidentals"`
	}
)

var modeIntervals = map[string][7]int{
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"dorian":     {0, 2, 3, 5, 7, 9, 10},
	"phrygian":   {0, 1, 3, 5, 7, 8, 10},
	"lydian":     {0, 2, 4, 6, 7, 9, 11},
	"mixolydian": {0, 2, 4, 5, 7, 9, 10},
	"locrian":    {0, 1, 3, 5, 6, 8, 10},
}

// semitones from the parent major key up to the tonic of the mode
var modeOffset = map[string]int{
	"major":      0,
	"dorian":     2,
	"phrygian":   4,
	"lydian":     5,
	"mixolydian": 7,
	"minor":      9,
	"locrian":    11,
}

var modeOrder = []string{"major", "minor", "dorian", "phrygian", "lydian", "mixolydian", "locrian"}

var (
	sharpOrder = [7]string{"F", "C", "G", "D", "A", "E", "B"}
	flatOrder  = [7]string{"B", "E", "A", "D", "G", "C", "F"}
)

// number of sharps (positive) or flats (negative) of the major key on each
// pitch class; the ambiguous keys are resolved in majorSignature
var majorAccidentals = [12]int{0, -5, 2, -3, 4, -1, 6, 1, -4, 3, -2, 5}

var circleOfFifths = []string{"C", "G", "D", "A", "E", "B", "F#", "Db", "Ab", "Eb", "Bb", "F"}

// New returns a Theory. A nil logger means slog.Default().
func New(logger *slog.Logger) *Theory {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Theory{logger: logger}
	table, err := loadProgressions()
	if err != nil {
		logger.Error("could not load progression table", "err", err)
	}
	t.progressions = table
	return t
}

// Modes lists the supported modes.
func Modes() []string {
	return slices.Clone(modeOrder)
}

// CircleOfFifths returns the twelve major keys clockwise from C.
func CircleOfFifths() []string {
	return slices.Clone(circleOfFifths)
}

func validMode(mode string) bool {
	_, ok := modeIntervals[mode]
	return ok
}

// majorSignature returns the accidental count of the major key on the pitch
// class; sharp or flat spellings of the key pick the side of the circle for
// the enharmonic keys C#/Db, F#/Gb and B/Cb.
func majorSignature(index int, hint string) int {
	acc := majorAccidentals[mod12(index)]
	flat := strings.Contains(hint, "b")
	sharp := strings.Contains(hint, "#")
	switch mod12(index) {
	case 1:
		if sharp {
			return 7
		}
	case 6:
		if flat {
			return -6
		}
	case 11:
		if flat {
			return -7
		}
	}
	return acc
}

func (t *Theory) keySignature(key, mode string) (int, bool) {
	index, ok := ParseNote(key)
	if !ok {
		t.logger.Warn("unknown key", "key", key, "mode", mode)
		return 0, false
	}
	if !validMode(mode) {
		t.logger.Warn("unknown mode", "key", key, "mode", mode)
		return 0, false
	}
	return majorSignature(index-modeOffset[mode], Normalize(key)), true
}

// KeySignature returns the sharps or flats of key in mode, derived through
// the parent major key of the mode.
func (t *Theory) KeySignature(key, mode string) KeySignature {
	acc, ok := t.keySignature(key, mode)
	ret := KeySignature{Accidentals: []string{}}
	if !ok {
		return ret
	}
	switch {
	case acc > 0:
		ret.Sharps = acc
		for _, n := range sharpOrder[:acc] {
			ret.Accidentals = append(ret.Accidentals, n+"#")
		}
	case acc < 0:
		ret.Flats = -acc
		for _, n := range flatOrder[:-acc] {
			ret.Accidentals = append(ret.Accidentals, n+"b")
		}
	}
	return ret
}

// ScaleNotes returns the seven notes of key in mode starting from the tonic.
// Notes are spelled with flats when the key signature has flats, sharps
// otherwise.
func (t *Theory) ScaleNotes(key, mode string) []string {
	acc, ok := t.keySignature(key, mode)
	if !ok {
		return []string{}
	}
	tonic := NoteIndex(key)
	ret := make([]string, 0, 7)
	for _, interval := range modeIntervals[mode] {
		ret = append(ret, Spell(tonic+interval, acc < 0))
	}
	return ret
}

// IsDiatonic reports if the note belongs to the scale of key in mode.
func (t *Theory) IsDiatonic(note, key, mode string) bool {
	index := NoteIndex(note)
	for _, n := range t.ScaleNotes(key, mode) {
		if NoteIndex(n) == index {
			return true
		}
	}
	return false
}

// RelativeKey returns the relative minor of a major key, the relative major
// of a minor key and the parent major key of every other mode.
func (t *Theory) RelativeKey(key, mode string) string {
	acc, ok := t.keySignature(key, mode)
	if !ok {
		return ""
	}
	parent := NoteIndex(key) - modeOffset[mode]
	if mode == "major" {
		return Spell(parent+9, acc < 0)
	}
	return Spell(parent, acc < 0)
}
