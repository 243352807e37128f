package theory

import (
	"strings"
	"unicode"
)

// Quality is the quality of a chord: a triad or a seventh chord.
type Quality string

const (
	Major           Quality = "major"
	Minor           Quality = "minor"
	Diminished      Quality = "diminished"
	Augmented       Quality = "augmented"
	Dominant7       Quality = "dominant7"
	Major7          Quality = "major7"
	Minor7          Quality = "minor7"
	HalfDiminished7 Quality = "half-diminished7"
	Diminished7     Quality = "diminished7"
)

var chordIntervals = map[Quality][]int{
	Major:           {0, 4, 7},
	Minor:           {0, 3, 7},
	Diminished:      {0, 3, 6},
	Augmented:       {0, 4, 8},
	Dominant7:       {0, 4, 7, 10},
	Major7:          {0, 4, 7, 11},
	Minor7:          {0, 3, 7, 10},
	HalfDiminished7: {0, 3, 6, 10},
	Diminished7:     {0, 3, 6, 9},
}

var chordSymbols = map[Quality]string{
	Major:           "",
	Minor:           "m",
	Diminished:      "°",
	Augmented:       "+",
	Dominant7:       "7",
	Major7:          "maj7",
	Minor7:          "m7",
	HalfDiminished7: "ø7",
	Diminished7:     "°7",
}

// diatonic triad qualities of each degree; the dominant of minor is major
// because of the raised leading tone
var diatonicQualities = map[string][7]Quality{
	"major":      {Major, Minor, Minor, Major, Major, Minor, Diminished},
	"minor":      {Minor, Diminished, Major, Minor, Major, Major, Major},
	"dorian":     {Minor, Minor, Major, Major, Minor, Diminished, Major},
	"phrygian":   {Minor, Major, Major, Minor, Diminished, Major, Minor},
	"lydian":     {Major, Major, Minor, Diminished, Major, Minor, Minor},
	"mixolydian": {Major, Minor, Diminished, Major, Minor, Minor, Major},
	"locrian":    {Diminished, Major, Minor, Minor, Major, Major, Minor},
}

// Symbol returns the suffix used when naming a chord, e.g. "m7".
func (q Quality) Symbol() string {
	return chordSymbols[q]
}

// Intervals returns the semitone offsets of the chord tones from the root.
func (q Quality) Intervals() []int {
	return chordIntervals[q]
}

// minorFamily reports if the chord is spelled from the minor key of its root.
func (q Quality) minorFamily() bool {
	switch q {
	case Minor, Diminished, Minor7, HalfDiminished7, Diminished7:
		return true
	}
	return false
}

// ChordNotes returns the notes of the chord, root first. Each tone is
// spelled on the letter a third above the previous one when Sharps or Flats
// offers that letter, so diminished fifths come out flat and augmented fifths
// sharp. Otherwise major-family chords are spelled from the major key of the
// root and minor-family chords from its minor key.
func (t *Theory) ChordNotes(root string, quality Quality) []string {
	return t.spellChord(root, quality, nil)
}

// ChordNotesInKey is ChordNotes with the tones that belong to the scale of
// key in mode spelled the way ScaleNotes spells them. Chromatic tones, such
// as the raised leading tone of a minor key, keep the stacked-thirds
// spelling.
func (t *Theory) ChordNotesInKey(root string, quality Quality, key, mode string) []string {
	return t.spellChord(root, quality, t.ScaleNotes(key, mode))
}

func (t *Theory) spellChord(root string, quality Quality, scale []string) []string {
	intervals, ok := chordIntervals[quality]
	if !ok {
		t.logger.Warn("unknown chord quality", "root", root, "quality", quality)
		return []string{}
	}
	index, ok := ParseNote(root)
	if !ok {
		t.logger.Warn("unknown chord root", "root", root, "quality", quality)
		return []string{}
	}
	var inScale [12]string
	for _, n := range scale {
		inScale[NoteIndex(n)] = n
	}
	mode := "major"
	if quality.minorFamily() {
		mode = "minor"
	}
	acc := majorSignature(index-modeOffset[mode], Normalize(root))
	letter := letterOrder(Normalize(root)[0])
	ret := make([]string, 0, len(intervals))
	for i, interval := range intervals {
		pc := mod12(index + interval)
		switch {
		case inScale[pc] != "":
			ret = append(ret, inScale[pc])
		case i == 0:
			ret = append(ret, Normalize(root))
		default:
			ret = append(ret, spellOnLetter(pc, (letter+2*i)%7, acc < 0))
		}
	}
	return ret
}

const letters = "CDEFGAB"

func letterOrder(c byte) int {
	return strings.IndexByte(letters, c)
}

// spellOnLetter picks the spelling of pc whose letter is letters[letter],
// falling back to Spell(pc, flats) when neither Sharps nor Flats has one.
func spellOnLetter(pc, letter int, flats bool) string {
	want := letters[letter]
	switch {
	case Sharps[pc][0] == want:
		return Sharps[pc]
	case Flats[pc][0] == want:
		return Flats[pc]
	}
	return Spell(pc, flats)
}

// ChordName returns the chord symbol, e.g. "Dm7".
func ChordName(root string, quality Quality) string {
	return Normalize(root) + quality.Symbol()
}

// DiatonicQuality returns the quality of the triad built on the scale degree
// (0-6) of the mode.
func (t *Theory) DiatonicQuality(degree int, mode string) Quality {
	table, ok := diatonicQualities[mode]
	if !ok || degree < 0 || degree >= 7 {
		t.logger.Warn("unknown scale degree", "degree", degree, "mode", mode)
		return Major
	}
	return table[degree]
}

// ChordQuality determines the quality of a roman numeral chord from its case
// and markings: ° or o is diminished (°7 diminished seventh), ø is
// half-diminished seventh, + is augmented, maj7 is major seventh and a plain 7
// is dominant seventh on an upper-case numeral and minor seventh on a
// lower-case one. Otherwise upper-case is major and lower-case minor. A
// numeral without roman letters falls back to the diatonic quality of the
// tonic in mode.
func (t *Theory) ChordQuality(numeral, mode string) Quality {
	letters, marks := splitNumeral(numeral)
	if letters == "" {
		t.logger.Warn("invalid roman numeral", "numeral", numeral, "mode", mode)
		return t.DiatonicQuality(0, mode)
	}
	upper := unicode.IsUpper(rune(letters[0]))
	seventh := strings.Contains(marks, "7")
	switch {
	case strings.ContainsAny(marks, "°o"):
		if seventh {
			return Diminished7
		}
		return Diminished
	case strings.Contains(marks, "ø"):
		return HalfDiminished7
	case strings.Contains(marks, "+"):
		return Augmented
	case strings.Contains(strings.ToLower(marks), "maj7"):
		return Major7
	case seventh && upper:
		return Dominant7
	case seventh:
		return Minor7
	case upper:
		return Major
	}
	return Minor
}

// RomanToChord resolves the root of a roman numeral chord in key and mode by
// indexing the scale with the numeral's degree. The result is always
// diatonic.
func (t *Theory) RomanToChord(numeral, key, mode string) string {
	degree, ok := Degree(numeral)
	if !ok {
		t.logger.Warn("invalid roman numeral", "numeral", numeral, "key", key, "mode", mode)
		return ""
	}
	scale := t.ScaleNotes(key, mode)
	if len(scale) == 0 {
		return ""
	}
	return scale[degree]
}

// Degree returns the zero-based scale degree of a roman numeral: I/i = 0 up
// to VII/vii = 6. Case and markings are ignored.
func Degree(numeral string) (int, bool) {
	letters, _ := splitNumeral(numeral)
	switch strings.ToUpper(letters) {
	case "I":
		return 0, true
	case "II":
		return 1, true
	case "III":
		return 2, true
	case "IV":
		return 3, true
	case "V":
		return 4, true
	case "VI":
		return 5, true
	case "VII":
		return 6, true
	}
	return 0, false
}

// splitNumeral separates the roman letters of a numeral from its markings.
// Leading accidentals are dropped.
func splitNumeral(numeral string) (letters, marks string) {
	s := strings.TrimLeft(strings.TrimSpace(numeral), "b#♭♯")
	i := 0
	for i < len(s) && strings.IndexByte("IViv", s[i]) >= 0 {
		i++
	}
	return s[:i], s[i:]
}
