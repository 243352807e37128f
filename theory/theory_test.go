package theory_test

import (
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"

	"github.com/harmonia-audio/harmonia/theory"
)

func newTheory() *theory.Theory {
	return theory.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNoteIndexEnharmonic(t *testing.T) {
	pairs := [][2]string{
		{"C#", "Db"}, {"D#", "Eb"}, {"F#", "Gb"}, {"G#", "Ab"}, {"A#", "Bb"},
		{"E#", "F"}, {"B#", "C"}, {"Cb", "B"}, {"Fb", "E"}, {"F♯", "Gb"}, {"B♭", "A#"},
	}
	for _, p := range pairs {
		if a, b := theory.NoteIndex(p[0]), theory.NoteIndex(p[1]); a != b {
			t.Errorf("NoteIndex(%q) = %v, NoteIndex(%q) = %v", p[0], a, p[1], b)
		}
	}
	for i, n := range theory.Sharps {
		if got := theory.NoteIndex(n); got != i {
			t.Errorf("NoteIndex(%q) = %v, want %v", n, got, i)
		}
		if got := theory.NoteIndex(theory.Flats[i]); got != i {
			t.Errorf("NoteIndex(%q) = %v, want %v", theory.Flats[i], got, i)
		}
	}
}

func TestParseNoteInvalid(t *testing.T) {
	for _, n := range []string{"", "H", "C$", "X#"} {
		if index, ok := theory.ParseNote(n); ok || index != 0 {
			t.Errorf("ParseNote(%q) = %v, %v; want 0, false", n, index, ok)
		}
	}
}

func TestNoteFrequency(t *testing.T) {
	if f := theory.NoteFrequency("A", 4); f != 440 {
		t.Fatalf("NoteFrequency(A, 4) = %v, want exactly 440", f)
	}
	if f := theory.NoteFrequency("A", 5); math.Abs(f-880) > 1e-9 {
		t.Fatalf("NoteFrequency(A, 5) = %v, want 880", f)
	}
	if f := theory.NoteFrequency("C", 4); math.Abs(f-261.6255653) > 1e-6 {
		t.Fatalf("NoteFrequency(C, 4) = %v, want 261.63", f)
	}
}

func TestScaleNotes(t *testing.T) {
	th := newTheory()
	for _, mode := range theory.Modes() {
		for _, key := range theory.CircleOfFifths() {
			scale := th.ScaleNotes(key, mode)
			if len(scale) != 7 {
				t.Fatalf("ScaleNotes(%v, %v) has %v notes, want 7", key, mode, len(scale))
			}
			if theory.NoteIndex(scale[0]) != theory.NoteIndex(key) {
				t.Errorf("ScaleNotes(%v, %v)[0] = %v", key, mode, scale[0])
			}
		}
	}
	cases := []struct {
		key, mode string
		want      []string
	}{
		{"C", "major", []string{"C", "D", "E", "F", "G", "A", "B"}},
		{"A", "minor", []string{"A", "B", "C", "D", "E", "F", "G"}},
		{"F", "major", []string{"F", "G", "A", "Bb", "C", "D", "E"}},
		{"D", "dorian", []string{"D", "E", "F", "G", "A", "B", "C"}},
		{"C", "minor", []string{"C", "D", "Eb", "F", "G", "Ab", "Bb"}},
		{"E", "major", []string{"E", "F#", "G#", "A", "B", "C#", "D#"}},
	}
	for _, c := range cases {
		if got := th.ScaleNotes(c.key, c.mode); !slices.Equal(got, c.want) {
			t.Errorf("ScaleNotes(%v, %v) = %v, want %v", c.key, c.mode, got, c.want)
		}
	}
}

func TestScaleNotesFailSoft(t *testing.T) {
	th := newTheory()
	if got := th.ScaleNotes("H", "major"); len(got) != 0 {
		t.Errorf("unknown key gave %v", got)
	}
	if got := th.ScaleNotes("C", "bebop"); len(got) != 0 {
		t.Errorf("unknown mode gave %v", got)
	}
}

func TestKeySignature(t *testing.T) {
	th := newTheory()
	cases := []struct {
		key, mode     string
		sharps, flats int
	}{
		{"C", "major", 0, 0},
		{"G", "major", 1, 0},
		{"F", "major", 0, 1},
		{"E", "minor", 1, 0},
		{"D", "minor", 0, 1},
		{"F#", "major", 6, 0},
		{"Gb", "major", 0, 6},
		{"Bb", "minor", 0, 5},
		{"D", "dorian", 0, 0},
		{"C#", "major", 7, 0},
		{"Cb", "major", 0, 7},
	}
	for _, c := range cases {
		sig := th.KeySignature(c.key, c.mode)
		if sig.Sharps != c.sharps || sig.Flats != c.flats {
			t.Errorf("KeySignature(%v, %v) = %+v, want %v sharps %v flats", c.key, c.mode, sig, c.sharps, c.flats)
		}
		if len(sig.Accidentals) != c.sharps+c.flats {
			t.Errorf("KeySignature(%v, %v) has accidentals %v", c.key, c.mode, sig.Accidentals)
		}
	}
	if got := th.KeySignature("B", "major").Accidentals; !slices.Equal(got, []string{"F#", "C#", "G#", "D#", "A#"}) {
		t.Errorf("B major accidentals = %v", got)
	}
}

func TestChordNotes(t *testing.T) {
	th := newTheory()
	cases := []struct {
		root    string
		quality theory.Quality
		want    []string
	}{
		{"C", theory.Major, []string{"C", "E", "G"}},
		{"D", theory.Minor, []string{"D", "F", "A"}},
		{"B", theory.Diminished, []string{"B", "D", "F"}},
		{"C", theory.Augmented, []string{"C", "E", "G#"}},
		{"G", theory.Dominant7, []string{"G", "B", "D", "F"}},
		{"D", theory.Dominant7, []string{"D", "F#", "A", "C"}},
		{"A", theory.Dominant7, []string{"A", "C#", "E", "G"}},
		{"C", theory.Major7, []string{"C", "E", "G", "B"}},
		{"C", theory.Minor, []string{"C", "Eb", "G"}},
		{"B", theory.HalfDiminished7, []string{"B", "D", "F", "A"}},
		{"Eb", theory.Major, []string{"Eb", "G", "Bb"}},
		{"C", theory.Dominant7, []string{"C", "E", "G", "Bb"}},
		{"A", theory.Diminished, []string{"A", "C", "Eb"}},
		{"E", theory.HalfDiminished7, []string{"E", "G", "Bb", "D"}},
		{"B", theory.Diminished7, []string{"B", "D", "F", "Ab"}},
		{"E", theory.Dominant7, []string{"E", "G#", "B", "D"}},
		{"Ab", theory.Augmented, []string{"Ab", "C", "E"}},
	}
	for _, c := range cases {
		if got := th.ChordNotes(c.root, c.quality); !slices.Equal(got, c.want) {
			t.Errorf("ChordNotes(%v, %v) = %v, want %v", c.root, c.quality, got, c.want)
		}
	}
	if got := th.ChordNotes("C", "sus4"); len(got) != 0 {
		t.Errorf("unknown quality gave %v", got)
	}
}

func TestChordQuality(t *testing.T) {
	th := newTheory()
	cases := []struct {
		numeral, mode string
		want          theory.Quality
	}{
		{"V7", "major", theory.Dominant7},
		{"ii", "major", theory.Minor},
		{"vii°", "major", theory.Diminished},
		{"viio", "major", theory.Diminished},
		{"vii°7", "minor", theory.Diminished7},
		{"iiø7", "minor", theory.HalfDiminished7},
		{"III+", "minor", theory.Augmented},
		{"Imaj7", "major", theory.Major7},
		{"ii7", "major", theory.Minor7},
		{"IV", "major", theory.Major},
		{"V", "minor", theory.Major},
		{"i", "minor", theory.Minor},
	}
	for _, c := range cases {
		if got := th.ChordQuality(c.numeral, c.mode); got != c.want {
			t.Errorf("ChordQuality(%q, %v) = %v, want %v", c.numeral, c.mode, got, c.want)
		}
	}
}

func TestRomanToChord(t *testing.T) {
	th := newTheory()
	cases := []struct {
		numeral, key, mode, want string
	}{
		{"I", "C", "major", "C"},
		{"ii", "C", "major", "D"},
		{"V7", "C", "major", "G"},
		{"vii°", "C", "major", "B"},
		{"iv", "A", "minor", "D"},
		{"VI", "A", "minor", "F"},
		{"bVII", "C", "major", "B"},
		{"IV", "F", "major", "Bb"},
	}
	for _, c := range cases {
		if got := th.RomanToChord(c.numeral, c.key, c.mode); got != c.want {
			t.Errorf("RomanToChord(%q, %v, %v) = %v, want %v", c.numeral, c.key, c.mode, got, c.want)
		}
	}
	if got := th.RomanToChord("X", "C", "major"); got != "" {
		t.Errorf("invalid numeral gave %q", got)
	}
}

func TestDiatonicQualityMinorDominant(t *testing.T) {
	th := newTheory()
	if q := th.DiatonicQuality(4, "minor"); q != theory.Major {
		t.Fatalf("minor dominant = %v, want major", q)
	}
	if q := th.DiatonicQuality(6, "major"); q != theory.Diminished {
		t.Fatalf("major leading tone = %v, want diminished", q)
	}
}

func TestProgressions(t *testing.T) {
	th := newTheory()
	chords, ok := th.Progression("ii-V-I", "major")
	if !ok || !slices.Equal(chords, []string{"ii", "V", "I"}) {
		t.Fatalf("Progression(ii-V-I) = %v, %v", chords, ok)
	}
	if _, ok := th.Progression("ii-V-I", "minor"); ok {
		t.Fatalf("ii-V-I should not be a minor progression")
	}
	if _, ok := th.Progression("i-iv-V-i", "dorian"); !ok {
		t.Fatalf("dorian should share the minor progressions")
	}
	names := th.ProgressionNames("major")
	if len(names) == 0 || names[0] != "ii-V-I" {
		t.Fatalf("ProgressionNames(major) = %v", names)
	}
}

func TestResolvedProgressionIsDiatonic(t *testing.T) {
	th := newTheory()
	for _, key := range theory.CircleOfFifths() {
		for _, name := range th.ProgressionNames("major") {
			for _, c := range th.ResolveProgression(key, "major", name) {
				for _, n := range c.Notes {
					if !th.IsDiatonic(n, key, "major") {
						t.Errorf("%v %v: chord %v has non-diatonic note %v", key, name, c.Name(), n)
					}
				}
			}
		}
	}
}

func TestResolvedProgressionSpelling(t *testing.T) {
	th := newTheory()
	for _, k := range []struct{ key, mode string }{
		{"G", "minor"}, {"Bb", "major"}, {"D", "minor"}, {"Eb", "major"}, {"F", "minor"}, {"E", "major"},
	} {
		scale := th.ScaleNotes(k.key, k.mode)
		for _, name := range th.ProgressionNames(k.mode) {
			for _, c := range th.ResolveProgression(k.key, k.mode, name) {
				for _, n := range c.Notes {
					if th.IsDiatonic(n, k.key, k.mode) && !slices.Contains(scale, n) {
						t.Errorf("%v %v %v: chord %v spells %v, scale is %v", k.key, k.mode, name, c.Name(), n, scale)
					}
				}
			}
		}
	}
	chords := th.ResolveProgression("G", "minor", "ii°-V-i")
	if len(chords) != 3 {
		t.Fatalf("G minor ii°-V-i resolved to %v", chords)
	}
	for i, want := range [][]string{{"A", "C", "Eb"}, {"D", "F#", "A"}, {"G", "Bb", "D"}} {
		if !slices.Equal(chords[i].Notes, want) {
			t.Errorf("G minor chord %v = %v, want %v", chords[i].Numeral, chords[i].Notes, want)
		}
	}
	if got := th.ChordNotesInKey("C", theory.HalfDiminished7, "Bb", "minor"); !slices.Equal(got, []string{"C", "Eb", "Gb", "Bb"}) {
		t.Errorf("Bb minor iiø7 = %v", got)
	}
}

func TestRelativeKey(t *testing.T) {
	th := newTheory()
	cases := []struct{ key, mode, want string }{
		{"C", "major", "A"},
		{"A", "minor", "C"},
		{"F", "major", "D"},
		{"C", "minor", "Eb"},
		{"D", "dorian", "C"},
	}
	for _, c := range cases {
		if got := th.RelativeKey(c.key, c.mode); got != c.want {
			t.Errorf("RelativeKey(%v, %v) = %v, want %v", c.key, c.mode, got, c.want)
		}
	}
}
