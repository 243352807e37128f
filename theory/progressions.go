package theory

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

type (
	// Progression is a named sequence of roman numeral chords.
	Progression struct {
		Name   string   `yaml:"name" json:"name"`
		Chords []string `yaml:"chords" json:"chords"`
	}

	progressionTable map[string][]Progression
)

//go:embed progressions.yml
var progressionsYAML []byte

func loadProgressions() (progressionTable, error) {
	var table progressionTable
	if err := yaml.Unmarshal(progressionsYAML, &table); err != nil {
		return progressionTable{}, fmt.Errorf("could not unmarshal progressions: %w", err)
	}
	return table, nil
}

// family returns the progression table family of the mode: modes with a
// major third share the major progressions, the rest the minor ones.
func family(mode string) string {
	switch mode {
	case "major", "lydian", "mixolydian":
		return "major"
	}
	return "minor"
}

// Progression looks up a progression by name in the family of the mode.
func (t *Theory) Progression(name, mode string) ([]string, bool) {
	if !validMode(mode) {
		t.logger.Warn("unknown mode", "mode", mode, "progression", name)
		return nil, false
	}
	for _, p := range t.progressions[family(mode)] {
		if p.Name == name {
			return slices.Clone(p.Chords), true
		}
	}
	t.logger.Warn("unknown progression", "mode", mode, "progression", name)
	return nil, false
}

// Progressions returns every progression available in mode, in table order.
func (t *Theory) Progressions(mode string) []Progression {
	if !validMode(mode) {
		t.logger.Warn("unknown mode", "mode", mode)
		return []Progression{}
	}
	src := t.progressions[family(mode)]
	ret := make([]Progression, len(src))
	for i, p := range src {
		ret[i] = Progression{Name: p.Name, Chords: slices.Clone(p.Chords)}
	}
	return ret
}

// ProgressionNames returns the names of the progressions of mode.
func (t *Theory) ProgressionNames(mode string) []string {
	ps := t.Progressions(mode)
	ret := make([]string, len(ps))
	for i, p := range ps {
		ret[i] = p.Name
	}
	return ret
}

// Chord is a roman numeral resolved in a key.
type Chord struct {
	Numeral string   `json:"numeral"`
	Root    string   `json:"root"`
	Quality Quality  `json:"quality"`
	Notes   []string `json:"notes"`
}

// Name returns the chord symbol, e.g. "G7".
func (c Chord) Name() string {
	return ChordName(c.Root, c.Quality)
}

// ResolveProgression resolves every numeral of the named progression in key
// and mode. Numerals that cannot be resolved are skipped.
func (t *Theory) ResolveProgression(key, mode, name string) []Chord {
	numerals, ok := t.Progression(name, mode)
	if !ok {
		return []Chord{}
	}
	ret := make([]Chord, 0, len(numerals))
	for _, n := range numerals {
		root := t.RomanToChord(n, key, mode)
		if root == "" {
			continue
		}
		q := t.ChordQuality(n, mode)
		ret = append(ret, Chord{Numeral: n, Root: root, Quality: q, Notes: t.ChordNotesInKey(root, q, key, mode)})
	}
	return ret
}
