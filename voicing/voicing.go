// Package voicing turns chords into concrete voicings and chooses between
// candidate voicings by how smoothly they lead from the previous chord.
package voicing

import (
	"fmt"
	"math"
	"slices"

	"github.com/harmonia-audio/harmonia/theory"
)

type (
	// Voice is one note of a voicing. Pan is the stereo position in [-1, 1].
	Voice struct {
		Note   string  `json:"note"`
		Octave int     `json:"octave"`
		Pan    float64 `json:"pan"`
	}

	// Voicing is a chord realized in pitch, bass voice first.
	Voicing []Voice

	// Pair matches a voice of the previous voicing to a voice of the next.
	Pair struct {
		From     Voice `json:"from"`
		To       Voice `json:"to"`
		Movement int   `json:"movement"` // absolute distance in semitones
	}

	// Assignment is the result of matching two voicings voice to voice.
	Assignment struct {
		Pairs         []Pair `json:"pairs"`
		TotalMovement int    `json:"totalMovement"`
		MaxLeap       int    `json:"maxLeap"`
		// TopMovement is the movement into the highest voice of the next
		// voicing, i.e. the melody.
		TopMovement int `json:"topMovement"`
	}
)

const (
	// maximum span from the bass to the top voice before the upper voices
	// are dropped an octave
	maxSpan = 19
	maxPan  = 0.4
	// MIDI pitch the voicings gravitate towards
	centerPitch = 60
)

// Pitch returns the MIDI note number of the voice.
func (v Voice) Pitch() int {
	return theory.Pitch(v.Note, v.Octave)
}

// String returns the note in scientific pitch notation, e.g. "Bb3".
func (v Voice) String() string {
	return fmt.Sprintf("%s%d", v.Note, v.Octave)
}

func (v Voice) Frequency() float64 {
	return theory.NoteFrequency(v.Note, v.Octave)
}

func (v Voicing) Pitches() []int {
	ret := make([]int, len(v))
	for i, voice := range v {
		ret[i] = voice.Pitch()
	}
	return ret
}

func (v Voicing) Notes() []string {
	ret := make([]string, len(v))
	for i, voice := range v {
		ret[i] = voice.Note
	}
	return ret
}

// MeanPitch returns the average MIDI pitch of the voicing, 0 if empty.
func (v Voicing) MeanPitch() float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0
	for _, voice := range v {
		sum += voice.Pitch()
	}
	return float64(sum) / float64(len(v))
}

// VoiceChord stacks the notes upwards from the first note, which is placed
// in baseOctave. Each note goes to the octave where it is above the previous
// voice. If the top voice ends up more than an octave and a fifth above the
// bass, every voice but the bass is dropped an octave. Pans spread evenly
// over [-0.4, 0.4].
func VoiceChord(notes []string, baseOctave int) Voicing {
	ret := make(Voicing, 0, len(notes))
	octave := baseOctave
	prev := -1
	for _, n := range notes {
		index := theory.NoteIndex(n)
		if prev >= 0 && index <= prev {
			octave++
		}
		ret = append(ret, Voice{Note: n, Octave: octave})
		prev = index
	}
	if len(ret) > 1 && ret[len(ret)-1].Pitch()-ret[0].Pitch() > maxSpan {
		for i := 1; i < len(ret); i++ {
			ret[i].Octave--
		}
	}
	spreadPans(ret)
	return ret
}

func spreadPans(v Voicing) {
	if len(v) == 1 {
		v[0].Pan = 0
		return
	}
	for i := range v {
		v[i].Pan = -maxPan + 2*maxPan*float64(i)/float64(len(v)-1)
	}
}

// OptimalVoiceAssignment matches the voices of a to the voices of b in two
// greedy phases: first common tones, each to the nearest octave of the same
// pitch class, then the remaining voices to the nearest remaining pitch.
// Voices left over when the voicings differ in size are not matched.
func OptimalVoiceAssignment(a, b Voicing) Assignment {
	var ret Assignment
	usedA := make([]bool, len(a))
	usedB := make([]bool, len(b))
	match := func(i, j int) {
		usedA[i], usedB[j] = true, true
		ret.Pairs = append(ret.Pairs, Pair{From: a[i], To: b[j], Movement: abs(a[i].Pitch() - b[j].Pitch())})
	}
	for i, va := range a {
		best, bestDist := -1, math.MaxInt
		for j, vb := range b {
			if usedB[j] || !theory.SamePitchClass(va.Note, vb.Note) {
				continue
			}
			if d := abs(va.Octave - vb.Octave); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			match(i, best)
		}
	}
	for i, va := range a {
		if usedA[i] {
			continue
		}
		best, bestDist := -1, math.MaxInt
		for j, vb := range b {
			if usedB[j] {
				continue
			}
			if d := abs(va.Pitch() - vb.Pitch()); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			match(i, best)
		}
	}
	top := math.MinInt
	for _, p := range ret.Pairs {
		ret.TotalMovement += p.Movement
		ret.MaxLeap = max(ret.MaxLeap, p.Movement)
		if pitch := p.To.Pitch(); pitch > top {
			top = pitch
			ret.TopMovement = p.Movement
		}
	}
	return ret
}

// ScoreVoicing rates a candidate voicing against the previous one; lower is
// better. Without a previous voicing only the distance from middle C counts.
func ScoreVoicing(candidate, previous Voicing) float64 {
	center := math.Abs(candidate.MeanPitch() - centerPitch)
	if len(previous) == 0 {
		return 0.5 * center
	}
	a := OptimalVoiceAssignment(previous, candidate)
	score := 0.4*float64(a.TotalMovement) + 0.8*float64(a.TopMovement)
	if a.MaxLeap > 7 {
		score += float64(a.MaxLeap-7) * 2
	}
	score += 0.3 * center
	if len(candidate) >= 2 {
		pitches := candidate.Pitches()
		slices.Sort(pitches)
		if spacing := pitches[len(pitches)-1] - pitches[len(pitches)-2]; spacing > 12 {
			score += 0.5 * float64(spacing-12)
		}
	}
	return score
}

// Candidates returns every inversion of the chord voiced in the octave
// below, at and above baseOctave.
func Candidates(notes []string, baseOctave int) []Voicing {
	ret := make([]Voicing, 0, len(notes)*3)
	for i := range notes {
		inversion := append(slices.Clone(notes[i:]), notes[:i]...)
		for octave := baseOctave - 1; octave <= baseOctave+1; octave++ {
			ret = append(ret, VoiceChord(inversion, octave))
		}
	}
	return ret
}

// OptimizeVoicing returns the candidate with the lowest score against
// previous; the first one wins ties. Without a previous voicing it returns
// the plain VoiceChord result.
func OptimizeVoicing(notes []string, previous Voicing, baseOctave int) Voicing {
	if len(previous) == 0 || len(notes) == 0 {
		return VoiceChord(notes, baseOctave)
	}
	var best Voicing
	bestScore := math.Inf(1)
	for _, c := range Candidates(notes, baseOctave) {
		if s := ScoreVoicing(c, previous); s < bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Lead voices a chord sequence, each chord optimized against the one before
// and the first against previous, which may be empty.
func Lead(chords [][]string, previous Voicing, baseOctave int) []Voicing {
	ret := make([]Voicing, len(chords))
	for i, notes := range chords {
		ret[i] = OptimizeVoicing(notes, previous, baseOctave)
		previous = ret[i]
	}
	return ret
}
