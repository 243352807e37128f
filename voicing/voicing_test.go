package voicing_test

import (
	"fmt"
	"testing"

	"github.com/harmonia-audio/harmonia/voicing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceChordRootFirstAscending(t *testing.T) {
	v := voicing.VoiceChord([]string{"C", "E", "G"}, 3)
	require.Len(t, v, 3)
	assert.Equal(t, "C", v[0].Note)
	assert.Equal(t, 3, v[0].Octave)
	pitches := v.Pitches()
	for i := 1; i < len(pitches); i++ {
		assert.GreaterOrEqual(t, pitches[i], pitches[i-1])
	}
	assert.Equal(t, []int{48, 52, 55}, pitches)
	assert.InDelta(t, -0.4, v[0].Pan, 1e-9)
	assert.InDelta(t, 0, v[1].Pan, 1e-9)
	assert.InDelta(t, 0.4, v[2].Pan, 1e-9)
}

func TestVoiceChordOctaveBump(t *testing.T) {
	v := voicing.VoiceChord([]string{"G", "B", "D", "F"}, 3)
	assert.Equal(t, []int{55, 59, 62, 65}, v.Pitches())
	first := voicing.VoiceChord([]string{"E", "G", "C"}, 4)
	assert.Equal(t, []int{64, 67, 72}, first.Pitches())
	assert.Equal(t, "[E4 G4 C5]", fmt.Sprint(first))
}

func TestVoiceChordDropsWideVoicings(t *testing.T) {
	v := voicing.VoiceChord([]string{"C", "E", "G", "B", "D", "F", "A"}, 3)
	assert.Equal(t, 3, v[0].Octave)
	assert.Equal(t, 69-12-48, v[len(v)-1].Pitch()-v[0].Pitch())
	assert.Equal(t, 2, v[1].Octave)
}

func TestSingleVoicePan(t *testing.T) {
	v := voicing.VoiceChord([]string{"A"}, 4)
	require.Len(t, v, 1)
	assert.Equal(t, 0.0, v[0].Pan)
	assert.Empty(t, voicing.VoiceChord(nil, 4))
}

func TestAssignmentIdentity(t *testing.T) {
	v := voicing.VoiceChord([]string{"D", "F", "A", "C"}, 3)
	a := voicing.OptimalVoiceAssignment(v, v)
	assert.Equal(t, 0, a.TotalMovement)
	assert.Equal(t, 0, a.MaxLeap)
	assert.Equal(t, 0, a.TopMovement)
	assert.Len(t, a.Pairs, 4)
}

func TestAssignmentCommonTonesFirst(t *testing.T) {
	c := voicing.VoiceChord([]string{"C", "E", "G"}, 4)  // C4 E4 G4
	am := voicing.VoiceChord([]string{"A", "C", "E"}, 3) // A3 C4 E4
	a := voicing.OptimalVoiceAssignment(c, am)
	require.Len(t, a.Pairs, 3)
	assert.Equal(t, voicing.Pair{From: c[0], To: am[1], Movement: 0}, a.Pairs[0])
	assert.Equal(t, voicing.Pair{From: c[1], To: am[2], Movement: 0}, a.Pairs[1])
	assert.Equal(t, voicing.Pair{From: c[2], To: am[0], Movement: 10}, a.Pairs[2])
	assert.Equal(t, 10, a.TotalMovement)
	assert.Equal(t, 10, a.MaxLeap)
	assert.Equal(t, 0, a.TopMovement)
}

func TestScoreWithoutPrevious(t *testing.T) {
	v := voicing.VoiceChord([]string{"C", "E", "G"}, 4) // 60 64 67
	assert.InDelta(t, 0.5*(191.0/3-60), voicing.ScoreVoicing(v, nil), 1e-9)
}

func TestScorePenalties(t *testing.T) {
	prev := voicing.Voicing{{Note: "C", Octave: 4}, {Note: "E", Octave: 4}}
	cand := voicing.Voicing{{Note: "C", Octave: 4}, {Note: "A", Octave: 5}}
	// C4->C4 common tone, E4->A5 17 semitones; top voice A5 moves 17
	// spacing 21 > 12, mean pitch 70.5
	want := 0.4*17 + 0.8*17 + (17-7)*2 + 0.3*10.5 + 0.5*(21-12)
	assert.InDelta(t, want, voicing.ScoreVoicing(cand, prev), 1e-9)
}

func TestCandidates(t *testing.T) {
	c := voicing.Candidates([]string{"C", "E", "G"}, 4)
	require.Len(t, c, 9)
	assert.Equal(t, "C", c[0][0].Note)
	assert.Equal(t, 3, c[0][0].Octave)
	assert.Equal(t, "E", c[3][0].Note)
	assert.Equal(t, "G", c[8][0].Note)
	assert.Equal(t, 5, c[8][0].Octave)
}

func TestOptimizeVoicingIsMinimum(t *testing.T) {
	chords := [][]string{{"D", "F", "A"}, {"G", "B", "D", "F"}, {"C", "E", "G"}, {"A", "C", "E"}}
	prev := voicing.VoiceChord([]string{"C", "E", "G"}, 4)
	for _, notes := range chords {
		best := voicing.OptimizeVoicing(notes, prev, 4)
		bestScore := voicing.ScoreVoicing(best, prev)
		for _, c := range voicing.Candidates(notes, 4) {
			assert.LessOrEqual(t, bestScore, voicing.ScoreVoicing(c, prev))
		}
		prev = best
	}
}

func TestOptimizeWithoutPrevious(t *testing.T) {
	notes := []string{"F", "A", "C"}
	assert.Equal(t, voicing.VoiceChord(notes, 4), voicing.OptimizeVoicing(notes, nil, 4))
}

func TestOptimizeKeepsCommonTones(t *testing.T) {
	prev := voicing.VoiceChord([]string{"C", "E", "G"}, 4)
	next := voicing.OptimizeVoicing([]string{"A", "C", "E"}, prev, 4)
	a := voicing.OptimalVoiceAssignment(prev, next)
	assert.LessOrEqual(t, a.TotalMovement, 2)
}

func TestLeadChainsVoicings(t *testing.T) {
	chords := [][]string{{"D", "F", "A"}, {"G", "B", "D"}, {"C", "E", "G"}}
	got := voicing.Lead(chords, nil, 4)
	require.Len(t, got, 3)
	assert.Equal(t, voicing.VoiceChord(chords[0], 4), got[0])
	assert.Equal(t, voicing.OptimizeVoicing(chords[1], got[0], 4), got[1])
	assert.Equal(t, voicing.OptimizeVoicing(chords[2], got[1], 4), got[2])
}
