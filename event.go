package harmonia

type (
	// NoteEvent is emitted by the player whenever a note or chord starts or
	// ends, so that a user interface can highlight the sounding notes.
	// Timestamp is in seconds on the audio clock.
	NoteEvent struct {
		Note      string        `json:"note"`
		Type      NoteEventType `json:"eventType"`
		Timestamp float64       `json:"timestamp"`
	}

	NoteEventType string
)

const (
	NoteStart        NoteEventType = "start"
	ChordStart       NoteEventType = "chord-start"
	ProgressionChord NoteEventType = "progression-chord"
	NoteEnd          NoteEventType = "end"
)
