package player

import (
	"github.com/google/uuid"
	"github.com/harmonia-audio/harmonia"
)

type (
	// ListenerID identifies a registered note event listener.
	ListenerID uuid.UUID

	// NoteEventListener is called for every note event. It is called
	// without the player locked, so it may call back into the player.
	NoteEventListener func(harmonia.NoteEvent)

	listener struct {
		id ListenerID
		fn NoteEventListener
	}
)

func (id ListenerID) String() string { return uuid.UUID(id).String() }

// AddNoteEventListener registers fn and returns the id to remove it with.
func (p *Player) AddNoteEventListener(fn NoteEventListener) ListenerID {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	id := ListenerID(uuid.New())
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	return id
}

// RemoveNoteEventListener unregisters a listener. Unknown ids are ignored.
func (p *Player) RemoveNoteEventListener(id ListenerID) {
	p.ctx.Lock()
	defer p.ctx.Unlock()
	for i, l := range p.listeners {
		if l.id == id {
			p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
			return
		}
	}
}

// unlockAndEmit releases the context lock and then delivers events to the
// listeners registered at the time of the call.
func (p *Player) unlockAndEmit(events []harmonia.NoteEvent) {
	listeners := p.listeners
	p.ctx.Unlock()
	for _, e := range events {
		for _, l := range listeners {
			l.fn(e)
		}
	}
}

func noteEvents(typ harmonia.NoteEventType, at float64, notes ...string) []harmonia.NoteEvent {
	ret := make([]harmonia.NoteEvent, len(notes))
	for i, n := range notes {
		ret[i] = harmonia.NoteEvent{Note: n, Type: typ, Timestamp: at}
	}
	return ret
}
