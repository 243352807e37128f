package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/harmonia-audio/harmonia"
)

type (
	// Broker fans note events out to the event stream subscribers. Every
	// subscriber has its own buffered channel; a subscriber that does not
	// keep up loses events instead of blocking the player.
	Broker struct {
		mu          sync.Mutex
		subscribers map[uuid.UUID]chan harmonia.NoteEvent
		closed      bool
	}
)

const subscriberBuffer = 256

func NewBroker() *Broker {
	return &Broker{subscribers: map[uuid.UUID]chan harmonia.NoteEvent{}}
}

// Subscribe returns a new subscription. The channel is closed by Unsubscribe
// or Close.
func (b *Broker) Subscribe() (uuid.UUID, <-chan harmonia.NoteEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	c := make(chan harmonia.NoteEvent, subscriberBuffer)
	if b.closed {
		close(c)
		return id, c
	}
	b.subscribers[id] = c
	return id, c
}

func (b *Broker) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.subscribers[id]; ok {
		close(c)
		delete(b.subscribers, id)
	}
}

// Publish sends e to every subscriber without blocking and returns how many
// received it.
func (b *Broker) Publish(e harmonia.NoteEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.subscribers {
		if TrySend(c, e) {
			n++
		}
	}
	return n
}

func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close ends every subscription; later subscriptions are closed at once.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.subscribers {
		close(c)
		delete(b.subscribers, id)
	}
	b.closed = true
}

// TrySend sends v to c unless c is full. It never blocks and reports whether
// v was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
