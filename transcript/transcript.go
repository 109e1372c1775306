// Package transcript reconciles incremental partial-text events into
// per-turn finalized records.
package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Direction distinguishes the two transcript streams: what the speaker
// said (input) and what the model spoke back (output).
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Event is a transcription update: the full accumulated text of a turn
// so far, or the finalized text when Final is set.
type Event struct {
	Text      string
	Direction Direction
	Final     bool
}

// Item is an immutable finalized record, one per completed turn per
// direction that produced text.
type Item struct {
	ID        uuid.UUID
	Direction Direction
	Text      string
	CreatedAt time.Time
}

// Aggregator accumulates fragments per direction until the turn
// completes. Not safe for concurrent use; the session controller owns
// it and serializes access.
type Aggregator struct {
	buffers map[Direction]string
	emit    func(Event)
}

// New returns an aggregator that reports partial and final events
// through emit. emit may be nil.
func New(emit func(Event)) *Aggregator {
	return &Aggregator{
		buffers: make(map[Direction]string),
		emit:    emit,
	}
}

// Append adds a fragment to the buffer for its direction and emits a
// partial event carrying the accumulated text so far.
func (a *Aggregator) Append(dir Direction, text string) {
	a.buffers[dir] += text
	if a.emit != nil {
		a.emit(Event{Text: a.buffers[dir], Direction: dir, Final: false})
	}
}

// CompleteTurn finalizes the current turn: each direction with a
// non-empty buffer yields one Item and one final event, in input,
// output order. Both buffers are cleared regardless.
func (a *Aggregator) CompleteTurn() []Item {
	var items []Item
	now := time.Now()
	for _, dir := range []Direction{Input, Output} {
		text := a.buffers[dir]
		if text == "" {
			continue
		}
		items = append(items, Item{
			ID:        uuid.New(),
			Direction: dir,
			Text:      text,
			CreatedAt: now,
		})
		if a.emit != nil {
			a.emit(Event{Text: text, Direction: dir, Final: true})
		}
	}
	a.buffers = make(map[Direction]string)
	return items
}

// Partial returns the in-progress text for a direction.
func (a *Aggregator) Partial(dir Direction) string {
	return a.buffers[dir]
}
