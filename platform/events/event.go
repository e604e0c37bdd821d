// Package events is the in-process publish/subscribe bus that lets funnel
// modules react to each other's side effects without importing each other.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on the bus. Names are "<module>.<fact>".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Identified is implemented by events that carry a unique id.
type Identified interface {
	EventID() string
}

// BaseEvent is embedded by every funnel event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func (e BaseEvent) EventID() string { return e.ID }

// NewBaseEvent stamps a fresh id and the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus delivers events to the handlers subscribed to their name. Publish
// does not wait for handlers; PublishSync does and reports their errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

func idOf(event Event) string {
	if ev, ok := event.(Identified); ok {
		return ev.EventID()
	}
	return ""
}
