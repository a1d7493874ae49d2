package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// Event records one accepted transition. Events are immutable values.
type Event struct {
	ID       uuid.UUID
	Identity Identity
	// Previous is nil for the initial Created transition.
	Previous *Status
	Current  Status
	// Sequence starts at 1 for the Created event and increases by one per
	// accepted transition of the same identity.
	Sequence uint64
	At       time.Time
	Reason   string
}

// PreviousString returns the previous status name or "-" for the initial event.
func (e Event) PreviousString() string {
	if e.Previous == nil {
		return "-"
	}
	return e.Previous.String()
}

// Handler receives accepted lifecycle events.
type Handler interface {
	HandleEvent(Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event) error

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) error {
	return f(ev)
}
