package lifecycle

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/bft-labs/keystone/pkg/log"
)

// Publisher receives every accepted event. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// ComponentState is a point-in-time view of one tracked component.
type ComponentState struct {
	Identity Identity
	Status   Status
	Sequence uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) {
		r.logger = log.OrNoop(logger)
	}
}

// WithClock sets the clock used to stamp events.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// Registry tracks the current status of every component and validates
// transitions against the lifecycle table.
//
// Transitions of one identity are serialized and published in acceptance
// order. Transitions of different identities proceed independently.
// Deleted identities are kept as tombstones and are never reused.
type Registry struct {
	entries   cmap.ConcurrentMap[string, *entry]
	publisher Publisher
	clock     clock.Clock
	logger    log.Logger
}

type entry struct {
	mu       sync.Mutex
	identity Identity
	// status is zero until the Created transition has been accepted.
	status Status
	seq    uint64
}

// NewRegistry creates an empty registry. publisher may be nil.
func NewRegistry(publisher Publisher, opts ...Option) *Registry {
	r := &Registry{
		entries:   cmap.New[*entry](),
		publisher: publisher,
		clock:     clock.WallClock,
		logger:    log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transition moves id to the requested status.
func (r *Registry) Transition(id Identity, to Status, reason string) (Event, error) {
	return r.transition(id, nil, to, reason)
}

// TransitionFrom moves id to the requested status only if its current
// status is expected. Otherwise it returns an error wrapping ErrStaleState.
func (r *Registry) TransitionFrom(id Identity, expected, to Status, reason string) (Event, error) {
	return r.transition(id, &expected, to, reason)
}

func (r *Registry) transition(id Identity, expected *Status, to Status, reason string) (Event, error) {
	if err := id.Validate(); err != nil {
		return Event{}, err
	}
	if !to.Valid() {
		return Event{}, &TransitionError{Identity: id, To: to, Err: ErrIllegalTransition}
	}

	e, ok := r.lookup(id, to)
	if !ok {
		return Event{}, &TransitionError{Identity: id, To: to, Err: ErrUnknownComponent}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.status
	switch {
	case current == 0 && to != InitialStatus:
		return Event{}, &TransitionError{Identity: id, To: to, Err: ErrUnknownComponent}
	case current == Deleted:
		return Event{}, &TransitionError{Identity: id, From: current, To: to, Err: ErrAlreadyDeleted}
	case current != 0 && to == InitialStatus:
		return Event{}, &TransitionError{Identity: id, From: current, To: to, Err: ErrIllegalTransition}
	}

	if expected != nil && current != *expected {
		return Event{}, &TransitionError{Identity: id, From: current, To: to, Err: ErrStaleState}
	}

	if current != 0 {
		if err := Validate(current, to); err != nil {
			return Event{}, &TransitionError{Identity: id, From: current, To: to, Err: ErrIllegalTransition}
		}
	}

	ev := Event{
		ID:       uuid.New(),
		Identity: id,
		Current:  to,
		Sequence: e.seq + 1,
		At:       r.clock.Now(),
		Reason:   reason,
	}
	if current != 0 {
		prev := current
		ev.Previous = &prev
	}

	e.status = to
	e.seq = ev.Sequence

	// Publishing under the entry lock keeps per-identity delivery order
	// equal to acceptance order.
	if r.publisher != nil {
		r.publisher.Publish(ev)
	}

	r.logger.Debug("component transition",
		log.Stringer("identity", id),
		log.String("from", ev.PreviousString()),
		log.Stringer("to", to),
		log.String("reason", reason),
		log.Uint64("sequence", ev.Sequence),
	)

	return ev, nil
}

// lookup returns the entry for id, creating a placeholder when the request
// is the initial transition.
func (r *Registry) lookup(id Identity, to Status) (*entry, bool) {
	key := id.Key()
	if to == InitialStatus {
		e := r.entries.Upsert(key, nil, func(exists bool, inMap *entry, _ *entry) *entry {
			if exists {
				return inMap
			}
			return &entry{identity: id}
		})
		return e, true
	}
	return r.entries.Get(key)
}

// Status returns the current status of id. The boolean is false when the
// identity has never been created.
func (r *Registry) Status(id Identity) (Status, bool) {
	e, ok := r.entries.Get(id.Key())
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == 0 {
		return 0, false
	}
	return e.status, true
}

// Snapshot returns every tracked component, deleted ones included, sorted by
// identity key.
func (r *Registry) Snapshot() []ComponentState {
	out := make([]ComponentState, 0, r.entries.Count())
	for item := range r.entries.IterBuffered() {
		e := item.Val
		e.mu.Lock()
		if e.status != 0 {
			out = append(out, ComponentState{Identity: e.identity, Status: e.status, Sequence: e.seq})
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.Key() < out[j].Identity.Key()
	})
	return out
}
