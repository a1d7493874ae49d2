package keystone

import (
	"sync"

	"github.com/bft-labs/keystone/pkg/log"
)

// State is the runtime state of a Keystone instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// runState guards the runtime state machine of one instance.
type runState struct {
	mu     sync.RWMutex
	state  State
	logger log.Logger
}

func newRunState(logger log.Logger) *runState {
	return &runState{state: StateStopped, logger: logger}
}

func (r *runState) get() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// transitionTo moves to next, returning ErrAlreadyRunning or ErrNotRunning
// when the move is not allowed from the current state.
func (r *runState) transitionTo(next State, reason string) error {
	r.mu.Lock()
	prev := r.state

	var err error
	switch prev {
	case StateStopped, StateCrashed:
		if next != StateStarting {
			err = ErrNotRunning
		}
	case StateStarting:
		if next != StateRunning && next != StateCrashed {
			err = ErrAlreadyRunning
		}
	case StateRunning:
		if next != StateStopping && next != StateCrashed {
			err = ErrAlreadyRunning
		}
	case StateStopping:
		if next != StateStopped && next != StateCrashed {
			err = ErrAlreadyRunning
		}
	}
	if err != nil {
		r.mu.Unlock()
		return err
	}

	r.state = next
	r.mu.Unlock()

	r.logger.Info("state transition",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
	return nil
}

func (r *runState) canStart() bool {
	s := r.get()
	return s == StateStopped || s == StateCrashed
}

func (r *runState) canStop() bool {
	s := r.get()
	return s == StateRunning || s == StateStarting
}
