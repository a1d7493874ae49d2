package lifecycle

// transitions is the only place valid status progressions are declared.
var transitions = map[Status][]Status{
	Created:     {Started, Failed, Deleted},
	Started:     {Activated, Failed, Stopped, Deleted},
	Activated:   {Suspended, Updated, Deactivated, Failed, Stopped, Deleted},
	Suspended:   {Activated, Stopped, Deleted, Failed},
	Updated:     {Activated, Failed, Stopped, Deleted},
	Deactivated: {Started, Deleted},
	Stopped:     {Started, Deleted},
	Failed:      {Started, Deleted},
	Deleted:     {},
}

// InitialStatus is the status a component must enter on first observation.
const InitialStatus = Created

// Validate accepts (nil) or rejects a transition from current to requested.
// Rejections wrap ErrIllegalTransition.
func Validate(current, requested Status) error {
	for _, to := range transitions[current] {
		if to == requested {
			return nil
		}
	}
	return &TransitionError{From: current, To: requested, Err: ErrIllegalTransition}
}

// Allowed returns the statuses reachable from s in one step.
func Allowed(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}
