package lifecycle

import (
	"fmt"
	"strings"
)

// Status is the lifecycle status of a component. The zero value is not a
// valid status.
type Status int

const (
	Created Status = iota + 1
	Started
	Activated
	Suspended
	Updated
	Stopped
	Deleted
	Failed
	Deactivated
)

// AllStatuses lists every valid status in declaration order.
var AllStatuses = []Status{
	Created, Started, Activated, Suspended, Updated, Stopped, Deleted, Failed, Deactivated,
}

var statusNames = map[Status]string{
	Created:     "CREATED",
	Started:     "STARTED",
	Activated:   "ACTIVATED",
	Suspended:   "SUSPENDED",
	Updated:     "UPDATED",
	Stopped:     "STOPPED",
	Deleted:     "DELETED",
	Failed:      "FAILED",
	Deactivated: "DEACTIVATED",
}

// String returns the upper-case status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == upper {
			return s, nil
		}
	}
	return 0, fmt.Errorf("lifecycle: unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("lifecycle: cannot marshal status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
