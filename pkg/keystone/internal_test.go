package keystone

import (
	"testing"

	"github.com/bft-labs/keystone/pkg/log"
)

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.1.0", "1.0.0", true},
		{"1.0.1", "1.0.2", false},
		{"2.0.0", "1.9.9", true},
		{"0.9.0", "1.0.0", false},
		{"1.2.3", "1.3.0", false},
	}
	for _, tt := range tests {
		if got := isVersionCompatible(tt.version, tt.min); got != tt.want {
			t.Errorf("isVersionCompatible(%q, %q) = %v, want %v", tt.version, tt.min, got, tt.want)
		}
	}
}

func TestValidateModuleVersions(t *testing.T) {
	if err := validateModuleVersions(); err != nil {
		t.Fatalf("validateModuleVersions() = %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestRunState_Transitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		next State
		want error
	}{
		{"stopped to starting", nil, StateStarting, nil},
		{"stopped to running", nil, StateRunning, ErrNotRunning},
		{"starting to running", []State{StateStarting}, StateRunning, nil},
		{"starting to stopped", []State{StateStarting}, StateStopped, ErrAlreadyRunning},
		{"running to stopping", []State{StateStarting, StateRunning}, StateStopping, nil},
		{"running to starting", []State{StateStarting, StateRunning}, StateStarting, ErrAlreadyRunning},
		{"stopping to stopped", []State{StateStarting, StateRunning, StateStopping}, StateStopped, nil},
		{"crashed to starting", []State{StateStarting, StateCrashed}, StateStarting, nil},
		{"crashed to running", []State{StateStarting, StateCrashed}, StateRunning, ErrNotRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunState(log.NewNoopLogger())
			for _, s := range tt.path {
				if err := r.transitionTo(s, "setup"); err != nil {
					t.Fatalf("setup transition to %s: %v", s, err)
				}
			}
			if err := r.transitionTo(tt.next, "test"); err != tt.want {
				t.Fatalf("transitionTo(%s) = %v, want %v", tt.next, err, tt.want)
			}
		})
	}
}

func TestRunState_CanStartCanStop(t *testing.T) {
	r := newRunState(log.NewNoopLogger())
	if !r.canStart() || r.canStop() {
		t.Fatal("stopped state should allow start only")
	}
	_ = r.transitionTo(StateStarting, "test")
	_ = r.transitionTo(StateRunning, "test")
	if r.canStart() || !r.canStop() {
		t.Fatal("running state should allow stop only")
	}
}
