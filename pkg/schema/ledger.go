package schema

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LedgerStatus is the answer to "was this artifact applied?".
type LedgerStatus int

const (
	// Absent means no successful record exists for the name.
	Absent LedgerStatus = iota
	// AppliedMatching means the name was applied with the same checksum.
	AppliedMatching
	// AppliedConflicting means the name was applied with a different checksum.
	AppliedConflicting
)

func (s LedgerStatus) String() string {
	switch s {
	case Absent:
		return "pending"
	case AppliedMatching:
		return "applied"
	case AppliedConflicting:
		return "conflicting"
	default:
		return fmt.Sprintf("LedgerStatus(%d)", int(s))
	}
}

// Outcome is the recorded result of one application attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Record is one ledger row.
type Record struct {
	Name     string    `json:"name"`
	Store    StoreKind `json:"store"`
	Version  int       `json:"version"`
	Checksum string    `json:"checksum"`
	Outcome  Outcome   `json:"outcome"`
	// FailedIndex is the 1-based index of the failing statement, 0 on success.
	FailedIndex int       `json:"failed_index,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Ledger persists which artifacts were applied to a store.
//
// RecordApplied is an idempotent append: recording a success for a name that
// already has a success with the same checksum is a no-op, and a success with
// a different checksum is rejected with a *ConflictError and never
// overwrites. Failure records are kept as history. Write failures wrap
// ErrPersistence.
type Ledger interface {
	IsApplied(ctx context.Context, name, checksum string) (LedgerStatus, error)
	RecordApplied(ctx context.Context, rec Record) error
	LatestVersion(ctx context.Context, store StoreKind) (int, bool, error)
	Records(ctx context.Context) ([]Record, error)
}

// StatusOf evaluates name and checksum against a record history.
func StatusOf(records []Record, name, checksum string) LedgerStatus {
	for _, rec := range records {
		if rec.Name != name || rec.Outcome != OutcomeSuccess {
			continue
		}
		if rec.Checksum == checksum {
			return AppliedMatching
		}
		return AppliedConflicting
	}
	return Absent
}

// LatestOf returns the highest successfully applied version for store.
func LatestOf(records []Record, store StoreKind) (int, bool) {
	latest, found := 0, false
	for _, rec := range records {
		if rec.Store != store || rec.Outcome != OutcomeSuccess {
			continue
		}
		if !found || rec.Version > latest {
			latest, found = rec.Version, true
		}
	}
	return latest, found
}

// Append applies the ledger append rules to records. It reports whether rec
// must be stored.
func Append(records []Record, rec Record) (bool, error) {
	if rec.Name == "" {
		return false, fmt.Errorf("schema: record without name")
	}
	switch rec.Outcome {
	case OutcomeFailure:
		return true, nil
	case OutcomeSuccess:
	default:
		return false, fmt.Errorf("schema: unknown outcome %q", rec.Outcome)
	}

	switch StatusOf(records, rec.Name, rec.Checksum) {
	case AppliedMatching:
		return false, nil
	case AppliedConflicting:
		return false, &ConflictError{Name: rec.Name, Checksum: rec.Checksum}
	default:
		return true, nil
	}
}

// MemoryLedger is a Ledger kept in process memory. It is useful for dry runs
// and tests.
type MemoryLedger struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) IsApplied(_ context.Context, name, checksum string) (LedgerStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return StatusOf(l.records, name, checksum), nil
}

func (l *MemoryLedger) RecordApplied(_ context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	store, err := Append(l.records, rec)
	if err != nil || !store {
		return err
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *MemoryLedger) LatestVersion(_ context.Context, store StoreKind) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := LatestOf(l.records, store)
	return v, ok, nil
}

func (l *MemoryLedger) Records(_ context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out, nil
}
