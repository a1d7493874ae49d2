package schema

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// fakeExecutor records submitted statements and fails those listed in
// failOn.
type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	failOn   map[string]error
}

func (e *fakeExecutor) Execute(_ context.Context, statement string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, statement)
	if err, ok := e.failOn[statement]; ok {
		return err
	}
	return nil
}

func (e *fakeExecutor) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.executed))
	copy(out, e.executed)
	return out
}

// brokenLedger fails writes, reads, or both.
type brokenLedger struct {
	*MemoryLedger
	failReads  bool
	failWrites bool
}

var errDiskFull = errors.New("disk full")

func (l *brokenLedger) IsApplied(ctx context.Context, name, checksum string) (LedgerStatus, error) {
	if l.failReads {
		return Absent, errDiskFull
	}
	return l.MemoryLedger.IsApplied(ctx, name, checksum)
}

func (l *brokenLedger) RecordApplied(ctx context.Context, rec Record) error {
	if l.failWrites {
		return errDiskFull
	}
	return l.MemoryLedger.RecordApplied(ctx, rec)
}

type resultRecorder struct {
	mu      sync.Mutex
	results []ApplyResult
}

func (r *resultRecorder) OnApply(res ApplyResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}
