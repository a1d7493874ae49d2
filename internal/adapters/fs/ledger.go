// Package fs provides a schema ledger kept in JSON files on the local disk.
package fs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/juju/clock"

	"github.com/bft-labs/keystone/pkg/schema"
	"github.com/bft-labs/keystone/pkg/state"
)

// Ledger implements schema.Ledger on top of a state.Repository. The document
// is re-read on every call; nothing is cached between calls.
type Ledger struct {
	mu    sync.Mutex
	store schema.StoreKind
	repo  state.Repository
	clock clock.Clock
}

// NewLedger creates a file ledger for store under dir. Each store kind gets
// its own file.
func NewLedger(dir string, store schema.StoreKind) *Ledger {
	return NewLedgerWithRepository(state.NewFileRepository(dir, FileName(store)), store, clock.WallClock)
}

// NewLedgerWithRepository creates a ledger over an existing repository.
func NewLedgerWithRepository(repo state.Repository, store schema.StoreKind, c clock.Clock) *Ledger {
	if c == nil {
		c = clock.WallClock
	}
	return &Ledger{store: store, repo: repo, clock: c}
}

// FileName returns the ledger file name used for store.
func FileName(store schema.StoreKind) string {
	return "ledger-" + string(store) + ".json"
}

func (l *Ledger) IsApplied(ctx context.Context, name, checksum string) (schema.LedgerStatus, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return schema.Absent, err
	}
	return schema.StatusOf(doc.Records, name, checksum), nil
}

func (l *Ledger) RecordApplied(ctx context.Context, rec schema.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return err
	}

	changed, err := doc.Append(rec)
	if err != nil || !changed {
		return err
	}

	doc.Store = l.store
	doc.UpdatedAt = l.clock.Now().UTC()
	if err := l.repo.Save(ctx, doc); err != nil {
		return fmt.Errorf("%w: save ledger: %w", schema.ErrPersistence, err)
	}
	return nil
}

func (l *Ledger) LatestVersion(ctx context.Context, store schema.StoreKind) (int, bool, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return 0, false, err
	}
	v, ok := schema.LatestOf(doc.Records, store)
	return v, ok, nil
}

func (l *Ledger) Records(ctx context.Context) ([]schema.Record, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Records, nil
}

func (l *Ledger) load(ctx context.Context) (state.Document, error) {
	doc, err := l.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return state.Document{}, err
		}
		return state.Document{}, fmt.Errorf("%w: load ledger: %w", schema.ErrPersistence, err)
	}
	if doc.Store != "" && doc.Store != l.store {
		return state.Document{}, fmt.Errorf("%w: ledger belongs to store %s, not %s", schema.ErrPersistence, doc.Store, l.store)
	}
	return doc, nil
}
