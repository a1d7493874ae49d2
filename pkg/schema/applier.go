package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/keystone/pkg/log"
)

// Executor submits one statement to a store. Statements are executed one at
// a time and never wrapped in a transaction spanning an artifact.
type Executor interface {
	Execute(ctx context.Context, statement string) error
}

// ApplyOutcome is the result kind of Apply.
type ApplyOutcome int

const (
	Skipped ApplyOutcome = iota
	Applied
	Failed
)

func (o ApplyOutcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("ApplyOutcome(%d)", int(o))
	}
}

// ApplyResult describes what Apply did with one artifact.
type ApplyResult struct {
	Artifact string
	Store    StoreKind
	Version  int
	Checksum string
	Outcome  ApplyOutcome
	// FailedIndex is the 1-based index of the failing statement.
	FailedIndex int
	Reason      string
	Duration    time.Duration
}

// Applier applies artifacts of one store kind through an Executor, gated by
// a Ledger.
type Applier struct {
	store  StoreKind
	exec   Executor
	ledger Ledger
	opts   options
	logger log.Logger
}

// NewApplier creates an applier for store.
func NewApplier(store StoreKind, exec Executor, ledger Ledger, opts ...Option) *Applier {
	o := buildOptions(opts)
	return &Applier{
		store:  store,
		exec:   exec,
		ledger: ledger,
		opts:   o,
		logger: log.With(o.logger, log.Stringer("store", store)),
	}
}

// Store returns the store kind this applier serves.
func (a *Applier) Store() StoreKind {
	return a.store
}

// Ledger returns the ledger this applier records into.
func (a *Applier) Ledger() Ledger {
	return a.ledger
}

// Apply applies art unless the ledger already holds it.
//
// The ledger is read before anything is executed. A matching record yields
// Skipped. A conflicting record yields a *ConflictError and leaves the
// ledger untouched. Otherwise the statements run in order; the first failure
// is recorded with its index and returned as an *ApplicationError. Nothing is
// rolled back.
func (a *Applier) Apply(ctx context.Context, art Artifact) (result ApplyResult, err error) {
	ctx, span := a.opts.tracer.Start(ctx, "schema.apply", trace.WithAttributes(
		attribute.String("schema.artifact", art.Name),
		attribute.String("schema.store", string(art.Store)),
		attribute.Int("schema.version", art.Version),
	))
	start := a.opts.clock.Now()
	result = ApplyResult{
		Artifact: art.Name,
		Store:    art.Store,
		Version:  art.Version,
		Checksum: art.Checksum,
	}

	defer func() {
		result.Duration = a.opts.clock.Now().Sub(start)
		if err != nil {
			result.Outcome = Failed
			if result.Reason == "" {
				result.Reason = err.Error()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, result.Reason)
		}
		span.SetAttributes(attribute.String("schema.outcome", result.Outcome.String()))
		span.End()
		if a.opts.observer != nil {
			a.opts.observer.OnApply(result)
		}
	}()

	if art.Store != a.store {
		return result, fmt.Errorf("%w: artifact %s targets %s, applier serves %s", ErrNoApplier, art.Name, art.Store, a.store)
	}

	logger := log.With(a.logger,
		log.String("artifact", art.Name),
		log.Int("version", art.Version),
	)

	status, err := a.ledger.IsApplied(ctx, art.Name, art.Checksum)
	if err != nil {
		return result, wrapPersistence("read ledger", err)
	}

	switch status {
	case AppliedMatching:
		result.Outcome = Skipped
		logger.Info("artifact already applied, skipping")
		return result, nil
	case AppliedConflicting:
		logger.Error("artifact checksum conflicts with applied version", log.String("checksum", art.Checksum))
		return result, &ConflictError{Name: art.Name, Checksum: art.Checksum}
	}

	logger.Info("applying artifact", log.Int("statements", len(art.Statements)))

	for i, stmt := range art.Statements {
		if err := a.exec.Execute(ctx, stmt); err != nil {
			appErr := &ApplicationError{Name: art.Name, Index: i + 1, Statement: stmt, Err: err}
			result.FailedIndex = i + 1
			result.Reason = err.Error()

			logger.Error("statement failed",
				log.Int("index", i+1),
				log.Err(err),
			)

			rec := a.record(art, OutcomeFailure)
			rec.FailedIndex = i + 1
			rec.Reason = err.Error()
			if recErr := a.ledger.RecordApplied(ctx, rec); recErr != nil {
				return result, errors.Join(wrapPersistence("record failure", recErr), appErr)
			}
			return result, appErr
		}
	}

	if err := a.ledger.RecordApplied(ctx, a.record(art, OutcomeSuccess)); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return result, err
		}
		return result, wrapPersistence("record success", err)
	}

	result.Outcome = Applied
	logger.Info("artifact applied")
	return result, nil
}

func (a *Applier) record(art Artifact, outcome Outcome) Record {
	return Record{
		Name:      art.Name,
		Store:     art.Store,
		Version:   art.Version,
		Checksum:  art.Checksum,
		Outcome:   outcome,
		AppliedAt: a.opts.clock.Now().UTC(),
	}
}

// wrapPersistence wraps err in ErrPersistence unless it already is one.
func wrapPersistence(op string, err error) error {
	if errors.Is(err, ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return persistenceError(op, err)
}
