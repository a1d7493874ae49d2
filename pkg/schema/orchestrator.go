package schema

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/keystone/pkg/log"
)

// Profile selects what an orchestrator run applies.
type Profile int

const (
	// ProfileInstall applies every declared artifact.
	ProfileInstall Profile = iota + 1
	// ProfileUpgrade applies, per store kind, the artifacts newer than the
	// latest version recorded in that store's ledger.
	ProfileUpgrade
	// ProfileRuntime is normal operation. No schema work is done.
	ProfileRuntime
)

func (p Profile) String() string {
	switch p {
	case ProfileInstall:
		return "install"
	case ProfileUpgrade:
		return "upgrade"
	case ProfileRuntime:
		return "runtime"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// ParseProfile parses install, upgrade or runtime.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "install":
		return ProfileInstall, nil
	case "upgrade":
		return ProfileUpgrade, nil
	case "runtime":
		return ProfileRuntime, nil
	default:
		return 0, fmt.Errorf("schema: unknown profile %q (want install, upgrade or runtime)", s)
	}
}

// Report lists the results of the artifacts a run attempted, in order.
type Report struct {
	Profile Profile
	Results []ApplyResult
}

// Count returns how many results have the given outcome.
func (r Report) Count(outcome ApplyOutcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// PlanEntry is the dry-run state of one selected artifact.
type PlanEntry struct {
	Artifact string
	Store    StoreKind
	Version  int
	Checksum string
	Status   LedgerStatus
}

// Ready reports whether a plan has nothing pending and nothing conflicting.
func Ready(plan []PlanEntry) bool {
	for _, e := range plan {
		if e.Status != AppliedMatching {
			return false
		}
	}
	return true
}

// Orchestrator runs a profile over a manifest.
type Orchestrator struct {
	manifest *Manifest
	source   *Source
	appliers map[StoreKind]*Applier
	opts     options
}

// NewOrchestrator creates an orchestrator with one applier per store kind.
// A later applier for the same store kind replaces an earlier one.
func NewOrchestrator(manifest *Manifest, source *Source, appliers []*Applier, opts ...Option) *Orchestrator {
	byStore := make(map[StoreKind]*Applier, len(appliers))
	for _, a := range appliers {
		byStore[a.Store()] = a
	}
	return &Orchestrator{
		manifest: manifest,
		source:   source,
		appliers: byStore,
		opts:     buildOptions(opts),
	}
}

// Run applies the artifacts selected by profile in dependency order. The
// first error aborts the run; the report holds every attempted artifact.
func (o *Orchestrator) Run(ctx context.Context, profile Profile) (report Report, err error) {
	ctx, span := o.opts.tracer.Start(ctx, "schema.run", trace.WithAttributes(
		attribute.String("schema.profile", profile.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	report = Report{Profile: profile}
	logger := log.With(o.opts.logger, log.Stringer("profile", profile))

	selected, err := o.selectArtifacts(ctx, profile)
	if err != nil {
		return report, err
	}

	logger.Info("schema run started", log.Int("artifacts", len(selected)))

	for _, ref := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		art, err := o.source.Load(ctx, ref)
		if err != nil {
			logger.Error("artifact load failed", log.String("artifact", ref.Name), log.Err(err))
			return report, err
		}

		res, err := o.appliers[ref.Store].Apply(ctx, art)
		report.Results = append(report.Results, res)
		if err != nil {
			logger.Error("schema run aborted",
				log.String("artifact", ref.Name),
				log.Err(err),
			)
			return report, err
		}
	}

	logger.Info("schema run finished",
		log.Int("applied", report.Count(Applied)),
		log.Int("skipped", report.Count(Skipped)),
	)
	return report, nil
}

// Plan reports, without executing anything, the ledger status of every
// artifact profile would select.
func (o *Orchestrator) Plan(ctx context.Context, profile Profile) ([]PlanEntry, error) {
	selected, err := o.selectArtifacts(ctx, profile)
	if err != nil {
		return nil, err
	}

	plan := make([]PlanEntry, 0, len(selected))
	for _, ref := range selected {
		art, err := o.source.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		status, err := o.appliers[ref.Store].Ledger().IsApplied(ctx, art.Name, art.Checksum)
		if err != nil {
			return nil, wrapPersistence("read ledger", err)
		}
		plan = append(plan, PlanEntry{
			Artifact: art.Name,
			Store:    art.Store,
			Version:  art.Version,
			Checksum: art.Checksum,
			Status:   status,
		})
	}
	return plan, nil
}

func (o *Orchestrator) selectArtifacts(ctx context.Context, profile Profile) ([]ArtifactRef, error) {
	all := o.manifest.Artifacts()
	for _, ref := range all {
		if _, ok := o.appliers[ref.Store]; !ok {
			return nil, fmt.Errorf("%w: %s (artifact %s)", ErrNoApplier, ref.Store, ref.Name)
		}
	}

	var selected []ArtifactRef
	switch profile {
	case ProfileInstall:
		selected = all
	case ProfileUpgrade:
		latest := make(map[StoreKind]int)
		for store, a := range o.appliers {
			v, _, err := a.Ledger().LatestVersion(ctx, store)
			if err != nil {
				return nil, wrapPersistence("read latest version", err)
			}
			latest[store] = v
		}
		for _, ref := range all {
			if ref.Version > latest[ref.Store] {
				selected = append(selected, ref)
			}
		}
	default:
		return nil, fmt.Errorf("schema: profile %s does not run schema changes", profile)
	}

	return o.manifest.Order(selected)
}
