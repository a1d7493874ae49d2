// Package schema installs versioned schema artifacts into data stores exactly
// once.
//
// An artifact is a named, versioned list of statements for one store kind
// (time-series or relational), loaded from a script resource. A [Ledger]
// remembers which artifacts were applied and with which checksum. The
// [Applier] consults the ledger before executing anything, so re-running an
// installation against a partially installed store is safe. The
// [Orchestrator] selects the artifacts a [Profile] needs, orders them by
// declared dependencies and applies them one by one, stopping at the first
// failure.
//
// # Usage
//
//	loader := schema.DirLoader{Root: "resources"}
//	manifest, err := schema.LoadManifest(loader, "manifest.yaml")
//	if err != nil {
//	    return err
//	}
//	ts := schema.NewApplier(schema.StoreTimeseries, executor, ledger, schema.WithLogger(logger))
//	orch := schema.NewOrchestrator(manifest, schema.NewSource(loader), []*schema.Applier{ts})
//	report, err := orch.Run(ctx, schema.ProfileInstall)
//
// # Script format
//
// Statements end with ';'. Lines starting with "--" are comments. A ';'
// inside a single-quoted literal does not end a statement. A script with no
// statements, an unterminated literal or a trailing statement without ';' is
// malformed.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package schema
