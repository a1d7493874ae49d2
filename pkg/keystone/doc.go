// Package keystone provides an embeddable coordinator for schema
// installation and component lifecycles.
//
// Keystone applies versioned schema artifacts to a time-series store and a
// relational store, recording every attempt in a per-store ledger, and
// tracks the lifecycle of long-running components, fanning accepted
// transitions out to subscribers. It can be used through the keystone CLI
// or embedded as a library.
//
// # Basic Usage
//
//	cfg := keystone.Config{
//	    Loader: schema.DirLoader{Root: "/etc/keystone/resources"},
//	    Stores: []keystone.Store{
//	        {Kind: schema.StoreTimeseries, Executor: tsExec, Ledger: tsLedger},
//	        {Kind: schema.StoreRelational, Executor: relExec, Ledger: relLedger},
//	    },
//	}
//
//	k, err := keystone.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := k.Install(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Runtime
//
// [Keystone.Start] subscribes the audit log and metrics handlers, plus any
// registered with [WithSubscriber], and initializes plugins in registration
// order. Components are driven through [Keystone.Registry].
// [Keystone.Stop] shuts plugins down in reverse order and drains the
// subscriber queues. A stopped instance cannot be started again.
//
// # Plugins
//
//	k, err := keystone.New(cfg,
//	    componentwatch.WithComponentWatch(componentwatch.Config{Dir: "/etc/keystone/components"}),
//	    healthserver.WithHealthServer(healthserver.DefaultConfig()),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and [CompatibilityMatrix]
// to check minimum compatible versions.
package keystone
