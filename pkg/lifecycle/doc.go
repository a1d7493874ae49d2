// Package lifecycle tracks the runtime status of pluggable platform
// components (rule-engine nodes, tenant actors, integrations).
//
// The package has three parts:
//
//   - the state machine: a closed Status type and the single transition
//     table every component kind shares ([Validate]);
//   - the [Registry]: current status per component [Identity], updated with
//     per-identity compare-and-set semantics;
//   - the [Dispatcher]: asynchronous fan-out of accepted transitions to
//     subscribers, each with its own bounded queue.
//
// # Usage
//
//	d := lifecycle.NewDispatcher(lifecycle.DispatcherConfig{QueueSize: 256}, logger)
//	defer d.Close(ctx)
//
//	d.Subscribe("audit", lifecycle.HandlerFunc(func(ev lifecycle.Event) error {
//	    logger.Info("component transition", log.Stringer("identity", ev.Identity))
//	    return nil
//	}))
//
//	r := lifecycle.NewRegistry(d, lifecycle.WithLogger(logger))
//	id := lifecycle.Identity{Tenant: "t1", Kind: "rule-node", ID: "n-42"}
//	if _, err := r.Transition(id, lifecycle.Created, "descriptor added"); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid transitions:
//   - Created -> Started, Failed, Deleted
//   - Started -> Activated, Failed, Stopped, Deleted
//   - Activated -> Suspended, Updated, Deactivated, Failed, Stopped, Deleted
//   - Suspended -> Activated, Stopped, Deleted, Failed
//   - Updated -> Activated, Failed, Stopped, Deleted
//   - Deactivated -> Started, Deleted
//   - Stopped -> Started, Deleted
//   - Failed -> Started, Deleted
//   - Deleted is terminal
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package lifecycle
