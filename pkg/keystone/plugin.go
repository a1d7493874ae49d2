package keystone

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
)

// Plugin extends a running Keystone. Plugins are initialized in
// registration order by Start and shut down in reverse order by Stop.
type Plugin interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Initialize starts the plugin. Long-running work must happen in
	// goroutines bound to ctx.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	// Registry accepts component lifecycle transitions.
	Registry *lifecycle.Registry

	// Plan reports the ledger status of every artifact the install
	// profile would apply.
	Plan func(ctx context.Context) ([]schema.PlanEntry, error)

	// Gatherer exposes the instance's metrics.
	Gatherer prometheus.Gatherer

	Logger log.Logger
}
