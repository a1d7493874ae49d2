package keystone

import (
	"fmt"
	"time"

	"github.com/bft-labs/keystone/pkg/schema"
)

// Defaults applied by Config.SetDefaults.
const (
	DefaultManifest        = "manifest.yaml"
	DefaultShutdownTimeout = 30 * time.Second
)

// Store binds one store kind to the executor that runs its statements and
// the ledger that records what was applied.
type Store struct {
	Kind     schema.StoreKind
	Executor schema.Executor
	Ledger   schema.Ledger
}

// Config holds the settings of a Keystone instance.
type Config struct {
	// Loader resolves the manifest and the scripts it references.
	Loader schema.ResourceLoader

	// Manifest is the manifest resource name. Default: manifest.yaml
	Manifest string

	// Stores lists one entry per store kind the manifest targets.
	Stores []Store

	// QueueSize bounds each lifecycle subscriber's pending events.
	// Default: lifecycle.DefaultQueueSize
	QueueSize uint64

	// ShutdownTimeout bounds how long Stop waits for subscribers to drain.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Loader == nil {
		return fmt.Errorf("%w: resource loader is required", ErrInvalidConfig)
	}
	if len(c.Stores) == 0 {
		return fmt.Errorf("%w: at least one store is required", ErrInvalidConfig)
	}
	seen := make(map[schema.StoreKind]bool, len(c.Stores))
	for _, s := range c.Stores {
		if !s.Kind.Valid() {
			return fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfig, s.Kind)
		}
		if seen[s.Kind] {
			return fmt.Errorf("%w: store %s configured twice", ErrInvalidConfig, s.Kind)
		}
		seen[s.Kind] = true
		if s.Executor == nil {
			return fmt.Errorf("%w: store %s has no executor", ErrInvalidConfig, s.Kind)
		}
		if s.Ledger == nil {
			return fmt.Errorf("%w: store %s has no ledger", ErrInvalidConfig, s.Kind)
		}
	}
	return nil
}
