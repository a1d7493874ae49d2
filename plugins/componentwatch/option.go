package componentwatch

import "github.com/bft-labs/keystone/pkg/keystone"

// WithComponentWatch returns a keystone Option that mirrors the descriptors
// in cfg.Dir into the lifecycle registry.
//
// Usage:
//
//	k, err := keystone.New(cfg,
//	    componentwatch.WithComponentWatch(componentwatch.Config{
//	        Dir:           "/etc/keystone/components",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithComponentWatch(cfg Config) keystone.Option {
	return keystone.WithPlugin(New(cfg))
}
