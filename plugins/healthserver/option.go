package healthserver

import "github.com/bft-labs/keystone/pkg/keystone"

// WithHealthServer returns a keystone Option that serves /live, /ready and
// /metrics on cfg.Addr.
//
// Usage:
//
//	k, err := keystone.New(cfg, healthserver.WithHealthServer(healthserver.DefaultConfig()))
func WithHealthServer(cfg Config) keystone.Option {
	return keystone.WithPlugin(New(cfg))
}
