// Package healthserver serves liveness, readiness and metrics endpoints for
// a running keystone. The instance is ready once every artifact of the
// install profile is recorded as applied with a matching checksum.
package healthserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/keystone/pkg/keystone"
	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
)

// Endpoint paths.
const (
	LivePath    = "/live"
	ReadyPath   = "/ready"
	MetricsPath = "/metrics"
)

// Config holds configuration options for the health server plugin.
type Config struct {
	// Addr is the listen address. The plugin is disabled when empty.
	Addr string

	// ReadinessTimeout bounds one readiness evaluation.
	// Default: 5 seconds
	ReadinessTimeout time.Duration

	// MaxGoroutines fails the liveness check above this count.
	// Default: 10000
	MaxGoroutines int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:             ":9464",
		ReadinessTimeout: 5 * time.Second,
		MaxGoroutines:    10000,
	}
}

// Plugin runs the HTTP server.
type Plugin struct {
	addr             string
	readinessTimeout time.Duration
	maxGoroutines    int

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	logger   log.Logger
	wg       sync.WaitGroup
}

// New creates a new health server plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = 5 * time.Second
	}
	if cfg.MaxGoroutines <= 0 {
		cfg.MaxGoroutines = 10000
	}
	return &Plugin{
		addr:             cfg.Addr,
		readinessTimeout: cfg.ReadinessTimeout,
		maxGoroutines:    cfg.MaxGoroutines,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "healthserver"
}

// Initialize binds the listen address and starts serving.
func (p *Plugin) Initialize(ctx context.Context, cfg keystone.PluginConfig) error {
	p.logger = log.With(log.OrNoop(cfg.Logger), log.String("plugin", p.Name()))

	if p.addr == "" {
		p.logger.Warn("health server disabled: no listen address configured")
		return nil
	}

	handler := p.newHandler(ctx, cfg.Plan, cfg.Gatherer)

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("healthserver: listen %s: %w", p.addr, err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.mu.Lock()
	p.server = server
	p.listener = ln
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("health server stopped", log.Err(err))
		}
	}()

	p.logger.Info("health server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx
// expires.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	server := p.server
	p.mu.Unlock()

	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	p.wg.Wait()
	return err
}

// Addr returns the bound listen address, or "" before Initialize.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

func (p *Plugin) newHandler(ctx context.Context, plan func(context.Context) ([]schema.PlanEntry, error), gatherer prometheus.Gatherer) http.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(p.maxGoroutines))
	if plan != nil {
		health.AddReadinessCheck("schema", healthcheck.Timeout(func() error {
			return checkSchema(ctx, plan)
		}, p.readinessTimeout))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(LivePath, health.LiveEndpoint)
	mux.HandleFunc(ReadyPath, health.ReadyEndpoint)
	if gatherer != nil {
		mux.Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// checkSchema fails unless every planned artifact is applied with a
// matching checksum.
func checkSchema(ctx context.Context, plan func(context.Context) ([]schema.PlanEntry, error)) error {
	entries, err := plan(ctx)
	if err != nil {
		return fmt.Errorf("plan schema: %w", err)
	}
	if schema.Ready(entries) {
		return nil
	}

	var pending, conflicting []string
	for _, e := range entries {
		switch e.Status {
		case schema.Absent:
			pending = append(pending, e.Artifact)
		case schema.AppliedConflicting:
			conflicting = append(conflicting, e.Artifact)
		}
	}
	var parts []string
	if len(pending) > 0 {
		parts = append(parts, "pending: "+strings.Join(pending, ", "))
	}
	if len(conflicting) > 0 {
		parts = append(parts, "conflicting: "+strings.Join(conflicting, ", "))
	}
	return fmt.Errorf("schema not ready (%s)", strings.Join(parts, "; "))
}

// Ensure Plugin implements keystone.Plugin.
var _ keystone.Plugin = (*Plugin)(nil)
