package keystone

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/keystone/internal/metrics"
	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
)

// Subscriber names used for the built-in lifecycle handlers.
const (
	AuditSubscriber   = "audit"
	MetricsSubscriber = "metrics"
)

// Keystone coordinates schema installation and component lifecycles.
// Use New to create an instance. Install, Upgrade and Plan work in any
// state; Start brings up the lifecycle subscribers and plugins.
type Keystone struct {
	config       Config
	opts         options
	logger       log.Logger
	manifest     *schema.Manifest
	orchestrator *schema.Orchestrator
	dispatcher   *lifecycle.Dispatcher
	registry     *lifecycle.Registry
	gatherer     prometheus.Gatherer
	metrics      *metrics.Collector
	state        *runState

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe []func()
	closed      bool
}

// New creates a Keystone instance. It loads and validates the manifest but
// touches no store. The instance is created in StateStopped.
func New(cfg Config, opts ...Option) (*Keystone, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	manifest, err := schema.LoadManifest(cfg.Loader, cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	collector := metrics.NewCollector()
	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if err := reg.Register(collector); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	schemaOpts := []schema.Option{
		schema.WithLogger(logger),
		schema.WithObserver(collector),
		schema.WithClock(o.clock),
		schema.WithTracerProvider(o.tracerProvider),
	}
	appliers := make([]*schema.Applier, 0, len(cfg.Stores))
	for _, s := range cfg.Stores {
		appliers = append(appliers, schema.NewApplier(s.Kind, s.Executor, s.Ledger, schemaOpts...))
	}
	orchestrator := schema.NewOrchestrator(manifest, schema.NewSource(cfg.Loader), appliers, schemaOpts...)

	dispatcher := lifecycle.NewDispatcher(lifecycle.DispatcherConfig{QueueSize: cfg.QueueSize}, logger)
	dispatcher.SetObserver(collector)
	registry := lifecycle.NewRegistry(dispatcher,
		lifecycle.WithLogger(logger),
		lifecycle.WithClock(o.clock),
	)
	collector.WatchComponents(registry)

	return &Keystone{
		config:       cfg,
		opts:         o,
		logger:       logger,
		manifest:     manifest,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		registry:     registry,
		gatherer:     reg,
		metrics:      collector,
		state:        newRunState(logger),
	}, nil
}

// Install applies every manifest artifact not yet recorded in its ledger.
func (k *Keystone) Install(ctx context.Context) (schema.Report, error) {
	return k.Run(ctx, schema.ProfileInstall)
}

// Upgrade applies, per store, the artifacts newer than the store's latest
// applied version.
func (k *Keystone) Upgrade(ctx context.Context) (schema.Report, error) {
	return k.Run(ctx, schema.ProfileUpgrade)
}

// Run applies the artifacts selected by profile. The runtime profile is
// refused.
func (k *Keystone) Run(ctx context.Context, profile schema.Profile) (schema.Report, error) {
	return k.orchestrator.Run(ctx, profile)
}

// Plan reports the ledger status of every artifact profile would select.
func (k *Keystone) Plan(ctx context.Context, profile schema.Profile) ([]schema.PlanEntry, error) {
	return k.orchestrator.Plan(ctx, profile)
}

// Manifest returns the loaded manifest.
func (k *Keystone) Manifest() *schema.Manifest {
	return k.manifest
}

// Registry returns the component lifecycle registry. Transitions may be
// requested in any state; events are delivered to subscribers once the
// instance is started.
func (k *Keystone) Registry() *lifecycle.Registry {
	return k.registry
}

// Gatherer returns the registry holding the instance's metrics.
func (k *Keystone) Gatherer() prometheus.Gatherer {
	return k.gatherer
}

// Status returns the current runtime state.
// Safe to call concurrently from any goroutine.
func (k *Keystone) Status() State {
	return k.state.get()
}

// Start subscribes the lifecycle handlers and initializes plugins.
// A stopped instance cannot be started again.
func (k *Keystone) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return ErrClosed
	}
	if !k.state.canStart() {
		return ErrAlreadyRunning
	}

	if err := k.state.transitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel

	if err := k.subscribeAll(); err != nil {
		k.unsubscribeAll()
		cancel()
		_ = k.state.transitionTo(StateCrashed, "subscribe failed")
		return err
	}

	pluginCfg := PluginConfig{
		Registry: k.registry,
		Plan: func(ctx context.Context) ([]schema.PlanEntry, error) {
			return k.orchestrator.Plan(ctx, schema.ProfileInstall)
		},
		Gatherer: k.gatherer,
		Logger:   k.logger,
	}
	for i, p := range k.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			k.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			k.shutdownPlugins(context.Background(), k.opts.plugins[:i])
			k.unsubscribeAll()
			cancel()
			_ = k.state.transitionTo(StateCrashed, "plugin init failed: "+p.Name())
			return fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		k.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	return k.state.transitionTo(StateRunning, "plugins initialized")
}

// Stop shuts plugins down in reverse order, then waits up to
// Config.ShutdownTimeout for subscribers to drain their queues.
// Returns nil on graceful shutdown or the drain error if forced.
func (k *Keystone) Stop(ctx context.Context) error {
	k.mu.Lock()

	if !k.state.canStop() {
		k.mu.Unlock()
		return ErrNotRunning
	}

	if err := k.state.transitionTo(StateStopping, "Stop() called"); err != nil {
		k.mu.Unlock()
		return err
	}

	if k.cancel != nil {
		k.cancel()
	}
	k.closed = true

	k.mu.Unlock()

	k.shutdownPlugins(ctx, k.opts.plugins)

	drainCtx, cancel := context.WithTimeout(ctx, k.config.ShutdownTimeout)
	defer cancel()

	if err := k.dispatcher.Close(drainCtx); err != nil {
		_ = k.state.transitionTo(StateCrashed, "shutdown timeout")
		return fmt.Errorf("drain lifecycle subscribers: %w", err)
	}

	_ = k.state.transitionTo(StateStopped, "graceful shutdown")
	return nil
}

func (k *Keystone) subscribeAll() error {
	subs := append([]subscriber{
		{name: AuditSubscriber, handler: newAuditHandler(k.logger)},
		{name: MetricsSubscriber, handler: k.metrics},
	}, k.opts.subscribers...)

	for _, s := range subs {
		unsubscribe, err := k.dispatcher.Subscribe(s.name, s.handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", s.name, err)
		}
		k.unsubscribe = append(k.unsubscribe, unsubscribe)
	}
	return nil
}

func (k *Keystone) unsubscribeAll() {
	for _, unsubscribe := range k.unsubscribe {
		unsubscribe()
	}
	k.unsubscribe = nil
}

// shutdownPlugins shuts down plugins in reverse order.
func (k *Keystone) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			k.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			k.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	versions := ModuleVersions()
	for name, minVersion := range CompatibilityMatrix() {
		if !isVersionCompatible(versions[name], minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, versions[name], minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
