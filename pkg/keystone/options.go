package keystone

import (
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
)

// Option configures optional behavior of Keystone.
type Option func(*options)

type subscriber struct {
	name    string
	handler lifecycle.Handler
}

type options struct {
	logger         log.Logger
	clock          clock.Clock
	plugins        []Plugin
	subscribers    []subscriber
	registry       *prometheus.Registry
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		clock:  clock.WallClock,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithClock sets the clock used for event and ledger timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithPlugin registers a plugin to be initialized when Keystone starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithSubscriber registers a lifecycle event handler. It is subscribed to
// the dispatcher on Start and receives events asynchronously.
func WithSubscriber(name string, handler lifecycle.Handler) Option {
	return func(o *options) {
		o.subscribers = append(o.subscribers, subscriber{name: name, handler: handler})
	}
}

// WithMetricsRegistry registers the instance's collector with reg instead
// of a private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithTracerProvider sets the tracer provider for schema spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
