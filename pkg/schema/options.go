package schema

import (
	"github.com/juju/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/keystone/pkg/log"
)

const tracerName = "github.com/bft-labs/keystone/pkg/schema"

// Observer is notified of every apply result, including failures.
type Observer interface {
	OnApply(ApplyResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ApplyResult)

// OnApply calls f(r).
func (f ObserverFunc) OnApply(r ApplyResult) {
	f(r)
}

type options struct {
	logger   log.Logger
	observer Observer
	clock    clock.Clock
	tracer   trace.Tracer
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		clock:  clock.WallClock,
		tracer: otel.Tracer(tracerName),
	}
}

// Option configures an Applier or an Orchestrator.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithObserver sets the apply observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithClock sets the clock used for ledger timestamps and durations.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used
// by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
