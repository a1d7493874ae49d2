// Package metrics exposes schema and lifecycle activity as prometheus
// metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/schema"
)

const metricsNamespace = "keystone"

// ComponentLister reports every tracked component.
type ComponentLister interface {
	Snapshot() []lifecycle.ComponentState
}

// Collector is a prometheus.Collector fed by lifecycle events, dispatcher
// failures and schema apply results. Component counts are read from the
// registry at collection time.
type Collector struct {
	mu     sync.RWMutex
	lister ComponentLister

	transitions   *prometheus.CounterVec
	components    *prometheus.Desc
	dropped       *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	applies       *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Accepted lifecycle transitions by component kind and target status.",
			}, []string{"kind", "status"},
		),
		components: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "lifecycle", "components"),
			"Components currently in each status.",
			[]string{"kind", "status"}, nil,
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lifecycle",
				Name:      "events_dropped_total",
				Help:      "Events dropped because a subscriber queue was full.",
			}, []string{"subscriber"},
		),
		handlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lifecycle",
				Name:      "handler_errors_total",
				Help:      "Events a subscriber failed to handle.",
			}, []string{"subscriber"},
		),
		applies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "schema",
				Name:      "artifacts_total",
				Help:      "Schema artifacts processed by store and outcome.",
			}, []string{"store", "outcome"},
		),
		applyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "schema",
				Name:      "apply_duration_seconds",
				Help:      "Time spent applying one schema artifact.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			}, []string{"store"},
		),
	}
}

// WatchComponents sets the source of the components gauge.
func (c *Collector) WatchComponents(l ComponentLister) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lister = l
}

// HandleEvent implements lifecycle.Handler.
func (c *Collector) HandleEvent(ev lifecycle.Event) error {
	c.transitions.WithLabelValues(ev.Identity.Kind, ev.Current.String()).Inc()
	return nil
}

// OnDropped implements lifecycle.DispatchObserver.
func (c *Collector) OnDropped(subscriber string, _ lifecycle.Event) {
	c.dropped.WithLabelValues(subscriber).Inc()
}

// OnHandlerError implements lifecycle.DispatchObserver.
func (c *Collector) OnHandlerError(subscriber string, _ lifecycle.Event, _ error) {
	c.handlerErrors.WithLabelValues(subscriber).Inc()
}

// OnApply implements schema.Observer.
func (c *Collector) OnApply(res schema.ApplyResult) {
	store := res.Store.String()
	c.applies.WithLabelValues(store, res.Outcome.String()).Inc()
	if res.Outcome != schema.Skipped {
		c.applyDuration.WithLabelValues(store).Observe(res.Duration.Seconds())
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.transitions.Describe(ch)
	ch <- c.components
	c.dropped.Describe(ch)
	c.handlerErrors.Describe(ch)
	c.applies.Describe(ch)
	c.applyDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.transitions.Collect(ch)
	c.collectComponents(ch)
	c.dropped.Collect(ch)
	c.handlerErrors.Collect(ch)
	c.applies.Collect(ch)
	c.applyDuration.Collect(ch)
}

// collectComponents emits every status of each kind seen, zeros included.
func (c *Collector) collectComponents(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	lister := c.lister
	c.mu.RUnlock()
	if lister == nil {
		return
	}

	counts := make(map[string]map[lifecycle.Status]int)
	for _, s := range lister.Snapshot() {
		kind := s.Identity.Kind
		if counts[kind] == nil {
			counts[kind] = make(map[lifecycle.Status]int)
		}
		counts[kind][s.Status]++
	}
	for kind, byStatus := range counts {
		for _, status := range lifecycle.AllStatuses {
			ch <- prometheus.MustNewConstMetric(c.components, prometheus.GaugeValue,
				float64(byStatus[status]), kind, status.String())
		}
	}
}
