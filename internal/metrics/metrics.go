package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinal_threads"

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	syncRequested *prometheus.CounterVec
	syncEnqueued  prometheus.Counter
	syncErrors    *prometheus.CounterVec
	syncPublished prometheus.Counter
	syncApplied   *prometheus.CounterVec
	commands      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_transitions_total",
			Help:      "Thread state operations applied, by operation.",
		}, []string{"operation"}),
		syncRequested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_requests_total",
			Help:      "Sync requests seen by the gate, by change kind and outcome.",
		}, []string{"kind", "outcome"}),
		syncEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_enqueued_total",
			Help:      "Sync records handed to the sync service after commit.",
		}),
		syncErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_errors_total",
			Help:      "Sync failures, by stage.",
		}, []string{"stage"}),
		syncPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_published_total",
			Help:      "Sync records published to other devices.",
		}),
		syncApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_received_total",
			Help:      "Sync envelopes received from the account channel, by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed through the bus, by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.syncRequested,
		m.syncEnqueued,
		m.syncErrors,
		m.syncPublished,
		m.syncApplied,
		m.commands,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Transition(operation string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation).Inc()
}

func (m *Metrics) SyncRequested(kind string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "dropped"
	if accepted {
		outcome = "accepted"
	}
	m.syncRequested.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SyncEnqueued() {
	if m == nil {
		return
	}
	m.syncEnqueued.Inc()
}

// SyncError counts a failure at stage (enqueue, publish, apply).
func (m *Metrics) SyncError(stage string) {
	if m == nil {
		return
	}
	m.syncErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) SyncPublished() {
	if m == nil {
		return
	}
	m.syncPublished.Inc()
}

func (m *Metrics) SyncReceived(outcome string) {
	if m == nil {
		return
	}
	m.syncApplied.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Command(commandType string, ok bool) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.commands.WithLabelValues(commandType, outcome).Inc()
}
