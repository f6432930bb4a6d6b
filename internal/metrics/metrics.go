package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mavrell/drumbeat/pkg/agent"
)

// Metrics holds all Prometheus metrics for a run
type Metrics struct {
	registry *prometheus.Registry

	SendsTotal       *prometheus.CounterVec
	SendRetriesTotal *prometheus.CounterVec
	SkipsTotal       *prometheus.CounterVec
	ReconnectsTotal  *prometheus.CounterVec
	RotationsTotal   *prometheus.CounterVec
	SendDuration     prometheus.Histogram
	AgentsActive     prometheus.Gauge
	CorpusSize       prometheus.Gauge
}

// New creates and registers all metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drumbeat_sends_total",
			Help: "Messages successfully submitted, per agent",
		}, []string{"agent"}),
		SendRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drumbeat_send_retries_total",
			Help: "In-place send retries, per agent",
		}, []string{"agent"}),
		SkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drumbeat_skips_total",
			Help: "Iterations skipped because the surface was not interactable, per agent",
		}, []string{"agent"}),
		ReconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drumbeat_reconnects_total",
			Help: "Connections recreated from scratch after exhausted retries, per agent",
		}, []string{"agent"}),
		RotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drumbeat_rotations_total",
			Help: "Connection rotations, per agent and mode (promote or reload)",
		}, []string{"agent", "mode"}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "drumbeat_send_duration_seconds",
			Help:    "Time from first attempt to successful submission",
			Buckets: prometheus.DefBuckets,
		}),
		AgentsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "drumbeat_agents_active",
			Help: "Agents currently running",
		}),
		CorpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "drumbeat_corpus_size",
			Help: "Number of messages in the corpus",
		}),
	}

	registry.MustRegister(
		m.SendsTotal,
		m.SendRetriesTotal,
		m.SkipsTotal,
		m.ReconnectsTotal,
		m.RotationsTotal,
		m.SendDuration,
		m.AgentsActive,
		m.CorpusSize,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe implements agent.Sink by translating runtime events into
// counter increments
func (m *Metrics) Observe(ev agent.Event) {
	id := strconv.Itoa(ev.Agent)

	switch ev.Kind {
	case agent.EventStarted:
		m.AgentsActive.Inc()
	case agent.EventStopped:
		m.AgentsActive.Dec()
	case agent.EventSent:
		m.SendsTotal.WithLabelValues(id).Inc()
		m.SendDuration.Observe(ev.Elapsed.Seconds())
	case agent.EventRetry:
		m.SendRetriesTotal.WithLabelValues(id).Inc()
	case agent.EventSkip:
		m.SkipsTotal.WithLabelValues(id).Inc()
	case agent.EventReconnect:
		m.ReconnectsTotal.WithLabelValues(id).Inc()
	case agent.EventRotatePromote:
		m.RotationsTotal.WithLabelValues(id, "promote").Inc()
	case agent.EventRotateReload:
		m.RotationsTotal.WithLabelValues(id, "reload").Inc()
	}
}

// Sink returns an agent.Sink backed by this registry
func (m *Metrics) Sink() agent.Sink {
	return agent.SinkFunc(m.Observe)
}
