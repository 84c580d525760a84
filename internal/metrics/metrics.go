// Package metrics expõe os contadores do chat no formato Prometheus.
//
// Todos os métodos aceitam receptor nil, para que os componentes funcionem
// sem métricas nos testes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fishingchat"

type Metrics struct {
	registry *prometheus.Registry

	connections prometheus.Gauge
	sessions    prometheus.Gauge
	events      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	broadcasts  prometheus.Counter
	deliveries  prometheus.Counter
	skipped     prometheus.Counter
	evictions   prometheus.Counter
	catches     *prometheus.CounterVec
	goldEarned  prometheus.Counter
	storeErrors prometheus.Counter
	relayErrors prometheus.Counter
}

// New cria um registry próprio com os coletores do processo e do Go.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Open websocket connections.",
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions",
			Help: "Joined sessions.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_total",
			Help: "Inbound events routed, by type.",
		}, []string{"type"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_dropped_total",
			Help: "Inbound events dropped, by reason.",
		}, []string{"reason"}),
		broadcasts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "broadcasts_total",
			Help: "Room broadcasts.",
		}),
		deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_total",
			Help: "Frames queued to room members.",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_skipped_total",
			Help: "Room members skipped because closed or backed up.",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "evictions_total",
			Help: "Connections evicted by a newer connection with the same identity.",
		}),
		catches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "catches_total",
			Help: "Items caught, by item.",
		}, []string{"item"}),
		goldEarned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "gold_earned_total",
			Help: "Gold earned from sales.",
		}),
		storeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_errors_total",
			Help: "Failed persistence writes.",
		}),
		relayErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "relay_errors_total",
			Help: "Failed relay publishes.",
		}),
	}
}

// Handler serve o endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry é usado nos testes para coletar valores.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.sessions.Set(float64(n))
	}
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Broadcast(delivered, skipped int) {
	if m != nil {
		m.broadcasts.Inc()
		m.deliveries.Add(float64(delivered))
		m.skipped.Add(float64(skipped))
	}
}

func (m *Metrics) Eviction() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *Metrics) Catch(item string) {
	if m != nil {
		m.catches.WithLabelValues(item).Inc()
	}
}

func (m *Metrics) GoldEarned(n int64) {
	if m != nil && n > 0 {
		m.goldEarned.Add(float64(n))
	}
}

func (m *Metrics) StoreError(error) {
	if m != nil {
		m.storeErrors.Inc()
	}
}

func (m *Metrics) RelayError() {
	if m != nil {
		m.relayErrors.Inc()
	}
}
