package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements core.Metrics with Prometheus collectors registered on
// the server's own registry.
type Metrics struct {
	TicksTotal            prometheus.Counter
	TransitionsTotal      *prometheus.CounterVec
	PlaybackFailuresTotal prometheus.Counter
	SearchFailuresTotal   *prometheus.CounterVec
	PreloadsTotal         *prometheus.CounterVec
	RefillTracksTotal     prometheus.Counter
	ScheduleSize          prometheus.Gauge
	RequestsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(registry)
}

func newMetrics(registry *prometheus.Registry) *Metrics {
	metrics := &Metrics{
		TicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aidj_ticks_total",
				Help: "Total number of reconciliation passes",
			},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidj_transitions_total",
				Help: "Total number of applied schedule transitions",
			},
			[]string{"source"},
		),
		PlaybackFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aidj_playback_failures_total",
				Help: "Total number of transitions rolled back after a failed play command",
			},
		),
		SearchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidj_search_failures_total",
				Help: "Total number of failed catalog lookups",
			},
			[]string{"kind"},
		),
		PreloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidj_preloads_total",
				Help: "Total number of finished preloads by outcome",
			},
			[]string{"outcome"},
		),
		RefillTracksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aidj_refill_tracks_total",
				Help: "Total number of tracks appended to the queue by refills",
			},
		),
		ScheduleSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aidj_schedule_size",
				Help: "Current number of schedule entries",
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidj_requests_total",
				Help: "Total number of natural-language schedule requests",
			},
			[]string{"status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		metrics.TicksTotal,
		metrics.TransitionsTotal,
		metrics.PlaybackFailuresTotal,
		metrics.SearchFailuresTotal,
		metrics.PreloadsTotal,
		metrics.RefillTracksTotal,
		metrics.ScheduleSize,
		metrics.RequestsTotal,
	)

	return metrics
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordTick() {
	m.TicksTotal.Inc()
}

func (m *Metrics) RecordTransition(source string) {
	m.TransitionsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordPlaybackFailure() {
	m.PlaybackFailuresTotal.Inc()
}

func (m *Metrics) RecordSearchFailure(kind string) {
	m.SearchFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPreload(outcome string) {
	m.PreloadsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRefill(added int) {
	m.RefillTracksTotal.Add(float64(added))
}

func (m *Metrics) SetScheduleSize(size int) {
	m.ScheduleSize.Set(float64(size))
}

func (m *Metrics) recordRequest(status string) {
	m.RequestsTotal.WithLabelValues(status).Inc()
}
