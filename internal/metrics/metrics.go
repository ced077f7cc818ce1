// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry and the relay's collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	connections prometheus.Gauge
	rooms       prometheus.Gauge
	events      *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	deliveries  prometheus.Counter
	dropped     prometheus.Counter
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gossipgrid_connections",
			Help: "Number of active connections",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gossipgrid_rooms",
			Help: "Number of rooms with at least one member",
		}),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gossipgrid_events_total",
				Help: "Total number of inbound events handled",
			},
			[]string{"event"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gossipgrid_rejected_frames_total",
				Help: "Total number of inbound frames rejected at the boundary",
			},
			[]string{"reason"},
		),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gossipgrid_deliveries_total",
			Help: "Total number of frames queued for a connection",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gossipgrid_dropped_deliveries_total",
			Help: "Total number of frames dropped because a connection was gone or too slow",
		}),
	}

	m.registry.MustRegister(
		m.connections,
		m.rooms,
		m.events,
		m.rejected,
		m.deliveries,
		m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetConnections records the presence count.
func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

// SetRooms records the number of rooms.
func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

// EventHandled counts an inbound event by name.
func (m *Metrics) EventHandled(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

// FrameRejected counts a rejected inbound frame by reason.
func (m *Metrics) FrameRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Delivered counts a frame queued for a connection.
func (m *Metrics) Delivered() {
	if m == nil {
		return
	}
	m.deliveries.Inc()
}

// Dropped counts a frame that could not be queued.
func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
