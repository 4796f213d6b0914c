package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kmirinski/Agent-Based-Simulation/sim"
)

// Collector bundles the Prometheus metrics exposed by the serving layer.
// Values are refreshed from engine statistics after each step, never on the
// dispatch path itself.
type Collector struct {
	registry *prometheus.Registry

	clock             prometheus.Gauge
	pendingEvents     prometheus.Gauge
	eventsProcessed   *prometheus.CounterVec
	completedRequests prometheus.Gauge
	unservedRequests  prometheus.Gauge
	distanceByMode    *prometheus.GaugeVec

	lastEventCounts map[string]int
}

// NewCollector registers the simulation metrics against a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		clock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_clock_ticks",
			Help: "Current simulation time in ticks.",
		}),
		pendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_pending_events",
			Help: "Events still waiting in the queue.",
		}),
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_events_processed_total",
			Help: "Total processed events, labeled by event kind.",
		}, []string{"kind"}),
		completedRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_requests_completed",
			Help: "Requests fulfilled so far.",
		}),
		unservedRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_requests_unserved",
			Help: "Requests that received no offer.",
		}),
		distanceByMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_distance_by_mode",
			Help: "Distance covered so far, labeled by vehicle mode.",
		}, []string{"mode"}),
		lastEventCounts: make(map[string]int),
	}
	c.registry.MustRegister(c.clock, c.pendingEvents, c.eventsProcessed,
		c.completedRequests, c.unservedRequests, c.distanceByMode)
	return c
}

// Gatherer exposes the private registry for the /metrics handler.
func (c *Collector) Gatherer() prometheus.Gatherer { return c.registry }

// Observe refreshes the metrics from the environment. Callers hold the
// server's engine lock.
func (c *Collector) Observe(env *sim.Environment) {
	c.clock.Set(float64(env.Clock))
	c.pendingEvents.Set(float64(env.Queue.Len()))
	c.completedRequests.Set(float64(env.Stats.CompletedRequests))
	c.unservedRequests.Set(float64(env.Stats.UnservedRequests))
	for kind, count := range env.Stats.EventCounts {
		if delta := count - c.lastEventCounts[kind]; delta > 0 {
			c.eventsProcessed.WithLabelValues(kind).Add(float64(delta))
			c.lastEventCounts[kind] = count
		}
	}
	for mode, distance := range env.Stats.DistanceByMode {
		c.distanceByMode.WithLabelValues(string(mode)).Set(distance)
	}
}
