package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the session lifecycle metrics.  A nil *Collectors is
// valid and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	opened       *prometheus.CounterVec
	closed       *prometheus.CounterVec
	openRejected *prometheus.CounterVec
	occupancy    *prometheus.GaugeVec
	revenue      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "sessions_opened_total",
			Help:      "Parking sessions opened, by stand.",
		}, []string{"stand"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "sessions_closed_total",
			Help:      "Parking sessions closed, by stand and outcome.",
		}, []string{"stand", "outcome"}),
		openRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "session_open_rejected_total",
			Help:      "Rejected session opens, by reason.",
		}, []string{"reason"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parking",
			Name:      "stand_occupancy",
			Help:      "Current occupancy of a stand as last observed.",
		}, []string{"stand"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "revenue_total",
			Help:      "Charged amounts of completed sessions, by currency.",
		}, []string{"currency"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.opened, c.closed, c.openRejected, c.occupancy, c.revenue,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) SessionOpened(stand string, occupancy int) {
	if c == nil {
		return
	}
	c.opened.WithLabelValues(stand).Inc()
	c.occupancy.WithLabelValues(stand).Set(float64(occupancy))
}

func (c *Collectors) SessionClosed(stand, outcome string, occupancy int) {
	if c == nil {
		return
	}
	c.closed.WithLabelValues(stand, outcome).Inc()
	c.occupancy.WithLabelValues(stand).Set(float64(occupancy))
}

func (c *Collectors) OpenRejected(reason string) {
	if c == nil {
		return
	}
	c.openRejected.WithLabelValues(reason).Inc()
}

func (c *Collectors) Occupancy(stand string, occupancy int) {
	if c == nil {
		return
	}
	c.occupancy.WithLabelValues(stand).Set(float64(occupancy))
}

func (c *Collectors) Revenue(currency string, amount float64) {
	if c == nil || amount <= 0 {
		return
	}
	c.revenue.WithLabelValues(currency).Add(amount)
}
