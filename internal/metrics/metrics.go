package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinic"

// Collector groups the service's prometheus collectors. All Observe methods
// are safe on a nil receiver so tests and tools can skip metrics entirely.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge

	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	notifyQueueDepth   prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome.",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by policy and outcome.",
		}, []string{"policy", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "events_total",
			Help:      "Webhook events by result (delivered, failed, dropped).",
		}, []string{"event", "result"}),
		notifyQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "queue_depth",
			Help:      "Events waiting for a webhook worker.",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.inFlight,
		c.bookingsTotal,
		c.cancellationsTotal,
		c.notificationsTotal,
		c.notifyQueueDepth,
	)
	return c
}

func (c *Collector) ObserveRequest(method, route, status string, seconds float64) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, route, status).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (c *Collector) InFlight(delta float64) {
	if c == nil {
		return
	}
	c.inFlight.Add(delta)
}

func (c *Collector) ObserveBooking(outcome string) {
	if c == nil {
		return
	}
	c.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCancellation(policy, outcome string) {
	if c == nil {
		return
	}
	c.cancellationsTotal.WithLabelValues(policy, outcome).Inc()
}

func (c *Collector) ObserveNotification(event, result string) {
	if c == nil {
		return
	}
	c.notificationsTotal.WithLabelValues(event, result).Inc()
}

func (c *Collector) SetNotifyQueueDepth(n int) {
	if c == nil {
		return
	}
	c.notifyQueueDepth.Set(float64(n))
}

// Handler serves the registry in the prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
