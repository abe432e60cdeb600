// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "booksphere"

// Registry is the registry served on /metrics.  It is separate from the
// default registry so tests can build several servers in one process.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Booking ledger metrics
var (
	BookingsCreated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of bookings created",
		},
	)

	BookingConflicts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the user already booked the event",
		},
	)

	BookingsCancelled = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "Total number of bookings cancelled by their owner",
		},
	)

	// BookingEventsPublished counts domain events by routing key and outcome.
	BookingEventsPublished = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_published_total",
			Help:      "Booking domain events handed to the broker",
		},
		[]string{"type", "result"},
	)
)

// LoginAttempts counts logins by result: success, unknown_user,
// bad_password, disabled.
var LoginAttempts = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by result",
	},
	[]string{"result"},
)

// CacheLookups counts response cache lookups by result (hit, miss, error).
var CacheLookups = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups by result",
	},
	[]string{"result"},
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)
