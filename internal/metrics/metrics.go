// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ReservationTransitions counts committed lifecycle actions
	// (created, confirmed, cancelled_by_club, ...).
	ReservationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_transitions_total",
			Help: "Committed reservation lifecycle actions",
		},
		[]string{"action"},
	)
	// ReservationRejections counts refused lifecycle requests by reason.
	ReservationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_rejections_total",
			Help: "Reservation requests refused by a booking rule",
		},
		[]string{"reason"},
	)
	AvailabilityFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "availability_failures_total",
		Help: "Availability lookups that failed closed",
	})
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"result"},
	)
	PushSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "FCM push attempts",
		},
		[]string{"result"},
	)
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_clients",
		Help: "Connected websocket clients",
	})
)

// NormalizePath keeps the first two segments of the path so that ids do
// not explode label cardinality ("/v1/clubs/12/availability" -> "v1/clubs").
func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	parts := strings.SplitN(p, "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	p = strings.Join(parts, "/")
	if p == "" {
		return "root"
	}
	return p
}
