// Package metrics declares the Prometheus collectors exported on
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "park_booking_attempts_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "park_booking_duration_seconds",
			Help:    "Time spent in the booking unit of work",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	bookedTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "park_booked_tickets_total",
			Help: "Tickets confirmed across all events",
		},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "park_booking_publish_failures_total",
			Help: "booking.confirmed messages that could not be published",
		},
	)
)

// ObserveBooking records one booking attempt.  outcome is "confirmed"
// or the failure kind.
func ObserveBooking(outcome string, tickets int, d time.Duration) {
	bookingAttempts.WithLabelValues(outcome).Inc()
	bookingDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == "confirmed" && tickets > 0 {
		bookedTickets.Add(float64(tickets))
	}
}

// PublishFailed counts a lost booking.confirmed notification.
func PublishFailed() { publishFailures.Inc() }
