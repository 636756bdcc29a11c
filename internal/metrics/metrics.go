// Package metrics holds the Prometheus collectors of the booking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BookingsCreated   *prometheus.CounterVec
	BookingsCancelled prometheus.Counter
	FlightSearches    *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "The total number of confirmed bookings",
		}, []string{"flight_type", "cabin_class"}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookings_cancelled_total",
			Help: "The total number of cancelled bookings",
		}),
		FlightSearches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_searches_total",
			Help: "The total number of flight searches",
		}, []string{"flight_type"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
