package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BookingsCreated.WithLabelValues("ONE_WAY", "ECONOMY").Inc()
	m.BookingsCreated.WithLabelValues("ONE_WAY", "ECONOMY").Inc()
	m.BookingsCancelled.Inc()
	m.FlightSearches.WithLabelValues("RETURN").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BookingsCreated.WithLabelValues("ONE_WAY", "ECONOMY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingsCancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlightSearches.WithLabelValues("RETURN")))
}

func TestNew_PanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
