package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveBooking("booked")
	c.ObserveBooking("booked")
	c.ObserveBooking("conflict")
	c.ObserveCancellation("soft", "cancelled")
	c.ObserveNotification("booked", "delivered")
	c.ObserveRequest("POST", "/book_appointment", "200", 0.02)
	c.SetNotifyQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.bookingsTotal.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bookingsTotal.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cancellationsTotal.WithLabelValues("soft", "cancelled")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.notifyQueueDepth))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveBooking("booked")
	c.ObserveCancellation("hard", "not_found")
	c.ObserveNotification("cancelled", "dropped")
	c.ObserveRequest("GET", "/", "200", 0)
	c.InFlight(1)
	c.SetNotifyQueueDepth(1)
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveBooking("booked")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "clinic_booking_bookings_total"))
}
