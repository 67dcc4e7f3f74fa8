package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(apiRequests.WithLabelValues("bookings.my", "200"))
	ObserveRequest("bookings.my", 200)
	ObserveRequest("bookings.my", 200)
	assert.Equal(t, before+2, testutil.ToFloat64(apiRequests.WithLabelValues("bookings.my", "200")))
}

func TestIncBookingAction(t *testing.T) {
	before := testutil.ToFloat64(bookingActions.WithLabelValues("cancel", "success"))
	IncBookingAction("cancel", "success")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingActions.WithLabelValues("cancel", "success")))
}
