package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "handyhub",
			Name:      "api_requests_total",
			Help:      "Count of API calls by endpoint and HTTP status (0 for transport failures).",
		},
		[]string{"endpoint", "status"},
	)

	bookingActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "handyhub",
			Name:      "booking_actions_total",
			Help:      "Count of booking actions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, bookingActions)
	})
}

// ObserveRequest counts one API call. Its signature matches client.Observer.
func ObserveRequest(endpoint string, status int) {
	apiRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// IncBookingAction counts one executed booking action.
func IncBookingAction(action, outcome string) {
	bookingActions.WithLabelValues(action, outcome).Inc()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr does nothing.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
