package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

//nolint:gochecknoglobals // Collectors are registered once per process.
var (
	adapterCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telelingo_adapter_calls_total",
			Help: "Total number of adapter calls by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	adapterCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telelingo_adapter_call_duration_seconds",
			Help:    "Duration of adapter calls in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"operation"},
	)

	adapterInputSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telelingo_adapter_input_size_bytes",
			Help:    "Size of adapter input text in bytes",
			Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 20000},
		},
		[]string{"operation"},
	)

	translationSessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telelingo_translation_sessions_created_total",
			Help: "Total number of translation sessions created",
		},
	)

	translationSessionsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telelingo_translation_sessions_cached",
			Help: "Number of translation sessions currently cached",
		},
	)

	capabilityAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "telelingo_capability_available",
			Help: "Whether a capability was available at the last probe (1) or not (0)",
		},
		[]string{"capability"},
	)
)

// ObserveCall records one adapter call.
func ObserveCall(operation string, status string, inputSize int, duration time.Duration) {
	adapterCallsTotal.WithLabelValues(operation, status).Inc()
	adapterCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	adapterInputSize.WithLabelValues(operation).Observe(float64(inputSize))
}

func IncSessionsCreated() {
	translationSessionsCreated.Inc()
}

func SetSessionsCached(n int) {
	translationSessionsCached.Set(float64(n))
}

// Reporter publishes capability availability as a gauge.
type Reporter struct{}

func (Reporter) SetCapability(name string, available bool) {
	value := 0.0
	if available {
		value = 1
	}
	capabilityAvailable.WithLabelValues(name).Set(value)
}

// Serve exposes /metrics and /healthz on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.InfoContext(ctx, "Metrics server is started",
		"addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
