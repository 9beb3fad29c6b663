// Package metrics exposes Prometheus metrics for relays, membership
// announcements and the daily broadcast.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay results.
const (
	ResultSuccess         = "success"
	ResultFetchFailed     = "fetch_failed"
	ResultTranscodeFailed = "transcode_failed"
	ResultUploadFailed    = "upload_failed"
	ResultDeleteFailed    = "delete_failed"
	ResultFailed          = "failed"
)

// Collector groups every metric the bot records. Each Collector owns its own
// registry so tests can create as many as they like.
type Collector struct {
	Registry *prometheus.Registry

	Events            *prometheus.CounterVec // kind
	Relays            *prometheus.CounterVec // result
	RelayDuration     prometheus.Histogram
	TranscodeDuration prometheus.Histogram
	CleanupFailures   prometheus.Counter
	Announcements     *prometheus.CounterVec // result
	DailyDeliveries   *prometheus.CounterVec // result
	InFlight          prometheus.Gauge
}

// New creates a collector with Go runtime and process collectors registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		Registry: reg,
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webmbot_events_total",
			Help: "Inbound events received, by kind",
		}, []string{"kind"}),
		Relays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webmbot_relays_total",
			Help: "Attachment relays attempted, by result",
		}, []string{"result"}),
		RelayDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "webmbot_relay_duration_seconds",
			Help:    "End-to-end relay duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		TranscodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "webmbot_transcode_duration_seconds",
			Help:    "External transcoder run time in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		CleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "webmbot_cleanup_failures_total",
			Help: "Temporary files that could not be removed",
		}),
		Announcements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webmbot_membership_announcements_total",
			Help: "Membership announcements sent, by result",
		}, []string{"result"}),
		DailyDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webmbot_daily_deliveries_total",
			Help: "Daily notifications delivered to subscribers, by result",
		}, []string{"result"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "webmbot_events_in_flight",
			Help: "Events currently being handled",
		}),
	}
}

// Handler renders the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}

// Since observes the seconds elapsed from start.
func Since(obs prometheus.Observer, start time.Time) {
	obs.Observe(time.Since(start).Seconds())
}

// Serve exposes the collector on addr at path until ctx is cancelled.
func Serve(ctx context.Context, addr, path string, c *Collector, logger *slog.Logger) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
