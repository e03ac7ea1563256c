// Package metrics exposes replay counters on a private prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "replayer"

// Metrics holds every counter the replayer updates.
type Metrics struct {
	registry *prometheus.Registry

	replays        *prometheus.CounterVec
	interference   prometheus.Counter
	postponements  *prometheus.CounterVec
	alarms         *prometheus.CounterVec
	recordedEvents *prometheus.CounterVec
	replayDuration prometheus.Histogram
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Replays by outcome.",
		}, []string{"outcome"}),
		interference: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interference_total",
			Help:      "Replays interrupted by user activity.",
		}),
		postponements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiet_postponements_total",
			Help:      "Quiet-period windows invalidated by activity.",
		}, []string{"reason"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_notifications_total",
			Help:      "Alarm notifications by result.",
		}, []string{"result"}),
		recordedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorded_events_total",
			Help:      "Events captured while recording, by strategy.",
		}, []string{"strategy"}),
		replayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_duration_seconds",
			Help:      "Wall time spent in a single replay.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	m.registry.MustRegister(m.replays, m.interference, m.postponements, m.alarms, m.recordedEvents, m.replayDuration)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveReplay counts a finished replay.
func (m *Metrics) ObserveReplay(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.replays.WithLabelValues(outcome).Inc()
	m.replayDuration.Observe(took.Seconds())
	if outcome == "interrupted" {
		m.interference.Inc()
	}
}

// ObservePostponement counts a quiet-period restart.
func (m *Metrics) ObservePostponement(reason string) {
	if m == nil {
		return
	}
	m.postponements.WithLabelValues(reason).Inc()
}

// ObserveAlarm counts a notification attempt.
func (m *Metrics) ObserveAlarm(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.alarms.WithLabelValues(result).Inc()
}

// ObserveRecording counts captured events.
func (m *Metrics) ObserveRecording(strategy string, events int) {
	if m == nil {
		return
	}
	m.recordedEvents.WithLabelValues(strategy).Add(float64(events))
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics server forced to shutdown")
		}
		return nil
	}
}
