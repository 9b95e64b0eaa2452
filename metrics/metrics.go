// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package metrics exports pipeline activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/pipeline"
)

const namespace = "entitymine"

// Monitor implements pipeline.Monitor on top of a Prometheus registry.
type Monitor struct {
	registry *prometheus.Registry

	runs          prometheus.Counter
	workers       prometheus.Gauge
	queueDepth    *prometheus.GaugeVec
	backpressure  *prometheus.CounterVec
	scored        *prometheus.CounterVec
	scoreLatency  prometheus.Histogram
	failures      prometheus.Counter
	written       prometheus.Counter
	abandoned     prometheus.Counter
	skipped       prometheus.Counter
	lastRunTiming prometheus.Gauge
}

var _ pipeline.Monitor = (*Monitor)(nil)

// NewMonitor creates a Monitor with its own registry.
func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs started",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Scoring workers in the current run",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Candidates waiting in each queue",
		}, []string{"queue"}),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_events_total",
			Help:      "Times the producer found a queue full",
		}, []string{"queue"}),
		scored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_scored_total",
			Help:      "Candidates scored, by outcome",
		}, []string{"outcome"}),
		scoreLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_duration_seconds",
			Help:      "Time spent scoring one candidate",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Workers that exited after an index failure",
		}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_lines_total",
			Help:      "Lines written to the report",
		}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_abandoned_total",
			Help:      "Candidates abandoned after worker failures",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_skipped_total",
			Help:      "Input lines skipped without scoring",
		}),
		lastRunTiming: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.workers,
		m.queueDepth,
		m.backpressure,
		m.scored,
		m.scoreLatency,
		m.failures,
		m.written,
		m.abandoned,
		m.skipped,
		m.lastRunTiming,
	)
	return m
}

// Registry returns the registry holding the pipeline metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Start(_ string, parallelism int) {
	m.runs.Inc()
	m.workers.Set(float64(parallelism))
}

func (m *Monitor) Enqueued(queue string, depth int) {
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (m *Monitor) Backpressure(queue string) {
	m.backpressure.WithLabelValues(queue).Inc()
}

func (m *Monitor) Scored(outcome core.Outcome, elapsed time.Duration) {
	m.scored.WithLabelValues(outcome.String()).Inc()
	m.scoreLatency.Observe(elapsed.Seconds())
}

func (m *Monitor) WorkerFailed(_ error) {
	m.failures.Inc()
}

func (m *Monitor) Written(_ *core.Candidate) {
	m.written.Inc()
}

func (m *Monitor) Finish(summary pipeline.Summary) {
	m.abandoned.Add(float64(summary.Abandoned))
	m.skipped.Add(float64(summary.Skipped))
	m.lastRunTiming.Set(summary.Elapsed.Seconds())
	m.workers.Set(0)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
