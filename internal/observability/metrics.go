// Package observability — metrics.go
//
// Prometheus metrics for the moral decision pipeline.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only — no external exposure.
//
// Metric naming convention: mdm_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Pipeline ─────────────────────────────────────────────────────────────

	// DecisionsTotal counts pipeline.Decide calls, by escalation level.
	DecisionsTotal *prometheus.CounterVec

	// DecisionLatency records the wall-clock time of one Decide call.
	DecisionLatency prometheus.Histogram

	// CandidatesGenerated records the per-call candidate count.
	CandidatesGenerated prometheus.Histogram

	// ─── Confidence ───────────────────────────────────────────────────────────

	// CUSHistogram records the distribution of cumulative uncertainty scores.
	CUSHistogram prometheus.Histogram

	// ConfidenceHistogram records the distribution of effective confidence.
	ConfidenceHistogram prometheus.Histogram

	// ─── Escalation ───────────────────────────────────────────────────────────

	// EscalationDriverTotal counts primary drivers, by driver name.
	EscalationDriverTotal *prometheus.CounterVec

	// FailSafeTriggersTotal counts fail-safe overrides, by trigger.
	FailSafeTriggersTotal *prometheus.CounterVec

	// ClampAppliedTotal counts soft-clamp applications.
	ClampAppliedTotal prometheus.Counter

	// ─── Budget ───────────────────────────────────────────────────────────────

	// BudgetTokensRemaining is the current token bucket level.
	BudgetTokensRemaining prometheus.Gauge

	// BudgetRejectedTotal counts calls denied by the rate limiter.
	BudgetRejectedTotal prometheus.Counter

	// ─── Storage ──────────────────────────────────────────────────────────────

	// StorageWriteLatency records BoltDB write transaction latency.
	StorageWriteLatency prometheus.Histogram

	// StoragePacketsTotal is the current number of persisted packets.
	StoragePacketsTotal prometheus.Gauge

	// ─── Engine ───────────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since the engine started.
	UptimeSeconds prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates and registers all pipeline Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdm",
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Total Decide calls completed, by escalation level.",
		}, []string{"level"}),

		DecisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdm",
			Subsystem: "pipeline",
			Name:      "decision_latency_seconds",
			Help:      "Wall-clock duration of one Decide call.",
			Buckets:   prometheus.DefBuckets,
		}),

		CandidatesGenerated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdm",
			Subsystem: "pipeline",
			Name:      "candidates_generated",
			Help:      "Number of candidate actions generated per call.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2000},
		}),

		CUSHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdm",
			Subsystem: "confidence",
			Name:      "cus",
			Help:      "Distribution of cumulative uncertainty scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		ConfidenceHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdm",
			Subsystem: "confidence",
			Name:      "effective",
			Help:      "Distribution of effective confidence values.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		EscalationDriverTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdm",
			Subsystem: "escalation",
			Name:      "driver_total",
			Help:      "Total decisions, by primary escalation driver.",
		}, []string{"driver"}),

		FailSafeTriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdm",
			Subsystem: "escalation",
			Name:      "fail_safe_triggers_total",
			Help:      "Total fail-safe overrides, by trigger.",
		}, []string{"trigger"}),

		ClampAppliedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mdm",
			Subsystem: "escalation",
			Name:      "clamp_applied_total",
			Help:      "Total soft-clamp applications.",
		}),

		BudgetTokensRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mdm",
			Subsystem: "budget",
			Name:      "tokens_remaining",
			Help:      "Current token bucket level.",
		}),

		BudgetRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mdm",
			Subsystem: "budget",
			Name:      "rejected_total",
			Help:      "Total Decide calls rejected by the rate limiter.",
		}),

		StorageWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdm",
			Subsystem: "storage",
			Name:      "write_latency_seconds",
			Help:      "BoltDB write transaction latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		StoragePacketsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mdm",
			Subsystem: "storage",
			Name:      "packets_total",
			Help:      "Current number of persisted decision packets.",
		}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mdm",
			Subsystem: "engine",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the engine started.",
		}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.DecisionLatency,
		m.CandidatesGenerated,
		m.CUSHistogram,
		m.ConfidenceHistogram,
		m.EscalationDriverTotal,
		m.FailSafeTriggersTotal,
		m.ClampAppliedTotal,
		m.BudgetTokensRemaining,
		m.BudgetRejectedTotal,
		m.StorageWriteLatency,
		m.StoragePacketsTotal,
		m.UptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ServeMetrics starts the Prometheus HTTP metrics server on addr, serving
// GET /metrics and GET /healthz. Blocks until ctx is cancelled or the
// server fails.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
