package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// ExecutorMetrics holds the executor's instruments.
type ExecutorMetrics struct {
	runs        metric.Int64Counter
	admissions  metric.Int64Counter
	cycles      metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewExecutorMetrics registers the executor's instruments on the global meter.
func NewExecutorMetrics() (*ExecutorMetrics, error) {
	meter := otel.Meter("modelplane-executor")

	runs, err := meter.Int64Counter("modelplane_runs_total",
		metric.WithDescription("Run attempts by workload and reason"))
	if err != nil {
		return nil, err
	}

	admissions, err := meter.Int64Counter("modelplane_admissions_total",
		metric.WithDescription("Admission decisions by outcome"))
	if err != nil {
		return nil, err
	}

	cycles, err := meter.Int64Counter("modelplane_cycles_total",
		metric.WithDescription("Completed roster cycles"))
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram("modelplane_run_duration_seconds",
		metric.WithDescription("Execution phase duration per run"))
	if err != nil {
		return nil, err
	}

	return &ExecutorMetrics{
		runs:        runs,
		admissions:  admissions,
		cycles:      cycles,
		runDuration: runDuration,
	}, nil
}

// RecordRun counts a finished run attempt.
func (m *ExecutorMetrics) RecordRun(ctx context.Context, workload, reason string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workload", workload),
		attribute.String("reason", reason),
	)
	m.runs.Add(ctx, 1, attrs)
	if d > 0 {
		m.runDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordAdmission counts one admission decision.
func (m *ExecutorMetrics) RecordAdmission(ctx context.Context, admitted bool, reason string) {
	if m == nil {
		return
	}
	m.admissions.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("admitted", admitted),
		attribute.String("reason", reason),
	))
}

// RecordCycle counts one completed roster pass.
func (m *ExecutorMetrics) RecordCycle(ctx context.Context) {
	if m == nil {
		return
	}
	m.cycles.Add(ctx, 1)
}
