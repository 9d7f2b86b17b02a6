package simulator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metrics holds all workflow-related metrics. Instruments that fail to
// initialize are left nil and recording becomes a no-op for them.
type Metrics struct {
	meter       metric.Meter
	logger      *zap.Logger
	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
	stepsTotal  metric.Int64Counter
	activeRuns  metric.Int64UpDownCounter
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  meter,
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.runsTotal, err = m.meter.Int64Counter(
		"otelsim.workflow.runs_total",
		metric.WithDescription("Total workflow runs labeled by variant (simple, medium, complex) and terminal status. Use rate() for run throughput."),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		m.logger.Warn("failed to create runs counter", zap.Error(err))
	}

	m.runDuration, err = m.meter.Float64Histogram(
		"otelsim.workflow.run_duration_seconds",
		metric.WithDescription("Workflow run duration in seconds, labeled by variant and status. Use histogram_quantile for P50/P95/P99 latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create run duration histogram", zap.Error(err))
	}

	m.stepsTotal, err = m.meter.Int64Counter(
		"otelsim.workflow.steps_total",
		metric.WithDescription("Total executed workflow steps labeled by operation type and terminal status."),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		m.logger.Warn("failed to create steps counter", zap.Error(err))
	}

	m.activeRuns, err = m.meter.Int64UpDownCounter(
		"otelsim.workflow.active_runs",
		metric.WithDescription("Number of workflow runs currently executing"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active runs gauge", zap.Error(err))
	}
}

// RunStarted marks a run as in flight. Call RunFinished when it completes.
func (m *Metrics) RunStarted(ctx context.Context) {
	if m.activeRuns != nil {
		m.activeRuns.Add(ctx, 1)
	}
}

// RunFinished marks a run as no longer in flight.
func (m *Metrics) RunFinished(ctx context.Context) {
	if m.activeRuns != nil {
		m.activeRuns.Add(ctx, -1)
	}
}

// RecordRun records the outcome of a completed run.
func (m *Metrics) RecordRun(ctx context.Context, variant Variant, status Status, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("variant", string(variant)),
		attribute.String("status", string(status)),
	)
	if m.runsTotal != nil {
		m.runsTotal.Add(ctx, 1, attrs)
	}
	if m.runDuration != nil {
		m.runDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordStep records the terminal status of one executed step.
func (m *Metrics) RecordStep(ctx context.Context, op OperationType, status Status) {
	if m.stepsTotal != nil {
		m.stepsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation_type", string(op)),
			attribute.String("status", string(status)),
		))
	}
}
