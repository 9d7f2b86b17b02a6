package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelsim/internal/logging"
)

// SleepFunc waits for the step delay. The default implementation blocks on
// a timer but returns early when the context is cancelled; tests inject a
// no-op to keep runs instant.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Engine runs one workflow tier. A nil tracer disables span emission, the
// detail flag controls whether results carry timestamps and substeps; the
// same execution path serves all tiers.
type Engine struct {
	tracer     oteltrace.Tracer
	detail     bool
	sleep      SleepFunc
	delayScale float64
	logger     *logging.Logger
	metrics    *Metrics
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithTracer enables span emission through the given tracer.
func WithTracer(tracer oteltrace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = tracer }
}

// WithDetail enables per-step timestamps and nested substep results.
func WithDetail(detail bool) EngineOption {
	return func(e *Engine) { e.detail = detail }
}

// WithSleep replaces the delay implementation.
func WithSleep(sleep SleepFunc) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithDelayScale multiplies every step delay. Values at or below zero are
// ignored.
func WithDelayScale(scale float64) EngineOption {
	return func(e *Engine) {
		if scale > 0 {
			e.delayScale = scale
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the engine metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an execution engine. Without options it runs silently
// with real delays, no tracing, and summary-only results.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		sleep:      sleepContext,
		delayScale: 1.0,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the step trees in order and returns the run summary.
//
// On failure the returned Result is still fully populated (status failed,
// unreached siblings left pending) alongside the non-nil error, so callers
// can report the outcome of the error-demonstration path as a normal
// response while still telling simulated failures and faults apart.
func (e *Engine) Run(ctx context.Context, variant Variant, name string, steps []*Step) (*Result, error) {
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)

	var span oteltrace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "workflow."+name,
			oteltrace.WithAttributes(
				attribute.String("workflow.name", name),
				attribute.String("workflow.variant", string(variant)),
				attribute.String("workflow.run_id", runID),
				attribute.Int("workflow.step_count", countSteps(steps)),
			),
		)
	}

	e.logger.Info(ctx, "workflow started",
		zap.String("workflow", name),
		zap.String("variant", string(variant)),
		zap.Int("steps", len(steps)),
	)

	started := time.Now()
	var runErr error
	for _, step := range steps {
		if err := e.executeStep(ctx, step, 0); err != nil {
			runErr = err
			break
		}
	}
	completed := time.Now()

	result := &Result{
		Workflow:    name,
		Variant:     variant,
		RunID:       runID,
		Status:      StatusCompleted,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMS:  durationMS(completed.Sub(started)),
		Steps:       snapshotSteps(steps, e.detail),
	}
	if runErr != nil {
		result.Status = StatusFailed
		result.Error = runErr.Error()
		var stepErr *StepError
		if errors.As(runErr, &stepErr) {
			result.FailedStep = stepErr.Step
		}
	}

	if span != nil {
		span.SetAttributes(
			attribute.String("workflow.status", string(result.Status)),
			attribute.Float64("workflow.duration_ms", result.DurationMS),
		)
		if runErr != nil {
			span.SetAttributes(attribute.String("workflow.error", runErr.Error()))
			span.RecordError(runErr)
			span.SetStatus(codes.Error, runErr.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	if e.metrics != nil {
		e.metrics.RecordRun(ctx, variant, result.Status, completed.Sub(started))
	}

	if runErr != nil {
		e.logger.Warn(ctx, "workflow failed",
			zap.String("workflow", name),
			zap.String("variant", string(variant)),
			zap.String("failed_step", result.FailedStep),
			zap.Float64("duration_ms", result.DurationMS),
			zap.Error(runErr),
		)
	} else {
		e.logger.Info(ctx, "workflow completed",
			zap.String("workflow", name),
			zap.String("variant", string(variant)),
			zap.Float64("duration_ms", result.DurationMS),
		)
	}

	return result, runErr
}

// executeStep runs one step depth-first: substeps first, then the step's
// own simulated work. The step completes only after every substep has; a
// substep failure propagates up and fails the ancestor without touching
// later siblings.
func (e *Engine) executeStep(ctx context.Context, step *Step, depth int) error {
	step.Status = StatusRunning
	step.StartedAt = time.Now()

	var span oteltrace.Span
	if e.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("step.name", step.Name),
			attribute.String("step.type", string(step.Type)),
			attribute.Int("step.depth", depth),
			attribute.Float64("step.delay_ms", durationMS(e.scaled(step.Delay))),
			attribute.Int("step.substep_count", len(step.Substeps)),
		}
		for k, v := range step.Attributes {
			attrs = append(attrs, attribute.String("step.attr."+k, v))
		}
		ctx, span = e.tracer.Start(ctx, "step."+step.Name, oteltrace.WithAttributes(attrs...))
	}

	err := e.runStep(ctx, step, depth)

	e.finalize(step, err)

	if span != nil {
		span.SetAttributes(attribute.String("step.status", string(step.Status)))
		if err != nil {
			span.SetAttributes(attribute.String("step.error", err.Error()))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		// End after the status is final so the span interval covers the
		// whole step, substeps included.
		span.End()
	}

	if e.metrics != nil {
		e.metrics.RecordStep(ctx, step.Type, step.Status)
	}

	return err
}

func (e *Engine) runStep(ctx context.Context, step *Step, depth int) error {
	for _, sub := range step.Substeps {
		if err := e.executeStep(ctx, sub, depth+1); err != nil {
			return err
		}
	}

	if err := e.sleep(ctx, e.scaled(step.Delay)); err != nil {
		return &StepError{Step: step.Name, Type: step.Type, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return &StepError{Step: step.Name, Type: step.Type, Cause: err}
	}

	if step.Fail {
		msg := step.FailMessage
		if msg == "" {
			msg = fmt.Sprintf("%s operation failed", step.Type)
		}
		return &StepError{
			Step:      step.Name,
			Type:      step.Type,
			Cause:     fmt.Errorf("%s", msg),
			Simulated: true,
		}
	}
	return nil
}

// finalize stamps the terminal status. A step whose substep failed is
// itself failed, but keeps the substep's error only via Err so results
// point at the originating step.
func (e *Engine) finalize(step *Step, err error) {
	step.CompletedAt = time.Now()
	step.Elapsed = step.CompletedAt.Sub(step.StartedAt)
	if err != nil {
		step.Status = StatusFailed
		step.Err = err
		return
	}
	step.Status = StatusCompleted
}

func (e *Engine) scaled(d time.Duration) time.Duration {
	if e.delayScale == 1.0 {
		return d
	}
	return time.Duration(float64(d) * e.delayScale)
}
