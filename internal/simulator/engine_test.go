package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/otelsim/internal/telemetry"
)

// noSleep keeps test runs instant while preserving cancellation behavior.
func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func testSteps() []*Step {
	return []*Step{
		NewStep("gather", OpProcessing, 10*time.Millisecond,
			NewStep("read_db", OpDatabase, 10*time.Millisecond),
			NewStep("call_api", OpHTTP, 10*time.Millisecond),
		),
		NewStep("store", OpDatabase, 10*time.Millisecond),
	}
}

func failingSteps() []*Step {
	bad := NewStep("call_api", OpHTTP, 10*time.Millisecond)
	bad.Fail = true
	bad.FailMessage = "upstream returned 503"

	return []*Step{
		NewStep("gather", OpProcessing, 10*time.Millisecond,
			NewStep("read_db", OpDatabase, 10*time.Millisecond),
			bad,
			NewStep("read_cache", OpCache, 10*time.Millisecond),
		),
		NewStep("store", OpDatabase, 10*time.Millisecond),
	}
}

func TestEngineRun(t *testing.T) {
	t.Run("completes all steps in order", func(t *testing.T) {
		engine := NewEngine(WithSleep(noSleep), WithDetail(true))
		steps := testSteps()

		result, err := engine.Run(context.Background(), VariantMedium, "test_workflow", steps)
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, "test_workflow", result.Workflow)
		assert.Equal(t, VariantMedium, result.Variant)
		assert.NotEmpty(t, result.RunID)
		assert.Empty(t, result.Error)
		assert.Empty(t, result.FailedStep)

		for _, s := range steps {
			assert.Equal(t, StatusCompleted, s.Status, "step %s", s.Name)
			for _, sub := range s.Substeps {
				assert.Equal(t, StatusCompleted, sub.Status, "substep %s", sub.Name)
			}
		}
	})

	t.Run("substeps complete before their parent", func(t *testing.T) {
		engine := NewEngine(WithDetail(true))
		steps := []*Step{
			NewStep("parent", OpProcessing, time.Millisecond,
				NewStep("child", OpDatabase, time.Millisecond),
			),
		}

		_, err := engine.Run(context.Background(), VariantMedium, "nesting", steps)
		require.NoError(t, err)

		parent := steps[0]
		child := parent.Substeps[0]
		assert.False(t, child.CompletedAt.After(parent.CompletedAt),
			"child must complete before or with its parent")
		assert.False(t, parent.StartedAt.After(child.StartedAt),
			"parent must start before or with its child")
	})

	t.Run("fail fast marks ancestors failed and leaves later siblings pending", func(t *testing.T) {
		engine := NewEngine(WithSleep(noSleep), WithDetail(true))
		steps := failingSteps()

		result, err := engine.Run(context.Background(), VariantComplex, "failing", steps)
		require.Error(t, err)
		assert.True(t, IsSimulatedFailure(err))

		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, "call_api", result.FailedStep)
		assert.Contains(t, result.Error, "upstream returned 503")

		gather := steps[0]
		assert.Equal(t, StatusFailed, gather.Status, "parent of failing step")
		assert.Equal(t, StatusCompleted, gather.Substeps[0].Status, "sibling before failure")
		assert.Equal(t, StatusFailed, gather.Substeps[1].Status, "failing step")
		assert.Equal(t, StatusPending, gather.Substeps[2].Status, "sibling after failure never runs")
		assert.Equal(t, StatusPending, steps[1].Status, "top-level step after failure never runs")
	})

	t.Run("default failure message names the operation type", func(t *testing.T) {
		bad := NewStep("flaky", OpQueue, time.Millisecond)
		bad.Fail = true

		engine := NewEngine(WithSleep(noSleep))
		_, err := engine.Run(context.Background(), VariantSimple, "defaults", []*Step{bad})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue operation failed")
	})

	t.Run("context cancellation is a fault not a simulated failure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := NewEngine()
		result, err := engine.Run(ctx, VariantSimple, "cancelled", testSteps())
		require.Error(t, err)
		assert.False(t, IsSimulatedFailure(err))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StatusFailed, result.Status)
	})

	t.Run("identical runs produce identical shapes", func(t *testing.T) {
		engine := NewEngine(WithSleep(noSleep), WithDetail(true))

		first, err := engine.Run(context.Background(), VariantComplex, "repeat", failingSteps())
		require.Error(t, err)
		second, err := engine.Run(context.Background(), VariantComplex, "repeat", failingSteps())
		require.Error(t, err)

		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.FailedStep, second.FailedStep)
		assert.Equal(t, first.Error, second.Error)
		require.Equal(t, len(first.Steps), len(second.Steps))
		for i := range first.Steps {
			assert.Equal(t, first.Steps[i].Status, second.Steps[i].Status)
		}
		assert.NotEqual(t, first.RunID, second.RunID)
	})
}

func TestEngineDetail(t *testing.T) {
	t.Run("summary results omit timestamps and substeps", func(t *testing.T) {
		engine := NewEngine(WithSleep(noSleep))

		result, err := engine.Run(context.Background(), VariantSimple, "summary", testSteps())
		require.NoError(t, err)

		require.Len(t, result.Steps, 2)
		for _, s := range result.Steps {
			assert.Nil(t, s.StartedAt)
			assert.Nil(t, s.CompletedAt)
			assert.Empty(t, s.Substeps)
		}
	})

	t.Run("detailed results carry timestamps and substeps", func(t *testing.T) {
		engine := NewEngine(WithSleep(noSleep), WithDetail(true))

		result, err := engine.Run(context.Background(), VariantMedium, "detailed", testSteps())
		require.NoError(t, err)

		require.Len(t, result.Steps, 2)
		gather := result.Steps[0]
		require.NotNil(t, gather.StartedAt)
		require.NotNil(t, gather.CompletedAt)
		require.Len(t, gather.Substeps, 2)
		assert.Equal(t, "read_db", gather.Substeps[0].Name)
	})
}

func TestEngineSpans(t *testing.T) {
	t.Run("emits one span per executed step plus the workflow root", func(t *testing.T) {
		tel := telemetry.NewTestTelemetry()
		engine := NewEngine(
			WithSleep(noSleep),
			WithTracer(tel.Tracer("test")),
			WithDetail(true),
		)

		_, err := engine.Run(context.Background(), VariantComplex, "traced", testSteps())
		require.NoError(t, err)

		// 4 steps + 1 root
		spans := tel.Spans()
		require.Len(t, spans, 5)

		tel.AssertSpanExists(t, "workflow.traced")
		tel.AssertSpanExists(t, "step.gather")
		tel.AssertSpanExists(t, "step.read_db")
		tel.AssertSpanExists(t, "step.call_api")
		tel.AssertSpanExists(t, "step.store")

		tel.AssertSpanAttribute(t, "workflow.traced", "workflow.variant", "complex")
		tel.AssertSpanAttribute(t, "workflow.traced", "workflow.status", "completed")
		tel.AssertSpanAttribute(t, "step.read_db", "step.type", "database")
		tel.AssertSpanAttribute(t, "step.read_db", "step.depth", int64(1))
	})

	t.Run("spans are well nested", func(t *testing.T) {
		tel := telemetry.NewTestTelemetry()
		engine := NewEngine(
			WithTracer(tel.Tracer("test")),
			WithDetail(true),
		)

		_, err := engine.Run(context.Background(), VariantComplex, "nested", []*Step{
			NewStep("outer", OpProcessing, time.Millisecond,
				NewStep("inner", OpDatabase, time.Millisecond),
			),
		})
		require.NoError(t, err)

		spans := tel.Spans()
		byID := make(map[oteltrace.SpanID]sdktrace.ReadOnlySpan, len(spans))
		for _, s := range spans {
			byID[s.SpanContext().SpanID()] = s
		}

		root := tel.SpanByName("workflow.nested")
		require.NotNil(t, root)
		assert.False(t, root.Parent().IsValid(), "workflow span must be the trace root")

		for _, s := range spans {
			if !s.Parent().IsValid() {
				continue
			}
			parent, ok := byID[s.Parent().SpanID()]
			require.True(t, ok, "parent of %s must be in the same trace", s.Name())
			assert.False(t, s.StartTime().Before(parent.StartTime()),
				"%s starts inside %s", s.Name(), parent.Name())
			assert.False(t, s.EndTime().After(parent.EndTime()),
				"%s ends inside %s", s.Name(), parent.Name())
		}

		inner := tel.SpanByName("step.inner")
		outer := tel.SpanByName("step.outer")
		require.NotNil(t, inner)
		require.NotNil(t, outer)
		assert.Equal(t, outer.SpanContext().SpanID(), inner.Parent().SpanID())
	})

	t.Run("failure is recorded on the span", func(t *testing.T) {
		tel := telemetry.NewTestTelemetry()
		engine := NewEngine(
			WithSleep(noSleep),
			WithTracer(tel.Tracer("test")),
			WithDetail(true),
		)

		_, err := engine.Run(context.Background(), VariantComplex, "broken", failingSteps())
		require.Error(t, err)

		tel.AssertSpanAttribute(t, "step.call_api", "step.status", "failed")
		tel.AssertSpanAttribute(t, "step.call_api", "step.error", "step call_api failed: upstream returned 503")
		tel.AssertSpanAttribute(t, "workflow.broken", "workflow.status", "failed")

		failed := tel.SpanByName("step.call_api")
		require.NotNil(t, failed)
		require.NotEmpty(t, failed.Events(), "failure must be recorded as a span event")
		assert.Equal(t, "exception", failed.Events()[0].Name)

		// Steps that never ran emit no spans.
		assert.Nil(t, tel.SpanByName("step.read_cache"))
		assert.Nil(t, tel.SpanByName("step.store"))
	})

	t.Run("no tracer means no spans", func(t *testing.T) {
		engine := NewEngine(WithSleep(noSleep))
		_, err := engine.Run(context.Background(), VariantSimple, "untraced", testSteps())
		require.NoError(t, err)
	})
}

func TestEngineDelayScale(t *testing.T) {
	var slept []time.Duration
	recorder := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	engine := NewEngine(WithSleep(recorder), WithDelayScale(0.5))
	_, err := engine.Run(context.Background(), VariantSimple, "scaled", []*Step{
		NewStep("one", OpProcessing, 100*time.Millisecond),
	})
	require.NoError(t, err)

	require.Len(t, slept, 1)
	assert.Equal(t, 50*time.Millisecond, slept[0])
}
