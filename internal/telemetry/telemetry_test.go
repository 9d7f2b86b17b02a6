package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/otelsim/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("disabled config returns noop instance", func(t *testing.T) {
		cfg := config.TelemetryConfig{Enabled: false}

		tel, err := New(context.Background(), &cfg)
		require.NoError(t, err)
		require.NotNil(t, tel)

		health := tel.Health()
		assert.True(t, health.Healthy)
		assert.False(t, health.Degraded)
		assert.False(t, tel.IsEnabled())

		// Tracer and meter still work, as no-ops.
		assert.NotNil(t, tel.Tracer("test"))
		assert.NotNil(t, tel.Meter("test"))
		assert.NoError(t, tel.Shutdown(context.Background()))
	})

	t.Run("invalid config is an error", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Telemetry
		cfg.Endpoint = ""

		_, err := New(context.Background(), &cfg)
		require.Error(t, err)
	})

	t.Run("nil receiver degrades safely", func(t *testing.T) {
		var tel *Telemetry
		assert.NotNil(t, tel.Tracer("test"))
		assert.NotNil(t, tel.Meter("test"))
		assert.NoError(t, tel.Shutdown(context.Background()))
		assert.NoError(t, tel.ForceFlush(context.Background()))

		health := tel.Health()
		assert.False(t, health.Healthy)
		assert.True(t, health.Degraded)
		assert.False(t, tel.IsEnabled())
	})
}

func TestTestTelemetry(t *testing.T) {
	t.Run("records ended spans", func(t *testing.T) {
		tel := NewTestTelemetry()

		_, span := tel.Tracer("test").Start(context.Background(), "op")
		span.End()

		tel.AssertSpanExists(t, "op")
		assert.Nil(t, tel.SpanByName("other"))
	})

	t.Run("checks span attributes", func(t *testing.T) {
		tel := NewTestTelemetry()

		ctx, parent := tel.Tracer("test").Start(context.Background(), "parent")
		_, child := tel.Tracer("test").Start(ctx, "child")
		child.End()
		parent.End()

		require.Len(t, tel.Spans(), 2)
		childSpan := tel.SpanByName("child")
		require.NotNil(t, childSpan)
		parentSpan := tel.SpanByName("parent")
		require.NotNil(t, parentSpan)
		assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
	})

	t.Run("reports healthy", func(t *testing.T) {
		tel := NewTestTelemetry()
		health := tel.Health()
		assert.True(t, health.Healthy)
		assert.False(t, health.Degraded)
	})
}
