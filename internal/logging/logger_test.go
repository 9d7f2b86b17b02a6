package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/otelsim/internal/config"
)

func observedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	cfg := config.NewDefaultConfig().Logging
	return &Logger{zap: zap.New(core), config: &cfg}, logs
}

func TestNewLogger(t *testing.T) {
	t.Run("creates logger from valid config", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Logging
		logger, err := NewLogger(&cfg, nil)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("rejects invalid level", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Logging
		cfg.Level = "loud"
		_, err := NewLogger(&cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid level")
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Logging
		cfg.Format = "xml"
		_, err := NewLogger(&cfg, nil)
		require.Error(t, err)
	})

	t.Run("attaches constant fields", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Logging
		cfg.Fields = map[string]string{"service": "otelsim", "env": "test"}
		logger, err := NewLogger(&cfg, nil)
		require.NoError(t, err)
		assert.NotNil(t, logger.Underlying())
	})
}

func TestContextFields(t *testing.T) {
	t.Run("empty context yields no fields", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("includes trace and span ids", func(t *testing.T) {
		tp := trace.NewTracerProvider(trace.WithSpanProcessor(tracetest.NewSpanRecorder()))
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		logger, logs := observedLogger(zapcore.InfoLevel)
		logger.Info(ctx, "hello")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	})

	t.Run("includes request and run ids", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		ctx = WithRunID(ctx, "run-456")

		logger, logs := observedLogger(zapcore.InfoLevel)
		logger.Info(ctx, "hello")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, "req-123", fields["request.id"])
		assert.Equal(t, "run-456", fields["run.id"])
	})

	t.Run("empty ids are not stored", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "")
		assert.Empty(t, RequestIDFromContext(ctx))
		ctx = WithRunID(ctx, "")
		assert.Empty(t, RunIDFromContext(ctx))
	})
}

func TestLoggerLevels(t *testing.T) {
	t.Run("trace logs only when enabled", func(t *testing.T) {
		logger, logs := observedLogger(zapcore.InfoLevel)
		logger.Trace(context.Background(), "invisible")
		assert.Equal(t, 0, logs.Len())

		logger, logs = observedLogger(TraceLevel)
		logger.Trace(context.Background(), "visible")
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("level from string", func(t *testing.T) {
		level, err := LevelFromString("trace")
		require.NoError(t, err)
		assert.Equal(t, TraceLevel, level)

		level, err = LevelFromString("warn")
		require.NoError(t, err)
		assert.Equal(t, zapcore.WarnLevel, level)

		_, err = LevelFromString("loud")
		require.Error(t, err)
	})
}

func TestChildLoggers(t *testing.T) {
	t.Run("With adds fields to every entry", func(t *testing.T) {
		logger, logs := observedLogger(zapcore.InfoLevel)
		child := logger.With(zap.String("component", "engine"))
		child.Info(context.Background(), "hello")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "engine", logs.All()[0].ContextMap()["component"])
	})

	t.Run("Named sets the logger name", func(t *testing.T) {
		logger, logs := observedLogger(zapcore.InfoLevel)
		logger.Named("http").Info(context.Background(), "hello")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "http", logs.All()[0].LoggerName)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		logger := Nop()
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, FromContext(ctx))
	})

	t.Run("returns nop when absent", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}
