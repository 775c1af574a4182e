package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud")
	assert.Error(t, err)
}

func TestFromContextAddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	FromContext(ctx, base).Info("traced")
	FromContext(context.Background(), base).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0].ContextMap()["trace_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}

func TestFromContextNilBase(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background(), nil))
	assert.NotNil(t, OrNop(nil))
}
