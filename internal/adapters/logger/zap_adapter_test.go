package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/pkg/contextkeys"
)

func TestZapAdapter_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "eft")
	l.Info(ctx, "transfer started", "amount", "5.00")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "eft", fields["operation"])
	assert.Equal(t, "5.00", fields["amount"])
	assert.NotContains(t, fields, "endpoint")
}

func TestZapAdapter_OddAndInvalidFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Warn(context.Background(), "odd", 42, "value", "dangling")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "value", fields["invalid_key_0"])
	assert.Equal(t, "dangling", fields["orphan_field_2"])
}

func TestZapAdapter_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewFromZap(zap.New(core)).With("component", "token_cache")

	l.Debug(context.Background(), "filtered out")
	l.Error(context.Background(), "kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "token_cache", logs.All()[0].ContextMap()["component"])
}

func TestNewZapAdapter_InvalidLevelFallsBackToInfo(t *testing.T) {
	p := config.NewStatic(config.Config{Log: config.LogConfig{Level: "nonsense"}})
	l, err := NewZapAdapter(p, "paramem-test")
	require.NoError(t, err)
	za, ok := l.(*ZapAdapter)
	require.True(t, ok)
	assert.False(t, za.logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, za.logger.Core().Enabled(zapcore.InfoLevel))
}
