package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name       string
		enabled    bool
		exportLogs bool
	}{
		{"telemetry off", false, true},
		{"log export off", true, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lp, err := NewLoggerProvider(ctx, Config{Enabled: tc.enabled, ServiceName: "test"}, tc.exportLogs, zap.NewNop())
			require.NoError(t, err)
			assert.False(t, lp.IsEnabled())
			assert.NoError(t, lp.Shutdown(ctx))
		})
	}
}

func TestLoggerProvider_BridgeDisabledReturnsBase(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{}, false, zap.NewNop())
	require.NoError(t, err)

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
}

func TestLoggerProvider_BridgeKeepsBaseOutput(t *testing.T) {
	lp := &LoggerProvider{provider: sdklog.NewLoggerProvider(), logger: zap.NewNop(), name: "test"}
	defer func() {
		_ = lp.Shutdown(context.Background())
	}()

	core, logs := observer.New(zapcore.DebugLevel)
	bridged := lp.Bridge(zap.New(core), zapcore.WarnLevel)

	bridged.Info("plan state derived", zap.String("status", "WARNING"))
	bridged.Warn("plan blocked")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "plan state derived", logs.All()[0].Message)
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	l := zap.New(core).With(zap.String("tenant_id", "t-1"))
	l.Info("dropped")
	l.Error("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "t-1", logs.All()[0].ContextMap()["tenant_id"])
}
