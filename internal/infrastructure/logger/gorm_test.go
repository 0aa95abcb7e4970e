package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func productQuery() (string, int64) {
	return `SELECT * FROM "products" WHERE store_id = 'a1'`, 3
}

func TestNewGormLogger_Options(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.False(t, gormLog.ignoreRecordNotFoundError)

	changed, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, changed.logLevel)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel, "LogMode returns a copy")
}

func TestGormLogger_Printf(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Warn)
	ctx := context.Background()

	gormLog.Info(ctx, "suppressed %s", "info")
	gormLog.Warn(ctx, "retrying %d", 2)
	gormLog.Error(ctx, "failed: %s", "boom")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "retrying 2", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		elapsed   time.Duration
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{name: "error", level: gormlogger.Error, err: errors.New("unique violation"), wantMsg: "SQL error", wantLevel: zapcore.ErrorLevel},
		{name: "record not found ignored", level: gormlogger.Error, err: gormlogger.ErrRecordNotFound},
		{name: "record not found reported", level: gormlogger.Error, opts: []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, err: gormlogger.ErrRecordNotFound, wantMsg: "SQL error", wantLevel: zapcore.ErrorLevel},
		{name: "slow query", level: gormlogger.Warn, opts: []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, elapsed: time.Second, wantMsg: "SLOW SQL >= 1ms", wantLevel: zapcore.WarnLevel},
		{name: "normal query at info", level: gormlogger.Info, wantMsg: "SQL query", wantLevel: zapcore.DebugLevel},
		{name: "normal query at warn", level: gormlogger.Warn},
		{name: "silent", level: gormlogger.Silent, err: errors.New("ignored")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gormLog := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gormLog.Trace(context.Background(), time.Now().Add(-tt.elapsed), productQuery, tt.err)

			logs := recorded.All()
			if tt.wantMsg == "" {
				assert.Empty(t, logs)
				return
			}
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, int64(3), logs[0].ContextMap()["rows"])
		})
	}
}

func TestGormLogger_Trace_ContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")
	ctx, _ = WithStoreID(ctx, zap.NewNop(), "store-1")
	ctx, spanCtx := withValidSpan(ctx)

	gormLog.Trace(ctx, time.Now(), productQuery, nil)

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "store-1", fields["store_id"])
	assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"SILENT", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
