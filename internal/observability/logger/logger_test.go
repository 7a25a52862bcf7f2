package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/laudo/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestWithContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "req-42")
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "", fields["trace_id"])
	assert.NotContains(t, fields, "report_id")
}

func TestWithContextAddsReportAndStage(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx := ContextWithReport(context.Background(), " 1234 ")
	ctx = ContextWithStage(ctx, "loading_aggregate")
	WithContext(ctx, zap.New(core)).Info("loaded")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "1234", fields["report_id"])
	assert.Equal(t, "loading_aggregate", fields["stage"])

	assert.Equal(t, context.Background(), ContextWithReport(context.Background(), ""))
}

func TestStatementTarget(t *testing.T) {
	cases := []struct {
		sql, op, table string
	}{
		{`INSERT INTO "report_photos" ("id") VALUES ($1)`, "INSERT", "report_photos"},
		{"SELECT r.id FROM reports AS r LEFT JOIN clients c ON c.id = r.client_id", "SELECT", "reports"},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "SELECT", "x"},
		{"update clients set name = ?", "UPDATE", "clients"},
		{"SELECT COUNT(*) FROM (SELECT 1) AS t", "SELECT", ""},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := statementTarget(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerTagsQueriesWithReport(t *testing.T) {
	logs := observeGlobal(t, zapcore.DebugLevel)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})

	ctx := ContextWithStage(ContextWithReport(context.Background(), "77"), "persisting")
	l.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM reports WHERE id = ?", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "77", fields["report_id"])
	assert.Equal(t, "persisting", fields["stage"])
	assert.Equal(t, "reports", fields["table"])
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	logs := observeGlobal(t, zapcore.DebugLevel)
	l := NewGormLogger(DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestGormLoggerLogModeCopies(t *testing.T) {
	base := NewGormLogger(DefaultGormLoggerConfig())
	silent := base.LogMode(gormlogger.Silent)

	assert.Equal(t, gormlogger.Warn, base.level)
	assert.Equal(t, gormlogger.Silent, silent.(*GormLogger).level)
}
