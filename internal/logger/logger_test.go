package logger_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dice-offline/internal/logger"
)

func TestWithCtxAttachesTableAndRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := logger.L()
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(previous)

	ctx := context.WithValue(context.Background(), logger.TableIDKey, "table-1")
	ctx = context.WithValue(ctx, logger.RequestIDKey, "req-1")
	logger.WithCtx(ctx).Info("rolled")
	logger.WithCtx(context.Background()).Info("bare")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["table_id"] != "table-1" || fields["request_id"] != "req-1" {
		t.Errorf("unexpected fields %v", fields)
	}
	if len(entries[1].ContextMap()) != 0 {
		t.Errorf("bare context should add no fields, got %v", entries[1].ContextMap())
	}
}

func TestSetLoggerIgnoresNil(t *testing.T) {
	previous := logger.L()
	logger.SetLogger(nil)
	if logger.L() != previous {
		t.Error("nil logger should be ignored")
	}
}
