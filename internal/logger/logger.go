package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
)

type ctxKey string

const (
	TableIDKey   ctxKey = "table_id"
	RequestIDKey ctxKey = "request_id"
)

var logger *zap.Logger

func init() {
	if os.Getenv("DEBUG") == "true" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
}

// SetLogger swaps the package logger; tests use it with zaptest/observer loggers.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

func L() *zap.Logger {
	return logger
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v := ctx.Value(TableIDKey); v != nil {
		fields = append(fields, zap.Any("table_id", v))
	}
	if v := ctx.Value(RequestIDKey); v != nil {
		fields = append(fields, zap.Any("request_id", v))
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

func Sync() {
	_ = logger.Sync()
}
