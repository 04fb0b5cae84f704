package mylogger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func withTrace(ctx context.Context, fields []zap.Field) []zap.Field {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return fields
}

func Info(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.WithOptions(zap.AddCallerSkip(1)).Info(msg, withTrace(ctx, fields)...)
}

func Warn(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.WithOptions(zap.AddCallerSkip(1)).Warn(msg, withTrace(ctx, fields)...)
}

func Error(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.WithOptions(zap.AddCallerSkip(1)).Error(msg, withTrace(ctx, fields)...)
}

func Debug(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.WithOptions(zap.AddCallerSkip(1)).Debug(msg, withTrace(ctx, fields)...)
}
