package observability

import (
	"context"

	"go.uber.org/zap"
)

// Diagnostics publishes diagnostic events for conditions that are accepted
// but worth surfacing operationally, such as request parameters the upstream
// engine cannot honor or errors raised in the middle of a stream.
type Diagnostics struct {
	logger *zap.Logger
}

// NewDiagnostics creates a new diagnostics publisher.
func NewDiagnostics(logger *zap.Logger) *Diagnostics {
	return &Diagnostics{
		logger: logger,
	}
}

// UnsupportedParameter records that a recognized request parameter was
// accepted but not forwarded to the engine.
func (d *Diagnostics) UnsupportedParameter(ctx context.Context, name string) {
	d.publish(ctx, "unsupported parameter ignored", zap.String("parameter", name))
}

// StreamError records an error raised by the engine in the middle of a
// stream. The client sees a finish_reason="error" chunk; this is the
// out-of-band report.
func (d *Diagnostics) StreamError(ctx context.Context, message string) {
	d.publish(ctx, "engine error mid-stream", zap.String("engine_error", message))
}

func (d *Diagnostics) publish(ctx context.Context, event string, fields ...zap.Field) {
	logger := d.logger
	if logger == nil {
		logger = FromContext(ctx)
	} else {
		logger = logger.With(contextFields(ctx)...)
	}
	logger.Warn(event, fields...)
}

func contextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, maxLoggerFieldCapacity)
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if model := GetModel(ctx); model != "" {
		fields = append(fields, zap.String("model", model))
	}
	if streamID := GetStreamID(ctx); streamID != "" {
		fields = append(fields, zap.String("stream_id", streamID))
	}
	return fields
}
