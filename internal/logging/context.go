package logging

import (
	"context"
	"log/slog"

	"newscast/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldProductionID is the standardized structured logging key for production identifiers.
	FieldProductionID = "production_id"
	// FieldStep is the standardized structured logging key for wizard step names.
	FieldStep = "step"
	// FieldSegmentIndex is the standardized structured logging key for 0-based segment positions.
	FieldSegmentIndex = "segment_index"
	// FieldResourceKind identifies the per-segment resource (audio or video).
	FieldResourceKind = "resource_kind"
	// FieldAttempt is the 1-based attempt number for a generation call.
	FieldAttempt = "attempt"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.ProductionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProductionID, id))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if index, ok := services.SegmentIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSegmentIndex, index))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
