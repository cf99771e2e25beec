package services

import "context"

type contextKey string

const (
	productionIDKey contextKey = "production_id"
	stepKey         contextKey = "step"
	segmentKey      contextKey = "segment_index"
	requestIDKey    contextKey = "request_id"
)

// WithProductionID annotates context with the production identifier.
func WithProductionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, productionIDKey, id)
}

// ProductionIDFromContext extracts the production identifier if present.
func ProductionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(productionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stepKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithSegmentIndex annotates context with the segment currently being generated.
func WithSegmentIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, segmentKey, index)
}

// SegmentIndexFromContext extracts the segment index if present.
func SegmentIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(segmentKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
