package render

import (
	"context"
	"fmt"
	"strings"

	"newscast/internal/timeline"
)

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Job identifies a submitted render. Duration is the submitted timeline length in
// seconds; it is charged when the provider reports no output duration.
type Job struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration,omitempty"`
}

// Terminal reports whether no further status change is expected.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ParseStatus maps provider status strings onto Status. Intermediate provider states
// (fetching, preprocessing, saving) count as rendering.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "queued", "submitted", "pending":
		return StatusQueued, nil
	case "rendering", "fetching", "preprocessing", "saving", "processing":
		return StatusRendering, nil
	case "done", "completed", "succeeded":
		return StatusDone, nil
	case "failed", "error", "cancelled":
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("unknown render status %q", value)
	}
}

// Result is one observation of a render job.
type Result struct {
	JobID     string  `json:"job_id"`
	Status    Status  `json:"status"`
	URL       string  `json:"url,omitempty"`
	PosterURL string  `json:"poster_url,omitempty"`
	Error     string  `json:"error,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}

// Service is the render provider.
type Service interface {
	Submit(ctx context.Context, spec timeline.Spec) (string, error)
	Status(ctx context.Context, jobID string) (Result, error)
}
