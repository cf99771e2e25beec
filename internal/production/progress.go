package production

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// SubStepStatus is the lifecycle state of one wizard step.
type SubStepStatus string

const (
	SubStepPending    SubStepStatus = "pending"
	SubStepInProgress SubStepStatus = "in_progress"
	SubStepCompleted  SubStepStatus = "completed"
	SubStepFailed     SubStepStatus = "failed"
	SubStepSkipped    SubStepStatus = "skipped"
)

// Finished reports whether the status lets the wizard move past the step.
func (s SubStepStatus) Finished() bool {
	return s == SubStepCompleted || s == SubStepSkipped
}

// SubStepProgress records the progress of a single wizard step. Segments is only
// populated for fan-out steps and mirrors the tracker state of that step's resource kind.
type SubStepProgress struct {
	Status      SubStepStatus         `json:"status" validate:"required,oneof=pending in_progress completed failed skipped"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Error       string                `json:"error,omitempty"`
	RetryCount  int                   `json:"retry_count" validate:"gte=0"`
	Data        json.RawMessage       `json:"data,omitempty"`
	Segments    map[int]ResourceState `json:"segments,omitempty" validate:"omitempty,dive,oneof=pending generating done failed"`
}

// NewSubStepProgress returns a pending progress record.
func NewSubStepProgress() *SubStepProgress {
	return &SubStepProgress{Status: SubStepPending}
}

// Start marks the step in progress. The original start time survives resumption.
func (p *SubStepProgress) Start(now time.Time) {
	if p.StartedAt == nil {
		started := now.UTC()
		p.StartedAt = &started
	}
	p.Status = SubStepInProgress
	p.Error = ""
	p.CompletedAt = nil
}

// Complete marks the step completed and stores its result.
func (p *SubStepProgress) Complete(now time.Time, data json.RawMessage) {
	if p.StartedAt == nil {
		p.Start(now)
	}
	completed := now.UTC()
	p.Status = SubStepCompleted
	p.CompletedAt = &completed
	p.Error = ""
	if data != nil {
		p.Data = data
	}
}

// Fail marks the step failed with a non-empty error message.
func (p *SubStepProgress) Fail(err error) {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	p.Status = SubStepFailed
	p.Error = msg
	p.CompletedAt = nil
}

// Skip marks the step skipped. The reason is kept in Data.
func (p *SubStepProgress) Skip(now time.Time, reason string) {
	completed := now.UTC()
	p.Status = SubStepSkipped
	p.CompletedAt = &completed
	p.Error = ""
	if reason != "" {
		p.Data, _ = json.Marshal(map[string]string{"skipped_reason": reason})
	}
}

// Reset returns a failed or reopened step to pending and counts the retry.
func (p *SubStepProgress) Reset() {
	p.Status = SubStepPending
	p.Error = ""
	p.CompletedAt = nil
	p.RetryCount++
}

// Clone returns a deep copy.
func (p *SubStepProgress) Clone() *SubStepProgress {
	if p == nil {
		return nil
	}
	clone := *p
	if p.StartedAt != nil {
		t := *p.StartedAt
		clone.StartedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		clone.CompletedAt = &t
	}
	if p.Data != nil {
		clone.Data = append(json.RawMessage(nil), p.Data...)
	}
	clone.Segments = maps.Clone(p.Segments)
	return &clone
}

// DecodeData unmarshals the stored step result into dst.
func (p *SubStepProgress) DecodeData(dst any) error {
	if p == nil || len(p.Data) == 0 {
		return errors.New("step has no stored data")
	}
	if err := json.Unmarshal(p.Data, dst); err != nil {
		return fmt.Errorf("decode step data: %w", err)
	}
	return nil
}

func (p *SubStepProgress) validateInvariants() error {
	if p.CompletedAt != nil && !p.Status.Finished() {
		return fmt.Errorf("completed_at set on %s step", p.Status)
	}
	if p.Error != "" && p.Status != SubStepFailed {
		return fmt.Errorf("error set on %s step", p.Status)
	}
	if p.Status == SubStepFailed && p.Error == "" {
		return errors.New("failed step without error")
	}
	return nil
}
