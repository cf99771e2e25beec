package wizard

import (
	"context"
	"fmt"

	"newscast/internal/logging"
	"newscast/internal/production"
	"newscast/internal/services"
)

// Retry returns a failed step to pending. Fan-out steps also get a fresh attempt
// budget for every unit, so failed units are generated again on the next run.
func (r *Runner) Retry(ctx context.Context, prod *Production, step production.Step) (production.SubStepProgress, error) {
	if !step.Valid() || step == production.StepDone {
		return production.SubStepProgress{}, services.Wrap(services.ErrValidation, "wizard", "retry", fmt.Sprintf("unknown step %q", step), nil)
	}
	current := prod.Progress(step)
	if current.Status != production.SubStepFailed {
		return current, services.Wrap(services.ErrValidation, "wizard", "retry", fmt.Sprintf("%s is %s, only failed steps can be retried", step, current.Status), nil)
	}
	if kind, ok := step.ResourceKind(); ok {
		prod.tracker.ResetAttempts(kind)
	}
	progress := prod.mutate(step, func(p *production.SubStepProgress) { p.Reset() })
	r.save(ctx, prod)
	logging.WithContext(services.WithProductionID(ctx, prod.ID), r.logger).Info("step reset for retry",
		logging.String(logging.FieldStep, string(step)),
		logging.Int("retry_count", progress.RetryCount),
		logging.String(logging.FieldEventType, "step_retry"),
	)
	return progress, nil
}

// Regenerate discards one resource and reopens the steps that depend on it: the
// fan-out step of kind, render_final and publish. A done resource loses its URL
// before this returns; the provider call happens on the next run. Other resources
// are untouched.
func (r *Runner) Regenerate(ctx context.Context, prod *Production, index int, kind production.ResourceKind) (production.SegmentStatus, error) {
	count := prod.segmentCount()
	if index < 0 || index >= count {
		return production.SegmentStatus{}, services.Wrap(services.ErrValidation, "wizard", "regenerate",
			fmt.Sprintf("segment %d out of range (production has %d)", index, count), nil)
	}

	status := prod.tracker.Status(index)
	var err error
	switch status.State(kind) {
	case production.ResourceDone:
		status, err = prod.tracker.ForceRegenerate(index, kind)
	case production.ResourcePending, production.ResourceFailed:
		status, err = prod.tracker.SetStatus(index, kind, production.ResourceGenerating)
	}
	if err != nil {
		return status, err
	}

	for _, step := range []production.Step{production.StepForKind(kind), production.StepRenderFinal, production.StepPublish} {
		prod.mutate(step, func(p *production.SubStepProgress) {
			if p.Status == production.SubStepPending {
				return
			}
			p.Reset()
			if step != production.StepForKind(kind) {
				p.Data = nil
			}
		})
	}
	r.save(ctx, prod)

	logging.WithContext(services.WithProductionID(ctx, prod.ID), r.logger).Info("resource queued for regeneration",
		logging.Int(logging.FieldSegmentIndex, index),
		logging.String(logging.FieldResourceKind, string(kind)),
		logging.String(logging.FieldEventType, "force_regenerate"),
	)
	return status, nil
}
