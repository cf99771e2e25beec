package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newscast/internal/checkpoint"
	"newscast/internal/config"
	"newscast/internal/logging"
	"newscast/internal/notifications"
	"newscast/internal/production"
	"newscast/internal/providers"
	"newscast/internal/render"
	"newscast/internal/services"
	"newscast/internal/timeline"
)

var (
	// ErrStepNotReady reports that an earlier step has not finished.
	ErrStepNotReady = errors.New("step not ready")
	// ErrAborted reports that the production was aborted.
	ErrAborted = errors.New("production aborted")
	// ErrStepFailed wraps the failure of a step.
	ErrStepFailed = errors.New("step failed")
)

// Checkpointer persists production snapshots and exposes the abort flag.
type Checkpointer interface {
	Save(ctx context.Context, snap checkpoint.Snapshot) error
	AbortRequested(ctx context.Context, id string) (bool, error)
	ClearAbort(ctx context.Context, id string) error
}

// Renderer submits timelines and waits for the render job.
type Renderer interface {
	Submit(ctx context.Context, spec timeline.Spec) (string, error)
	AwaitCompletion(ctx context.Context, job render.Job, maxWait, interval time.Duration) (render.Result, error)
}

// Deps bundles the collaborators of a Runner.
type Deps struct {
	Providers   providers.Set
	Checkpoints Checkpointer
	Renderer    Renderer
	Timeline    *timeline.Builder
	Notifier    notifications.Service
	Logger      *slog.Logger
	Now         func() time.Time
}

// Runner executes wizard steps.
type Runner struct {
	cfg      *config.Config
	deps     Deps
	logger   *slog.Logger
	notifier notifications.Service
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewRunner constructs a runner. Missing logger, notifier, clock and timeline
// builder fall back to quiet defaults.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	r := &Runner{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "wizard"),
		notifier: deps.Notifier,
		now:      deps.Now,
		sleep:    sleepContext,
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(&config.Config{})
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.deps.Timeline == nil {
		r.deps.Timeline = timeline.NewBuilder(timeline.OptionsFromConfig(cfg.Timeline), deps.Logger)
	}
	return r
}

// RunStep executes step once. A completed or skipped step is returned unchanged.
// Steps before step must be finished. A failed step has to be reset with Retry
// before it runs again.
func (r *Runner) RunStep(ctx context.Context, prod *Production, step production.Step) (production.SubStepProgress, error) {
	if !step.Valid() || step == production.StepDone {
		return production.SubStepProgress{}, services.Wrap(services.ErrValidation, "wizard", "run step", fmt.Sprintf("unknown step %q", step), nil)
	}
	current := prod.Progress(step)
	if current.Status.Finished() {
		return current, nil
	}
	state := prod.State()
	for _, prior := range production.Steps() {
		if prior == step {
			break
		}
		if !state.Finished(prior) {
			return current, fmt.Errorf("%w: %s waits for %s", ErrStepNotReady, step, prior)
		}
	}
	if current.Status == production.SubStepFailed {
		return current, fmt.Errorf("%w: %s failed: %s (retry it first)", ErrStepFailed, step, current.Error)
	}
	if err := r.checkAbort(ctx, prod); err != nil {
		return current, err
	}

	ctx = services.WithProductionID(ctx, prod.ID)
	ctx = services.WithStep(ctx, string(step))
	logger := logging.WithContext(ctx, r.logger)

	started := r.now()
	prod.mutate(step, func(p *production.SubStepProgress) { p.Start(started) })
	r.save(ctx, prod)
	logger.Info("step started",
		logging.String(logging.FieldEventType, "step_start"),
		logging.String("step_label", StepLabel(step)),
	)

	progress, err := r.dispatch(ctx, prod, step)
	if err != nil {
		if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
			logger.Info("step interrupted", logging.String(logging.FieldEventType, "step_interrupted"), logging.Error(err))
			return progress, err
		}
		return r.failStep(ctx, prod, step, err)
	}

	switch progress.Status {
	case production.SubStepCompleted, production.SubStepSkipped:
		logger.Info("step completed",
			logging.String(logging.FieldEventType, "step_complete"),
			logging.String("status", string(progress.Status)),
			logging.Duration("step_duration", r.now().Sub(started)),
		)
	default:
		logger.Info("step paused",
			logging.String(logging.FieldEventType, "step_paused"),
			logging.String("status", string(progress.Status)),
		)
	}
	return progress, nil
}

// Run executes steps from the current one until the production is done, a step
// fails, a step remains in progress, or the production is aborted.
func (r *Runner) Run(ctx context.Context, prod *Production) error {
	step := prod.CurrentStep()
	ran := false
	for step != production.StepDone {
		progress, err := r.RunStep(ctx, prod, step)
		if err != nil {
			return err
		}
		if !progress.Status.Finished() {
			return nil
		}
		ran = true
		next, ok := Advance(step)
		if !ok {
			break
		}
		step = next
	}
	if ran && prod.CurrentStep() == production.StepDone {
		payload := notifications.Payload{"title": prod.Brief.Title, "production_id": prod.ID}
		var published PublishData
		if progress := prod.Progress(production.StepPublish); progress.Status == production.SubStepCompleted {
			if err := progress.DecodeData(&published); err == nil {
				payload["url"] = published.URL
			}
		}
		r.notify(ctx, notifications.EventProductionCompleted, payload)
		logging.WithContext(services.WithProductionID(ctx, prod.ID), r.logger).Info("production complete",
			logging.String(logging.FieldEventType, "production_complete"),
		)
	}
	return nil
}

// Resume clears an abort request so the production can run again.
func (r *Runner) Resume(ctx context.Context, prod *Production) error {
	if r.deps.Checkpoints != nil {
		if err := r.deps.Checkpoints.ClearAbort(ctx, prod.ID); err != nil {
			return err
		}
	}
	prod.resume()
	return nil
}

func (r *Runner) dispatch(ctx context.Context, prod *Production, step production.Step) (production.SubStepProgress, error) {
	switch step {
	case production.StepNewsFetch:
		return r.runNewsFetch(ctx, prod)
	case production.StepNewsSelect:
		return r.runNewsSelect(ctx, prod)
	case production.StepScriptGenerate:
		return r.runScriptGenerate(ctx, prod)
	case production.StepScriptReview:
		return r.runScriptReview(ctx, prod)
	case production.StepAudioGenerate, production.StepVideoGenerate:
		kind, _ := step.ResourceKind()
		return r.runFanOut(ctx, prod, step, kind)
	case production.StepRenderFinal:
		return r.runRenderFinal(ctx, prod)
	case production.StepPublish:
		return r.runPublish(ctx, prod)
	default:
		return prod.Progress(step), services.Wrap(services.ErrValidation, "wizard", "dispatch", fmt.Sprintf("no handler for %s", step), nil)
	}
}

func (r *Runner) complete(ctx context.Context, prod *Production, step production.Step, data any) (production.SubStepProgress, error) {
	raw, err := marshalData(data)
	if err != nil {
		return prod.Progress(step), fmt.Errorf("encode %s data: %w", step, err)
	}
	now := r.now()
	progress := prod.mutate(step, func(p *production.SubStepProgress) { p.Complete(now, raw) })
	r.save(ctx, prod)
	return progress, nil
}

func marshalData(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *Runner) failStep(ctx context.Context, prod *Production, step production.Step, stepErr error) (production.SubStepProgress, error) {
	progress := prod.mutate(step, func(p *production.SubStepProgress) { p.Fail(stepErr) })
	r.save(ctx, prod)

	details := services.Details(stepErr)
	attrs := []logging.Attr{
		logging.String("status", string(production.SubStepFailed)),
		logging.Alert("step_failure"),
		logging.String("error_kind", string(details.Kind)),
		logging.String("error_operation", details.Operation),
		logging.String(logging.FieldErrorHint, hintFor(details.Kind)),
		logging.String(logging.FieldEventType, "step_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stepErr))
	}
	logging.WithContext(ctx, r.logger).Error("step failed", logging.Args(attrs...)...)

	r.notify(ctx, notifications.EventStepFailed, notifications.Payload{
		"title":         prod.Brief.Title,
		"production_id": prod.ID,
		"step":          string(step),
		"error":         stepErr,
	})
	return progress, fmt.Errorf("%w: %s: %w", ErrStepFailed, step, stepErr)
}

// save checkpoints prod. Failures are logged and the pipeline carries on with the
// in-memory state, which stays authoritative. Snapshot and write happen under the
// production's save lock, so concurrent fan-out workers persist in snapshot order.
func (r *Runner) save(ctx context.Context, prod *Production) {
	if r.deps.Checkpoints == nil {
		return
	}
	prod.saveMu.Lock()
	defer prod.saveMu.Unlock()
	if err := r.deps.Checkpoints.Save(context.WithoutCancel(ctx), prod.Snapshot()); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "checkpoint save failed", "checkpoint_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the checkpoint store; the next save retries"),
			logging.String(logging.FieldImpact, "progress since the last save is lost if the process exits"),
		)
	}
}

func (r *Runner) checkAbort(ctx context.Context, prod *Production) error {
	if prod.Aborted() {
		return ErrAborted
	}
	if r.deps.Checkpoints != nil {
		requested, err := r.deps.Checkpoints.AbortRequested(ctx, prod.ID)
		if err != nil {
			r.logger.Debug("abort flag unavailable", logging.String(logging.FieldProductionID, prod.ID), logging.Error(err))
		} else if requested {
			prod.Abort()
			return ErrAborted
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (r *Runner) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("notification skipped during shutdown", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy_topic in config"),
			logging.String(logging.FieldImpact, "notification not delivered"),
		)
	}
}

func (r *Runner) callTimeout() time.Duration {
	if timeout := r.cfg.GenerationTimeout(); timeout > 0 {
		return timeout
	}
	return 5 * time.Minute
}

func hintFor(kind services.ErrorKind) string {
	switch kind {
	case services.KindRenderTimeout:
		return "render still running; retry render_final to keep waiting"
	case services.KindRenderFailed, services.KindInvalidTimeline:
		return "inspect the timeline with `newscast production timeline`"
	case services.KindGenerationFailed:
		return "regenerate the failed segments or retry the step"
	case services.KindConfiguration:
		return "check config.toml and provider credentials"
	default:
		return "retry the step with `newscast production retry`"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
