package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"newscast/internal/logging"
	"newscast/internal/production"
	"newscast/internal/providers"
	"newscast/internal/services"
	"newscast/internal/tracker"
)

type unitOutcome int

const (
	unitDone unitOutcome = iota
	unitStopped
	unitExhausted
	unitFatal
)

// FanOutData is stored when a fan-out step completes.
type FanOutData struct {
	Segments int `json:"segments"`
}

// runFanOut generates kind for every segment that is not done. Unit failures stay
// on the tracker; the step fails only once a unit has no attempts left or hit a
// permanent error.
func (r *Runner) runFanOut(ctx context.Context, prod *Production, step production.Step, kind production.ResourceKind) (production.SubStepProgress, error) {
	segments := prod.Segments()
	if len(segments) == 0 {
		return prod.Progress(step), fmt.Errorf("%w: %s needs frozen segments", ErrStepNotReady, step)
	}
	switch kind {
	case production.ResourceAudio:
		if r.deps.Providers.Speech == nil {
			return prod.Progress(step), missingCollaborator("speech synthesizer")
		}
	case production.ResourceVideo:
		if r.deps.Providers.Video == nil {
			return prod.Progress(step), missingCollaborator("video synthesizer")
		}
	}

	outcomes := make([]unitOutcome, len(segments))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, r.cfg.Pipeline.Concurrency))
	for i, segment := range segments {
		if prod.tracker.Status(segment.Index).State(kind) == production.ResourceDone {
			continue
		}
		group.Go(func() error {
			outcomes[i] = r.generateUnit(groupCtx, prod, segment, kind)
			return nil
		})
	}
	_ = group.Wait()

	var failed []string
	for i, outcome := range outcomes {
		if outcome == unitExhausted || outcome == unitFatal {
			failed = append(failed, tracker.Unit{Index: segments[i].Index, Kind: kind}.String())
		}
	}

	switch {
	case prod.tracker.AllReadyFor(kind, len(segments)):
		return r.complete(ctx, prod, step, FanOutData{Segments: len(segments)})
	case len(failed) > 0:
		return prod.Progress(step), services.Wrap(services.ErrGenerationFailed, "wizard", string(step),
			fmt.Sprintf("%d unit(s) failed: %s", len(failed), strings.Join(failed, ", ")), nil)
	case prod.Aborted():
		return prod.Progress(step), ErrAborted
	case ctx.Err() != nil:
		return prod.Progress(step), ctx.Err()
	default:
		return prod.Progress(step), nil
	}
}

// generateUnit drives one (segment, kind) unit until it is done, its budget is
// spent, or the production stops. Units already generating resume without
// consuming another attempt.
func (r *Runner) generateUnit(ctx context.Context, prod *Production, segment production.Segment, kind production.ResourceKind) unitOutcome {
	budget := max(1, r.cfg.Pipeline.RetryBudget)
	ctx = services.WithSegmentIndex(ctx, segment.Index)
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldResourceKind, string(kind)))

	for {
		if err := r.checkAbort(ctx, prod); err != nil {
			return unitStopped
		}

		status := prod.tracker.Status(segment.Index)
		switch status.State(kind) {
		case production.ResourceDone:
			return unitDone
		case production.ResourceFailed:
			if status.Attempts(kind) >= budget {
				return unitExhausted
			}
			fallthrough
		case production.ResourcePending:
			if _, err := prod.tracker.SetStatus(segment.Index, kind, production.ResourceGenerating); err != nil {
				logging.ErrorWithContext(logger, "unit transition rejected", "unit_transition_failed", logging.Error(err))
				return unitFatal
			}
			r.save(ctx, prod)
		}

		attempt := prod.tracker.Status(segment.Index).Attempts(kind)
		attrs := logging.SegmentAttrs(segment.Index, string(kind), attempt)
		logger.Debug("generation call started", logging.Args(attrs...)...)

		url, duration, err := r.generate(ctx, prod, segment, kind)
		if err == nil {
			if _, setErr := prod.tracker.SetStatus(segment.Index, kind, production.ResourceDone,
				tracker.WithURL(url), tracker.WithDuration(duration)); setErr != nil {
				logging.ErrorWithContext(logger, "unit transition rejected", "unit_transition_failed", logging.Error(setErr))
				return unitFatal
			}
			r.save(ctx, prod)
			logger.Info("unit generated", logging.Args(append(attrs, logging.Float64("duration", duration))...)...)
			return unitDone
		}

		if _, setErr := prod.tracker.SetStatus(segment.Index, kind, production.ResourceFailed, tracker.WithError(err.Error())); setErr != nil {
			logging.ErrorWithContext(logger, "unit transition rejected", "unit_transition_failed", logging.Error(setErr))
			return unitFatal
		}
		r.save(ctx, prod)

		retryable := services.IsRetryable(err)
		logging.WarnWithContext(logger, "unit generation failed", "unit_generation_failed",
			append(attrs,
				logging.Error(err),
				logging.Bool("retryable", retryable),
				logging.Int("budget", budget),
				logging.String(logging.FieldImpact, "segment retried until its budget is spent"),
			)...,
		)
		if ctx.Err() != nil {
			return unitStopped
		}
		if !retryable {
			return unitFatal
		}
		if attempt >= budget {
			return unitExhausted
		}
		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			return unitStopped
		}
	}
}

// generate performs one provider call for the unit under the per-call timeout.
func (r *Runner) generate(ctx context.Context, prod *Production, segment production.Segment, kind production.ResourceKind) (string, float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout())
	defer cancel()

	if kind == production.ResourceAudio {
		speech, err := r.deps.Providers.Speech.Synthesize(callCtx, segment.Text, r.voiceFor(prod, segment.Speaker))
		if err != nil {
			return "", 0, err
		}
		if strings.TrimSpace(speech.URL) == "" {
			return "", 0, services.Wrap(services.ErrGenerationFailed, "wizard", "synthesize speech", "provider returned no audio url", nil)
		}
		return speech.URL, speech.Duration, nil
	}

	audioURL := prod.tracker.Status(segment.Index).AudioURL
	if audioURL == "" {
		return "", 0, services.Wrap(services.ErrValidation, "wizard", "synthesize video", "segment has no narration audio", nil)
	}
	prompt := segment.VisualPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = segment.Text
	}
	url, err := r.deps.Providers.Video.Synthesize(callCtx, providers.VideoRequest{
		Segment:        segment.Index,
		Prompt:         prompt,
		ReferenceImage: segment.ReferenceImage,
		AudioURL:       audioURL,
		ShotType:       segment.ShotType,
	})
	if err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(url) == "" {
		return "", 0, services.Wrap(services.ErrGenerationFailed, "wizard", "synthesize video", "provider returned no video url", nil)
	}
	return url, 0, nil
}

func (r *Runner) voiceFor(prod *Production, speaker string) string {
	if voice, ok := prod.Brief.Channel.Voices[speaker]; ok && voice != "" {
		return voice
	}
	return r.cfg.VoiceFor(speaker)
}

// backoff doubles the configured base delay per attempt, capped at 30 seconds.
func (r *Runner) backoff(attempt int) time.Duration {
	base := time.Duration(r.cfg.Pipeline.RetryBackoffMillis) * time.Millisecond
	if base <= 0 {
		return 0
	}
	delay := base << min(max(attempt-1, 0), 6)
	return min(delay, 30*time.Second)
}
