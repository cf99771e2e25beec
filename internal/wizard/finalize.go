package wizard

import (
	"context"
	"errors"
	"slices"
	"strings"

	"newscast/internal/logging"
	"newscast/internal/notifications"
	"newscast/internal/production"
	"newscast/internal/providers"
	"newscast/internal/render"
	"newscast/internal/services"
	"newscast/internal/timeline"
)

// RenderData is stored by render_final. JobID is persisted as soon as the job is
// submitted so a resumed production waits on the same job instead of paying for
// a second render.
type RenderData struct {
	JobID            string  `json:"job_id"`
	TimelineDuration float64 `json:"timeline_duration,omitempty"`
	URL              string  `json:"url,omitempty"`
	PosterURL        string  `json:"poster_url,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
}

// PublishData is stored by publish.
type PublishData struct {
	PublishedID string `json:"published_id"`
	URL         string `json:"url"`
}

// Timeline derives the render timeline from the current segment resources. It
// is recomputed on every call and never persisted.
func (r *Runner) Timeline(prod *Production) (timeline.Spec, error) {
	segments := prod.Segments()
	inputs := make([]timeline.Input, 0, len(segments))
	for _, segment := range segments {
		status := prod.tracker.Status(segment.Index)
		inputs = append(inputs, timeline.Input{
			Segment:       segment,
			AudioURL:      status.AudioURL,
			VideoURL:      status.VideoURL,
			AudioDuration: status.AudioDuration,
		})
	}
	return r.deps.Timeline.Build(inputs, timeline.Meta{
		Title:   prod.Brief.Title,
		Date:    prod.Brief.Date,
		Channel: prod.Brief.Channel,
	})
}

func (r *Runner) runRenderFinal(ctx context.Context, prod *Production) (production.SubStepProgress, error) {
	step := production.StepRenderFinal
	if r.deps.Renderer == nil {
		return prod.Progress(step), missingCollaborator("render service")
	}
	logger := logging.WithContext(ctx, r.logger)

	var data RenderData
	if progress := prod.Progress(step); len(progress.Data) > 0 {
		_ = progress.DecodeData(&data)
	}

	if data.JobID == "" {
		spec, err := r.Timeline(prod)
		if err != nil {
			return prod.Progress(step), err
		}
		jobID, err := r.deps.Renderer.Submit(ctx, spec)
		if err != nil {
			return prod.Progress(step), err
		}
		data = RenderData{JobID: jobID, TimelineDuration: spec.Duration}
		if err := r.storeData(prod, step, data); err != nil {
			return prod.Progress(step), err
		}
		r.save(ctx, prod)
		logger.Info("render submitted",
			logging.String("job_id", jobID),
			logging.Float64("timeline_duration", spec.Duration),
			logging.Int("tracks", len(spec.Tracks)),
		)
	} else {
		logger.Info("resuming render wait", logging.String("job_id", data.JobID))
	}

	job := render.Job{ID: data.JobID, Duration: data.TimelineDuration}
	result, err := r.deps.Renderer.AwaitCompletion(ctx, job, r.cfg.RenderMaxWait(), r.cfg.RenderPollInterval())
	if err != nil {
		if errors.Is(err, services.ErrRenderFailed) {
			// The job is dead; a retry must submit a new one.
			prod.mutate(step, func(p *production.SubStepProgress) { p.Data = nil })
		}
		return prod.Progress(step), err
	}

	data.URL = result.URL
	data.PosterURL = result.PosterURL
	data.Duration = result.Duration
	data.Cost = result.Cost
	progress, err := r.complete(ctx, prod, step, data)
	if err != nil {
		return progress, err
	}
	r.notify(ctx, notifications.EventRenderCompleted, notifications.Payload{
		"title":         prod.Brief.Title,
		"production_id": prod.ID,
		"url":           data.URL,
		"duration":      data.Duration,
		"cost":          data.Cost,
	})
	return progress, nil
}

func (r *Runner) runPublish(ctx context.Context, prod *Production) (production.SubStepProgress, error) {
	step := production.StepPublish
	var rendered RenderData
	if err := decodeStep(prod, production.StepRenderFinal, &rendered); err != nil {
		return prod.Progress(step), err
	}
	if strings.TrimSpace(rendered.URL) == "" {
		return prod.Progress(step), services.Wrap(services.ErrValidation, "wizard", string(step), "render produced no video url", nil)
	}

	if r.deps.Providers.Publisher == nil {
		now := r.now()
		progress := prod.mutate(step, func(p *production.SubStepProgress) { p.Skip(now, "publishing disabled") })
		r.save(ctx, prod)
		return progress, nil
	}

	meta := r.publishMetadata(prod)
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout())
	defer cancel()
	publishedID, err := r.deps.Providers.Publisher.Publish(callCtx, rendered.URL, meta)
	if err != nil {
		return prod.Progress(step), err
	}
	logging.WithContext(ctx, r.logger).Info("production published", logging.String("published_id", publishedID))
	return r.complete(ctx, prod, step, PublishData{PublishedID: publishedID, URL: rendered.URL})
}

func (r *Runner) publishMetadata(prod *Production) providers.Metadata {
	var review production.Review
	reviewed := prod.Progress(production.StepScriptReview)
	_ = reviewed.DecodeData(&review)

	title := strings.TrimSpace(review.Script.Title)
	if title == "" {
		title = prod.Brief.Title
	}
	tags := slices.Clone(r.cfg.Publish.Tags)
	for _, tag := range review.Script.Tags {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	language := prod.Brief.Language
	if language == "" {
		language = r.cfg.Publish.Language
	}
	return providers.Metadata{
		Title:         title,
		Description:   review.Script.Description,
		Tags:          tags,
		CategoryID:    r.cfg.Publish.CategoryID,
		PrivacyStatus: r.cfg.Publish.PrivacyStatus,
		Language:      language,
	}
}

func (r *Runner) storeData(prod *Production, step production.Step, data any) error {
	raw, err := marshalData(data)
	if err != nil {
		return err
	}
	prod.mutate(step, func(p *production.SubStepProgress) { p.Data = raw })
	return nil
}
