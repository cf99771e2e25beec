package wizard

import (
	"context"
	"fmt"
	"strings"

	"newscast/internal/logging"
	"newscast/internal/production"
	"newscast/internal/services"
)

// NewsData is stored by news_fetch and news_select.
type NewsData struct {
	Items []production.NewsItem `json:"items"`
}

func (r *Runner) runNewsFetch(ctx context.Context, prod *Production) (production.SubStepProgress, error) {
	step := production.StepNewsFetch
	if r.deps.Providers.News == nil {
		return prod.Progress(step), missingCollaborator("news source")
	}
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout())
	defer cancel()

	items, err := r.deps.Providers.News.FetchNews(callCtx, prod.Brief.Date, prod.Brief.Criteria)
	if err != nil {
		return prod.Progress(step), err
	}
	if len(items) == 0 {
		return prod.Progress(step), services.Wrap(services.ErrNotFound, "wizard", string(step), "news source returned no stories", nil)
	}
	logging.WithContext(ctx, r.logger).Info("news fetched", logging.Int("items", len(items)))
	return r.complete(ctx, prod, step, NewsData{Items: items})
}

func (r *Runner) runNewsSelect(ctx context.Context, prod *Production) (production.SubStepProgress, error) {
	step := production.StepNewsSelect
	if r.deps.Providers.Selector == nil {
		return prod.Progress(step), missingCollaborator("news selector")
	}
	var fetched NewsData
	if err := decodeStep(prod, production.StepNewsFetch, &fetched); err != nil {
		return prod.Progress(step), err
	}
	selected, err := r.deps.Providers.Selector.Select(ctx, fetched.Items, prod.Brief)
	if err != nil {
		return prod.Progress(step), err
	}
	if len(selected) == 0 {
		return prod.Progress(step), services.Wrap(services.ErrValidation, "wizard", string(step), "no stories selected", nil)
	}
	return r.complete(ctx, prod, step, NewsData{Items: selected})
}

func (r *Runner) runScriptGenerate(ctx context.Context, prod *Production) (production.SubStepProgress, error) {
	step := production.StepScriptGenerate
	if r.deps.Providers.Scripts == nil {
		return prod.Progress(step), missingCollaborator("script generator")
	}
	var selected NewsData
	if err := decodeStep(prod, production.StepNewsSelect, &selected); err != nil {
		return prod.Progress(step), err
	}
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout())
	defer cancel()

	script, err := r.deps.Providers.Scripts.GenerateScript(callCtx, selected.Items, prod.Brief.NarrativeHint)
	if err != nil {
		return prod.Progress(step), err
	}
	if len(script.Scenes) == 0 {
		return prod.Progress(step), services.Wrap(services.ErrGenerationFailed, "wizard", string(step), "script has no scenes", nil)
	}
	if strings.TrimSpace(script.Title) == "" {
		script.Title = prod.Brief.Title
	}
	logging.WithContext(ctx, r.logger).Info("script generated", logging.Int("scenes", len(script.Scenes)))
	return r.complete(ctx, prod, step, script)
}

// runScriptReview reviews the script, corrects shot types and freezes the segments.
// Without a reviewer the script is approved as written.
func (r *Runner) runScriptReview(ctx context.Context, prod *Production) (production.SubStepProgress, error) {
	step := production.StepScriptReview
	var script production.Script
	if err := decodeStep(prod, production.StepScriptGenerate, &script); err != nil {
		return prod.Progress(step), err
	}

	review := production.Review{Approved: true, Script: script}
	if r.deps.Providers.Reviewer != nil {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout())
		defer cancel()
		reviewed, err := r.deps.Providers.Reviewer.Review(callCtx, script)
		if err != nil {
			return prod.Progress(step), err
		}
		review = reviewed
	}
	if !review.Approved {
		return prod.Progress(step), services.Wrap(services.ErrValidation, "wizard", string(step), "script rejected: "+strings.TrimSpace(review.Notes), nil)
	}

	corrected, corrections := production.CorrectShots(review.Script)
	review.Script = corrected
	review.Corrections = append(review.Corrections, corrections...)
	logger := logging.WithContext(ctx, r.logger)
	for _, correction := range corrections {
		logger.Info("shot type corrected",
			logging.Int(logging.FieldSegmentIndex, correction.Index),
			logging.String("from", correction.From),
			logging.String("to", correction.To),
			logging.String("reason", correction.Reason),
		)
	}

	segments, err := production.SegmentsFromScript(review.Script)
	if err != nil {
		return prod.Progress(step), services.Wrap(services.ErrValidation, "wizard", string(step), "freeze segments", err)
	}
	if err := production.ValidateSegments(segments); err != nil {
		return prod.Progress(step), services.Wrap(services.ErrValidation, "wizard", string(step), "freeze segments", err)
	}
	prod.freezeSegments(segments)
	logger.Info("segments frozen", logging.Int("segments", len(segments)), logging.Int("corrections", len(corrections)))
	return r.complete(ctx, prod, step, review)
}

func decodeStep(prod *Production, step production.Step, dst any) error {
	progress := prod.Progress(step)
	if err := progress.DecodeData(dst); err != nil {
		return services.Wrap(services.ErrValidation, "wizard", string(step), "read step result", err)
	}
	return nil
}

func missingCollaborator(name string) error {
	return services.Wrap(services.ErrConfiguration, "wizard", "run step", fmt.Sprintf("%s not configured", name), nil)
}
