package wizard_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"newscast/internal/notifications"
	"newscast/internal/production"
	"newscast/internal/services"
	"newscast/internal/testsupport"
	"newscast/internal/wizard"
)

func TestAdvanceNeverRevisitsSteps(t *testing.T) {
	step := production.StepNewsFetch
	seen := map[production.Step]bool{}
	for {
		if seen[step] {
			t.Fatalf("step %s visited twice", step)
		}
		seen[step] = true
		next, ok := wizard.Advance(step)
		if !ok {
			break
		}
		if next.Index() <= step.Index() {
			t.Fatalf("advance moved backwards from %s to %s", step, next)
		}
		step = next
	}
	if step != production.StepDone {
		t.Fatalf("expected to stop at done, stopped at %s", step)
	}
	// Every runnable step plus done.
	if want := len(production.Steps()) + 1; len(seen) != want {
		t.Fatalf("expected %d steps, visited %d", want, len(seen))
	}
}

func TestRunCompletesProduction(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	prod := h.newProduction("prod-full")

	if err := h.runner.Run(ctx, prod); err != nil {
		t.Fatalf("run: %v", err)
	}
	if step := prod.CurrentStep(); step != production.StepDone {
		t.Fatalf("expected done, got %s", step)
	}
	if got := h.speech.totalCalls(); got != 3 {
		t.Fatalf("expected 3 speech calls, got %d", got)
	}
	for i := 0; i < 3; i++ {
		if got := h.video.count(i); got != 1 {
			t.Fatalf("segment %d: expected 1 video call, got %d", i, got)
		}
		status := prod.Status(i)
		if !status.Ready() || status.AudioURL == "" || status.VideoURL == "" {
			t.Fatalf("segment %d not render ready: %+v", i, status)
		}
		if h.video.audio[i] != status.AudioURL {
			t.Fatalf("segment %d: video request used audio %q, want %q", i, h.video.audio[i], status.AudioURL)
		}
	}
	if h.renderer.submits != 1 {
		t.Fatalf("expected one render submit, got %d", h.renderer.submits)
	}
	if got := h.publisher.calls.Load(); got != 1 {
		t.Fatalf("expected one publish, got %d", got)
	}
	if h.publisher.meta.Title != "Evening bulletin" {
		t.Fatalf("unexpected publish title %q", h.publisher.meta.Title)
	}
	if !h.notifier.has(notifications.EventRenderCompleted) || !h.notifier.has(notifications.EventProductionCompleted) {
		t.Fatalf("expected render and completion notifications, got %v", h.notifier.events)
	}

	var rendered wizard.RenderData
	progress := prod.Progress(production.StepRenderFinal)
	if err := progress.DecodeData(&rendered); err != nil {
		t.Fatalf("decode render data: %v", err)
	}
	if rendered.JobID != "job-1" || rendered.URL == "" || rendered.Cost != 0.35 {
		t.Fatalf("unexpected render data %+v", rendered)
	}

	reloaded := h.reload(t, "prod-full")
	if step := reloaded.CurrentStep(); step != production.StepDone {
		t.Fatalf("reloaded production at %s, want done", step)
	}
	if len(reloaded.Segments()) != 3 {
		t.Fatalf("expected 3 persisted segments, got %d", len(reloaded.Segments()))
	}
	for i := 0; i < 3; i++ {
		if !reloaded.Status(i).Ready() {
			t.Fatalf("reloaded segment %d not ready", i)
		}
	}

	if err := h.runner.Run(ctx, reloaded); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if h.speech.totalCalls() != 3 || h.renderer.submits != 1 {
		t.Fatal("running a finished production must not call collaborators again")
	}
}

func TestRunStepIsIdempotentOnCompletedStep(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	prod := h.newProduction("prod-idem")

	if _, err := h.runner.RunStep(ctx, prod, production.StepNewsFetch); err != nil {
		t.Fatalf("run news_fetch: %v", err)
	}
	first, err := h.runner.RunStep(ctx, prod, production.StepNewsFetch)
	if err != nil {
		t.Fatalf("rerun news_fetch: %v", err)
	}
	second, err := h.runner.RunStep(ctx, prod, production.StepNewsFetch)
	if err != nil {
		t.Fatalf("rerun news_fetch: %v", err)
	}
	if first.Status != production.SubStepCompleted {
		t.Fatalf("expected completed, got %s", first.Status)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("completed step changed between runs:\n%+v\n%+v", first, second)
	}
	if got := h.news.calls.Load(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
}

func TestRunStepRequiresEarlierSteps(t *testing.T) {
	h := newHarness(t, 2)
	prod := h.newProduction("prod-order")

	_, err := h.runner.RunStep(context.Background(), prod, production.StepScriptGenerate)
	if !errors.Is(err, wizard.ErrStepNotReady) {
		t.Fatalf("expected ErrStepNotReady, got %v", err)
	}
	if status := prod.Progress(production.StepScriptGenerate).Status; status != production.SubStepPending {
		t.Fatalf("step should stay pending, got %s", status)
	}
}

func TestVideoFailureExhaustsRetryBudget(t *testing.T) {
	h := newHarness(t, 3, testsupport.WithRetryBudget(3))
	ctx := context.Background()
	prod := h.newProduction("prod-video-fail")
	h.video.setFailure(2, services.Wrap(services.ErrTransient, "video", "generate", "provider overloaded", nil))

	err := h.runner.Run(ctx, prod)
	if !errors.Is(err, wizard.ErrStepFailed) || !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	progress := prod.Progress(production.StepVideoGenerate)
	if progress.Status != production.SubStepFailed || progress.Error == "" {
		t.Fatalf("expected failed video step with error, got %+v", progress)
	}
	if got := h.video.count(2); got != 3 {
		t.Fatalf("expected 3 attempts for segment 2, got %d", got)
	}
	failed := prod.Status(2)
	if failed.Video != production.ResourceFailed || failed.VideoError == "" || failed.VideoURL != "" {
		t.Fatalf("segment 2 should be failed with an error: %+v", failed)
	}
	for i := 0; i < 2; i++ {
		status := prod.Status(i)
		if !status.Ready() {
			t.Fatalf("segment %d should stay done: %+v", i, status)
		}
		if got := h.video.count(i); got != 1 {
			t.Fatalf("segment %d regenerated: %d calls", i, got)
		}
	}
	if progress.Segments[0] != production.ResourceDone || progress.Segments[2] != production.ResourceFailed {
		t.Fatalf("unexpected segment progress %v", progress.Segments)
	}
	if h.renderer.submits != 0 {
		t.Fatal("render must not start after a failed fan-out")
	}

	reloaded := h.reload(t, "prod-video-fail")
	if step := reloaded.CurrentStep(); step != production.StepVideoGenerate {
		t.Fatalf("reloaded at %s, want video_generate", step)
	}
	if _, err := h.runner.RunStep(ctx, reloaded, production.StepVideoGenerate); !errors.Is(err, wizard.ErrStepFailed) {
		t.Fatalf("failed step must be retried explicitly, got %v", err)
	}

	h.video.setFailure(2, nil)
	retried, err := h.runner.Retry(ctx, reloaded, production.StepVideoGenerate)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != production.SubStepPending || retried.RetryCount != 1 {
		t.Fatalf("unexpected retried progress %+v", retried)
	}
	if err := h.runner.Run(ctx, reloaded); err != nil {
		t.Fatalf("run after retry: %v", err)
	}
	if step := reloaded.CurrentStep(); step != production.StepDone {
		t.Fatalf("expected done after retry, got %s", step)
	}
	if h.video.count(0) != 1 || h.video.count(1) != 1 || h.video.count(2) != 4 {
		t.Fatalf("unexpected video call counts %v", h.video.calls)
	}
}

func TestPermanentFailureStopsRetrying(t *testing.T) {
	h := newHarness(t, 2, testsupport.WithRetryBudget(5))
	prod := h.newProduction("prod-permanent")
	h.video.setFailure(1, services.Wrap(services.ErrValidation, "video", "generate", "prompt rejected", nil))

	err := h.runner.Run(context.Background(), prod)
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	if got := h.video.count(1); got != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", got)
	}
}

func TestRegenerateClearsURLBeforeNewCall(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	prod := h.newProduction("prod-regen")
	if err := h.runner.Run(ctx, prod); err != nil {
		t.Fatalf("run: %v", err)
	}
	before0 := prod.Status(0)
	before1 := prod.Status(1)
	callsBefore := h.speech.totalCalls()

	status, err := h.runner.Regenerate(ctx, prod, 1, production.ResourceAudio)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if status.Audio != production.ResourceGenerating || status.AudioURL != "" || status.AudioDuration != 0 {
		t.Fatalf("expected generating audio without url, got %+v", status)
	}
	if status.VideoURL != before1.VideoURL {
		t.Fatal("video of the regenerated segment must be untouched")
	}
	if h.speech.totalCalls() != callsBefore {
		t.Fatal("regenerate must not call the provider itself")
	}
	if prod.Status(0) != before0 {
		t.Fatal("other segments must be untouched")
	}
	for step, want := range map[production.Step]production.SubStepStatus{
		production.StepAudioGenerate: production.SubStepPending,
		production.StepVideoGenerate: production.SubStepCompleted,
		production.StepRenderFinal:   production.SubStepPending,
		production.StepPublish:       production.SubStepPending,
	} {
		if got := prod.Progress(step).Status; got != want {
			t.Fatalf("%s: expected %s, got %s", step, want, got)
		}
	}

	persisted := h.reload(t, "prod-regen")
	if got := persisted.Status(1); got.Audio != production.ResourceGenerating || got.AudioURL != "" {
		t.Fatalf("regeneration not checkpointed: %+v", got)
	}

	if err := h.runner.Run(ctx, prod); err != nil {
		t.Fatalf("run after regenerate: %v", err)
	}
	after := prod.Status(1)
	if after.Audio != production.ResourceDone || after.AudioURL == "" || after.AudioURL == before1.AudioURL {
		t.Fatalf("expected fresh audio url, got %+v", after)
	}
	if h.speech.totalCalls() != callsBefore+1 {
		t.Fatalf("expected exactly one new speech call, got %d", h.speech.totalCalls()-callsBefore)
	}
	if h.renderer.submits != 2 {
		t.Fatalf("expected a second render, got %d submits", h.renderer.submits)
	}
}

func TestRegenerateRejectsUnknownSegment(t *testing.T) {
	h := newHarness(t, 2)
	prod := h.newProduction("prod-regen-range")
	if _, err := h.runner.Regenerate(context.Background(), prod, 0, production.ResourceAudio); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error before segments exist, got %v", err)
	}
}

func TestAbortStopsNewGenerationCalls(t *testing.T) {
	h := newHarness(t, 4, testsupport.WithConcurrency(1))
	ctx := context.Background()
	prod := h.newProduction("prod-abort")
	h.speech.hook = func(call int) {
		if call == 1 {
			prod.Abort()
		}
	}

	err := h.runner.Run(ctx, prod)
	if !errors.Is(err, wizard.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if got := h.speech.totalCalls(); got != 1 {
		t.Fatalf("expected a single speech call before abort, got %d", got)
	}
	if status := prod.Progress(production.StepAudioGenerate).Status; status != production.SubStepInProgress {
		t.Fatalf("aborted step should stay in progress, got %s", status)
	}
	done := prod.Status(0)
	if done.Audio != production.ResourceDone {
		t.Fatalf("finished resource must survive abort: %+v", done)
	}

	if err := h.runner.Run(ctx, prod); !errors.Is(err, wizard.ErrAborted) {
		t.Fatalf("aborted production must not run, got %v", err)
	}

	h.speech.hook = nil
	if err := h.runner.Resume(ctx, prod); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := h.runner.Run(ctx, prod); err != nil {
		t.Fatalf("run after resume: %v", err)
	}
	if got := h.speech.totalCalls(); got != 4 {
		t.Fatalf("expected 4 speech calls in total, got %d", got)
	}
	if prod.Status(0).AudioURL != done.AudioURL {
		t.Fatal("segment 0 audio regenerated after resume")
	}
}

func TestAbortRequestedThroughCheckpointStore(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	prod := h.newProduction("prod-remote-abort")

	if _, err := h.runner.RunStep(ctx, prod, production.StepNewsFetch); err != nil {
		t.Fatalf("news_fetch: %v", err)
	}
	if err := h.mgr.RequestAbort(ctx, "prod-remote-abort"); err != nil {
		t.Fatalf("request abort: %v", err)
	}
	if _, err := h.runner.RunStep(ctx, prod, production.StepNewsSelect); !errors.Is(err, wizard.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if !prod.Aborted() {
		t.Fatal("production should pick up the stored abort flag")
	}
}

func TestFanOutRespectsConcurrencyLimit(t *testing.T) {
	h := newHarness(t, 6, testsupport.WithConcurrency(2))
	h.speech.delay = 20 * time.Millisecond
	prod := h.newProduction("prod-limit")

	if err := h.runner.Run(context.Background(), prod); err != nil {
		t.Fatalf("run: %v", err)
	}
	if peak := h.speech.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 calls in flight, saw %d", peak)
	}
}

func TestConcurrentFanOutCheckpointsNeverGoBackwards(t *testing.T) {
	h := newHarness(t, 40, testsupport.WithConcurrency(8))
	recorder := &orderedCheckpointer{Manager: h.mgr}
	runner := h.build(recorder)
	ctx := context.Background()
	prod := h.newProduction("prod-ordered")

	for _, step := range []production.Step{
		production.StepNewsFetch,
		production.StepNewsSelect,
		production.StepScriptGenerate,
		production.StepScriptReview,
		production.StepAudioGenerate,
	} {
		if _, err := runner.RunStep(ctx, prod, step); err != nil {
			t.Fatalf("%s: %v", step, err)
		}
	}

	history := recorder.history()
	for i := 1; i < len(history); i++ {
		if history[i] < history[i-1] {
			t.Fatalf("save #%d persisted %d done audio units after save #%d persisted %d", i, history[i], i-1, history[i-1])
		}
	}
	if len(history) == 0 || history[len(history)-1] != 40 {
		t.Fatalf("expected the last save to hold 40 done audio units, history %v", history)
	}

	reloaded := h.reload(t, prod.ID)
	for i := 0; i < 40; i++ {
		if got := reloaded.Status(i).Audio; got != production.ResourceDone {
			t.Fatalf("segment %d audio persisted as %s", i, got)
		}
	}
}

func TestPublishMetadataFollowsReviewedScript(t *testing.T) {
	h := newHarness(t, 2)
	h.scripts.script = &production.Script{
		Title:       "Night desk",
		Description: "The stories that mattered today.",
		Tags:        []string{"tech", "news"},
		Scenes:      testsupport.Script(2).Scenes,
	}
	h.cfg.Publish.Tags = []string{"news", "daily"}
	prod := h.newProduction("prod-meta")

	if err := h.runner.Run(context.Background(), prod); err != nil {
		t.Fatalf("run: %v", err)
	}
	meta := h.publisher.meta
	if meta.Title != "Night desk" {
		t.Fatalf("title = %q, want reviewed script title", meta.Title)
	}
	if meta.Description != "The stories that mattered today." {
		t.Fatalf("description = %q", meta.Description)
	}
	if want := []string{"news", "daily", "tech"}; !reflect.DeepEqual(meta.Tags, want) {
		t.Fatalf("tags = %v, want %v", meta.Tags, want)
	}
	if meta.CategoryID != h.cfg.Publish.CategoryID || meta.PrivacyStatus != h.cfg.Publish.PrivacyStatus {
		t.Fatalf("category/privacy = %q/%q, want config values", meta.CategoryID, meta.PrivacyStatus)
	}
	if meta.Language != h.cfg.Publish.Language {
		t.Fatalf("language = %q, want %q", meta.Language, h.cfg.Publish.Language)
	}
}

func TestRenderTimeoutKeepsJobForResume(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	prod := h.newProduction("prod-render-timeout")
	h.renderer.awaitErr = []error{services.Wrap(services.ErrRenderTimeout, "render", "await", "still rendering", nil)}

	err := h.runner.Run(ctx, prod)
	if !errors.Is(err, services.ErrRenderTimeout) {
		t.Fatalf("expected render timeout, got %v", err)
	}
	if errors.Is(err, services.ErrRenderFailed) {
		t.Fatal("timeout must be distinct from render failure")
	}

	// Resume as a new process would: from the stored checkpoint.
	resumed := h.reload(t, prod.ID)
	if _, err := h.runner.Retry(ctx, resumed, production.StepRenderFinal); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := h.runner.Run(ctx, resumed); err != nil {
		t.Fatalf("run after retry: %v", err)
	}
	if h.renderer.submits != 1 {
		t.Fatalf("resumed render must not resubmit, got %d submits", h.renderer.submits)
	}
	if !reflect.DeepEqual(h.renderer.awaited, []string{"job-1", "job-1"}) {
		t.Fatalf("unexpected awaited jobs %v", h.renderer.awaited)
	}
	submitted := h.renderer.specs[0].Duration
	if submitted <= 0 {
		t.Fatalf("expected a positive timeline duration, got %v", submitted)
	}
	if got := h.renderer.awaitedJobs[1].Duration; got != submitted {
		t.Fatalf("resumed wait carried duration %v, want stored %v", got, submitted)
	}
}

func TestRenderFailureResubmitsOnRetry(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	prod := h.newProduction("prod-render-failed")
	h.renderer.awaitErr = []error{services.Wrap(services.ErrRenderFailed, "render", "await", "bad asset", nil)}

	if err := h.runner.Run(ctx, prod); !errors.Is(err, services.ErrRenderFailed) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if !h.notifier.has(notifications.EventStepFailed) {
		t.Fatal("expected a step failure notification")
	}
	if _, err := h.runner.Retry(ctx, prod, production.StepRenderFinal); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := h.runner.Run(ctx, prod); err != nil {
		t.Fatalf("run after retry: %v", err)
	}
	if h.renderer.submits != 2 {
		t.Fatalf("expected a fresh submit after failure, got %d", h.renderer.submits)
	}
}

func TestPublishSkippedWithoutPublisher(t *testing.T) {
	h := newHarness(t, 2)
	h.publisher = nil
	runner := h.build(h.mgr)
	prod := h.newProduction("prod-no-publish")

	if err := runner.Run(context.Background(), prod); err != nil {
		t.Fatalf("run: %v", err)
	}
	if status := prod.Progress(production.StepPublish).Status; status != production.SubStepSkipped {
		t.Fatalf("expected skipped publish, got %s", status)
	}
	if step := prod.CurrentStep(); step != production.StepDone {
		t.Fatalf("expected done, got %s", step)
	}
}

func TestScriptReviewRecordsShotCorrections(t *testing.T) {
	h := newHarness(t, 0)
	script := testsupport.Script(3)
	script.Scenes[0].SceneType = production.SceneIntro
	script.Scenes[1].ShotType = "drone"
	h.scripts.script = &script
	ctx := context.Background()
	prod := h.newProduction("prod-shots")

	for _, step := range []production.Step{production.StepNewsFetch, production.StepNewsSelect, production.StepScriptGenerate, production.StepScriptReview} {
		if _, err := h.runner.RunStep(ctx, prod, step); err != nil {
			t.Fatalf("%s: %v", step, err)
		}
	}
	var review production.Review
	progress := prod.Progress(production.StepScriptReview)
	if err := progress.DecodeData(&review); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if len(review.Corrections) != 2 {
		t.Fatalf("expected 2 corrections, got %+v", review.Corrections)
	}
	segments := prod.Segments()
	if segments[0].ShotType != production.ShotAnchorDesk || segments[1].ShotType != production.ShotCloseUp {
		t.Fatalf("corrections not applied to frozen segments: %+v", segments)
	}
}

func TestCheckpointFailuresAreNotFatal(t *testing.T) {
	h := newHarness(t, 2)
	checkpoints := &failingCheckpointer{}
	runner := h.build(checkpoints)
	prod := h.newProduction("prod-save-fails")

	if err := runner.Run(context.Background(), prod); err != nil {
		t.Fatalf("run: %v", err)
	}
	if prod.CurrentStep() != production.StepDone {
		t.Fatalf("expected done, got %s", prod.CurrentStep())
	}
	if checkpoints.saves.Load() == 0 {
		t.Fatal("expected save attempts")
	}
}

func TestFromSnapshotRecomputesCurrentStep(t *testing.T) {
	snap := wizard.NewProduction("prod-recover", testsupport.Brief(), nil).Snapshot()
	now := time.Now()
	snap.Wizard.Progress(production.StepNewsFetch).Complete(now, nil)
	snap.Wizard.Progress(production.StepNewsSelect).Complete(now, nil)
	snap.Wizard.Progress(production.StepScriptGenerate).Start(now)
	snap.Wizard.CurrentStep = production.StepNewsFetch

	prod := wizard.FromSnapshot(snap, nil)
	if step := prod.CurrentStep(); step != production.StepScriptGenerate {
		t.Fatalf("expected script_generate, got %s", step)
	}
}

func TestStepLabel(t *testing.T) {
	if got := wizard.StepLabel(production.StepRenderFinal); got != "Render Final" {
		t.Fatalf("unexpected label %q", got)
	}
}
