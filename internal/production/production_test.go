package production_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"newscast/internal/production"
	"newscast/internal/services"
)

func TestNextWalksStepsInOrder(t *testing.T) {
	step := production.StepNewsFetch
	var visited []production.Step
	seen := map[production.Step]bool{}
	for {
		if seen[step] {
			t.Fatalf("step %s visited twice", step)
		}
		seen[step] = true
		visited = append(visited, step)
		next, ok := production.Next(step)
		if !ok {
			break
		}
		if !step.Before(next) {
			t.Fatalf("expected %s before %s", step, next)
		}
		step = next
	}
	if len(visited) != len(production.Steps())+1 {
		t.Fatalf("expected %d steps including done, got %v", len(production.Steps())+1, visited)
	}
	if visited[len(visited)-1] != production.StepDone {
		t.Fatalf("expected walk to end at done, got %s", visited[len(visited)-1])
	}
	if _, ok := production.Next("bogus"); ok {
		t.Fatal("expected unknown step to have no successor")
	}
}

func TestRecomputeCurrentStepIgnoresStoredPointer(t *testing.T) {
	state := production.NewWizardState()
	now := time.Now()
	state.Progress(production.StepNewsFetch).Complete(now, nil)
	state.Progress(production.StepNewsSelect).Complete(now, nil)
	state.Progress(production.StepScriptGenerate).Start(now)
	state.CurrentStep = production.StepPublish

	if got := state.RecomputeCurrentStep(); got != production.StepScriptGenerate {
		t.Fatalf("expected script_generate, got %s", got)
	}

	for _, step := range production.Steps() {
		state.Progress(step).Complete(now, nil)
	}
	state.Progress(production.StepPublish).Skip(now, "publishing disabled")
	if got := state.RecomputeCurrentStep(); got != production.StepDone {
		t.Fatalf("expected done once every step finished, got %s", got)
	}
}

func TestSubStepProgressInvariants(t *testing.T) {
	now := time.Now()
	progress := production.NewSubStepProgress()
	progress.Start(now)
	progress.Fail(errors.New("provider down"))
	if err := production.Validate(progress); err != nil {
		t.Fatalf("failed progress should validate: %v", err)
	}
	if progress.CompletedAt != nil {
		t.Fatal("failed step must not carry completed_at")
	}

	progress.Reset()
	if progress.Status != production.SubStepPending || progress.RetryCount != 1 {
		t.Fatalf("unexpected progress after reset: %+v", progress)
	}

	progress.Complete(now, json.RawMessage(`{"ok":true}`))
	if err := production.Validate(progress); err != nil {
		t.Fatalf("completed progress should validate: %v", err)
	}

	broken := progress.Clone()
	broken.Status = production.SubStepInProgress
	err := production.Validate(broken)
	if err == nil || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for completed_at on in_progress step, got %v", err)
	}

	broken = production.NewSubStepProgress()
	broken.Error = "stray"
	if err := production.Validate(broken); err == nil {
		t.Fatal("expected validation error for error on pending step")
	}
}

func TestSegmentStatusInvariants(t *testing.T) {
	status := production.NewSegmentStatus()
	if err := production.Validate(status); err != nil {
		t.Fatalf("new status should validate: %v", err)
	}

	status.Audio = production.ResourceDone
	if err := production.Validate(status); err == nil {
		t.Fatal("expected error for done audio without url")
	}
	status.AudioURL = "https://cdn.test/a.mp3"
	if err := production.Validate(status); err != nil {
		t.Fatalf("done audio with url should validate: %v", err)
	}

	status.Video = production.ResourceFailed
	if err := production.Validate(status); err == nil {
		t.Fatal("expected error for failed video without error text")
	}
	status.VideoError = "timeout"
	if err := production.Validate(status); err != nil {
		t.Fatalf("failed video with error should validate: %v", err)
	}
	if status.Ready() {
		t.Fatal("segment with failed video must not be ready")
	}
}

func TestBriefValidation(t *testing.T) {
	brief := production.Brief{
		Title:   "Morning bulletin",
		Date:    "2026-03-14",
		Channel: production.Channel{Name: "Newscast"},
	}
	if err := production.Validate(brief); err != nil {
		t.Fatalf("brief should validate: %v", err)
	}
	brief.Date = "14/03/2026"
	if err := production.Validate(brief); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestSegmentsFromScriptSkipsEmptyScenes(t *testing.T) {
	script := production.Script{Scenes: []production.Scene{
		{Speaker: "anchor", Text: "Good evening."},
		{Speaker: "anchor", Text: "   "},
		{Speaker: "reporter", Text: "Live from the harbour.", Duration: 4},
	}}
	segments, err := production.SegmentsFromScript(script)
	if err != nil {
		t.Fatalf("SegmentsFromScript: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Index != 1 || segments[1].Speaker != "reporter" || segments[1].Duration != 4 {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
	if err := production.ValidateSegments(segments); err != nil {
		t.Fatalf("segments should validate: %v", err)
	}
	segments[1].Index = 5
	if err := production.ValidateSegments(segments); err == nil {
		t.Fatal("expected error for out-of-order index")
	}
}

func TestCorrectShotsRecordsEveryChange(t *testing.T) {
	script := production.Script{Scenes: []production.Scene{
		{Speaker: "anchor", Text: "Tonight", SceneType: production.SceneIntro, ShotType: production.ShotWide},
		{Speaker: "anchor", Text: "Story", SceneType: production.SceneStory, ShotType: "drone"},
		{Speaker: "anchor", Text: "Solo", SceneType: production.SceneStory, ShotType: production.ShotSplitScreen},
		{Speaker: "anchor", Text: "Fine", SceneType: production.SceneStory, ShotType: production.ShotBRoll},
		{Speaker: "anchor", Text: "Bye", SceneType: production.SceneOutro},
	}}

	corrected, corrections := production.CorrectShots(script)
	if len(corrections) != 4 {
		t.Fatalf("expected 4 corrections, got %+v", corrections)
	}
	want := []string{production.ShotAnchorDesk, production.ShotCloseUp, production.ShotCloseUp, production.ShotBRoll, production.ShotAnchorDesk}
	for i, shot := range want {
		if corrected.Scenes[i].ShotType != shot {
			t.Fatalf("scene %d: expected %s, got %s", i, shot, corrected.Scenes[i].ShotType)
		}
	}
	if script.Scenes[0].ShotType != production.ShotWide {
		t.Fatal("input script must not be mutated")
	}
	if corrections[0].From != production.ShotWide || corrections[0].Reason == "" {
		t.Fatalf("unexpected first correction: %+v", corrections[0])
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := production.ParseStep("done"); err == nil {
		t.Fatal("done is not a runnable step")
	}
	if step, err := production.ParseStep("video_generate"); err != nil || step != production.StepVideoGenerate {
		t.Fatalf("unexpected ParseStep result: %s %v", step, err)
	}
	if kind, err := production.ParseResourceKind(" Video "); err != nil || kind != production.ResourceVideo {
		t.Fatalf("unexpected ParseResourceKind result: %s %v", kind, err)
	}
	if production.StepForKind(production.ResourceAudio) != production.StepAudioGenerate {
		t.Fatal("audio kind should map to audio_generate")
	}
}
