package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newscast/internal/notifications"
	"newscast/internal/production"
	"newscast/internal/runlock"
	"newscast/internal/timeline"
)

func TestProductionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "production", "new", "--id", "evening", "--title", "Evening bulletin", "--date", "2026-03-14")
	requireContains(t, out, "Created production evening")

	out = env.mustRun(t, "production", "run", "evening")
	requireContains(t, out, "Production complete")
	requireContains(t, out, "Render Final")
	if env.render.submits != 1 {
		t.Fatalf("expected one render submit, got %d", env.render.submits)
	}
	events := env.notifier.Events()
	if len(events) == 0 || events[len(events)-1] != notifications.EventProductionCompleted {
		t.Fatalf("expected production completed notification, got %v", events)
	}

	out = env.mustRun(t, "production", "status", "evening", "--json")
	var status productionStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.CurrentStep != production.StepDone {
		t.Fatalf("current step = %s, want done", status.CurrentStep)
	}
	if len(status.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(status.Segments))
	}
	for _, segment := range status.Segments {
		if !segment.Status.Ready() {
			t.Fatalf("segment %d not ready: %+v", segment.Index, segment.Status)
		}
	}
	if got := status.Steps[production.StepPublish].Status; got != production.SubStepSkipped {
		t.Fatalf("publish status = %s, want skipped", got)
	}

	out = env.mustRun(t, "production", "list")
	requireContains(t, out, "evening")
	requireContains(t, out, "2/2")

	// A finished production runs as a no-op.
	env.mustRun(t, "production", "run", "evening")
	if env.render.submits != 1 {
		t.Fatalf("rerun submitted another render: %d", env.render.submits)
	}
}

func TestProductionNewRejectsInvalidBrief(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "production", "new", "--title", "Bulletin", "--date", "14/03/2026"); err == nil {
		t.Fatal("expected invalid date to fail")
	}
	env.mustRun(t, "production", "new", "--id", "dup", "--title", "Bulletin")
	_, err := env.run(t, "production", "new", "--id", "dup", "--title", "Bulletin")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestProductionAbortShowsInStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")

	out := env.mustRun(t, "production", "abort", "p1")
	requireContains(t, out, "Abort requested for p1")

	out = env.mustRun(t, "production", "status", "p1")
	requireContains(t, out, "abort requested")

	// Running clears the abort and resumes.
	out = env.mustRun(t, "production", "run", "p1")
	requireContains(t, out, "Resuming aborted production")
	requireContains(t, out, "Production complete")
}

func TestProductionRetryRequiresFailedStep(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")

	if _, err := env.run(t, "production", "retry", "p1", "news_fetch"); err == nil {
		t.Fatal("expected retry of a pending step to fail")
	}
	if _, err := env.run(t, "production", "retry", "p1", "not_a_step"); err == nil {
		t.Fatal("expected unknown step to fail")
	}
}

func TestProductionRegenerateReopensSteps(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")
	env.mustRun(t, "production", "run", "p1")

	out := env.mustRun(t, "production", "regenerate", "p1", "--segment", "1", "--kind", "video")
	requireContains(t, out, "Segment 1 video is generating")

	out = env.mustRun(t, "production", "status", "p1", "--json")
	var status productionStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.CurrentStep != production.StepVideoGenerate {
		t.Fatalf("current step = %s, want video_generate", status.CurrentStep)
	}

	env.mustRun(t, "production", "run", "p1")
	if env.render.submits != 2 {
		t.Fatalf("expected a second render after regenerate, got %d", env.render.submits)
	}

	if _, err := env.run(t, "production", "regenerate", "p1", "--segment", "9", "--kind", "video"); err == nil {
		t.Fatal("expected out of range segment to fail")
	}
}

func TestProductionTimelineCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")
	env.mustRun(t, "production", "run", "p1")

	out := env.mustRun(t, "production", "timeline", "p1")
	var spec timeline.Spec
	if err := json.Unmarshal([]byte(out), &spec); err != nil {
		t.Fatalf("decode timeline: %v\n%s", err, out)
	}
	if spec.Duration <= 0 || len(spec.Tracks) == 0 {
		t.Fatalf("unexpected timeline: %+v", spec)
	}
}

func TestProductionRunRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")

	lock, err := runlock.Acquire(env.cfg.Paths.LockDir, "p1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	if _, err := env.run(t, "production", "run", "p1"); err == nil {
		t.Fatal("expected run to fail while another process holds the lock")
	}
}

func TestProductionWritersRefuseWhileRunLockHeld(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")
	env.mustRun(t, "production", "run", "p1")

	lock, err := runlock.Acquire(env.cfg.Paths.LockDir, "p1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	for _, args := range [][]string{
		{"production", "regenerate", "p1", "--segment", "0", "--kind", "audio"},
		{"production", "retry", "p1", "render_final"},
		{"production", "delete", "p1"},
	} {
		_, err := env.run(t, args...)
		if !errors.Is(err, runlock.ErrHeld) {
			t.Fatalf("%s: expected runlock.ErrHeld, got %v", strings.Join(args, " "), err)
		}
	}

	out := env.mustRun(t, "production", "status", "p1", "--json")
	var status productionStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.CurrentStep != production.StepDone {
		t.Fatalf("refused commands changed the production: current step %s", status.CurrentStep)
	}
}

func TestProductionDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "production", "new", "--id", "p1", "--title", "Bulletin")
	env.mustRun(t, "production", "delete", "p1")

	out := env.mustRun(t, "production", "list")
	requireContains(t, out, "No productions")
}

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out := env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected existing file to be refused without --overwrite")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.LLM.APIKey = "sk-secret"
	writeTestConfig(t, env.configPath, env.cfg)

	out := env.mustRun(t, "config", "show")
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("secret leaked:\n%s", out)
	}
	requireContains(t, out, redacted)
}

func TestRedactURL(t *testing.T) {
	got := redactURL("postgres://newscast:hunter2@db:5432/newscast")
	if got != "postgres://newscast:"+redacted+"@db:5432/newscast" {
		t.Fatalf("redactURL = %q", got)
	}
	if got := redactURL("postgres://db/newscast"); got != "postgres://db/newscast" {
		t.Fatalf("redactURL without credentials = %q", got)
	}
}

func TestDoctorReportsMissingEndpoints(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail without provider endpoints")
	}
	requireContains(t, out, "Store:")
	requireContains(t, out, "base URL not set")
}

func TestNotifyTestDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "notify", "test")
	requireContains(t, out, "Notifications disabled")
	if len(env.notifier.Events()) != 0 {
		t.Fatalf("unexpected events: %v", env.notifier.Events())
	}
}
