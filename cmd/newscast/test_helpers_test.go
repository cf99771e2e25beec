package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"newscast/internal/config"
	"newscast/internal/notifications"
	"newscast/internal/production"
	"newscast/internal/providers"
	"newscast/internal/render"
	"newscast/internal/testsupport"
	"newscast/internal/timeline"
)

type stubNews struct{}

func (stubNews) FetchNews(context.Context, string, string) ([]production.NewsItem, error) {
	return []production.NewsItem{
		{ID: "n1", Headline: "Chip exports rise"},
		{ID: "n2", Headline: "Rail strike ends"},
	}, nil
}

type stubScripts struct{ scenes int }

func (s stubScripts) GenerateScript(context.Context, []production.NewsItem, string) (production.Script, error) {
	return testsupport.Script(s.scenes), nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(_ context.Context, text, _ string) (providers.Speech, error) {
	return providers.Speech{URL: "https://cdn.example.com/audio/" + fmt.Sprint(len(text)) + ".mp3", Duration: 4}, nil
}

type stubVideo struct{}

func (stubVideo) Synthesize(_ context.Context, req providers.VideoRequest) (string, error) {
	return fmt.Sprintf("https://cdn.example.com/video/%d.mp4", req.Segment), nil
}

type stubRender struct {
	mu      sync.Mutex
	submits int
}

func (s *stubRender) Submit(context.Context, timeline.Spec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	return fmt.Sprintf("job-%d", s.submits), nil
}

func (s *stubRender) Status(_ context.Context, jobID string) (render.Result, error) {
	return render.Result{
		JobID:    jobID,
		Status:   render.StatusDone,
		URL:      "https://cdn.example.com/render/" + jobID + ".mp4",
		Duration: 12,
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	render     *stubRender
	notifier   *recordingNotifier
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "newscast.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		render:     &stubRender{},
		notifier:   &recordingNotifier{},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) factories() factories {
	return factories{
		providers: func(*config.Config, *slog.Logger) (providers.Set, error) {
			return providers.Set{
				News:     stubNews{},
				Selector: providers.BriefSelector{DefaultMax: 5},
				Scripts:  stubScripts{scenes: 2},
				Speech:   stubSpeech{},
				Video:    stubVideo{},
			}, nil
		},
		render:   func(*config.Config) render.Service { return e.render },
		notifier: func(*config.Config) notifications.Service { return e.notifier },
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCommand(e.factories())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("newscast %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
