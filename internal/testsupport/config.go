package testsupport

import (
	"path/filepath"
	"testing"

	"newscast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Pipeline.RetryBackoffMillis = 0
	cfgVal.Render.PollIntervalSeconds = 1
	cfgVal.Render.MaxWaitSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithConcurrency overrides the fan-out concurrency limit.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Concurrency = n
	}
}

// WithRetryBudget overrides the per-unit attempt budget.
func WithRetryBudget(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.RetryBudget = n
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
