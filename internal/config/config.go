package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	LockDir string `toml:"lock_dir"`
}

// Store selects the checkpoint persistence backend.
type Store struct {
	Driver      string `toml:"driver"`       // "sqlite" or "postgres"
	DatabaseURL string `toml:"database_url"` // postgres only
}

// Pipeline contains fan-out and retry settings for the generation steps.
type Pipeline struct {
	Concurrency              int `toml:"concurrency"`
	RetryBudget              int `toml:"retry_budget"`
	GenerationTimeoutSeconds int `toml:"generation_timeout_seconds"`
	RetryBackoffMillis       int `toml:"retry_backoff_millis"`
	MaxNewsItems             int `toml:"max_news_items"`
}

// Timeline contains the composition constants used by the timeline builder.
type Timeline struct {
	TransitionSeconds float64  `toml:"transition_seconds"`
	WordsPerSecond    float64  `toml:"words_per_second"`
	MinSegmentSeconds float64  `toml:"min_segment_seconds"`
	CaptionMaxChars   int      `toml:"caption_max_chars"`
	EffectPalette     []string `toml:"effect_palette"`
	Transition        string   `toml:"transition"`
	Subtitles         bool     `toml:"subtitles"`
	Width             int      `toml:"width"`
	Height            int      `toml:"height"`
	FPS               int      `toml:"fps"`
}

// Render contains settings for the cloud render service.
type Render struct {
	BaseURL             string  `toml:"base_url"`
	APIKey              string  `toml:"api_key"`
	PollIntervalSeconds int     `toml:"poll_interval_seconds"`
	MaxWaitSeconds      int     `toml:"max_wait_seconds"`
	CostPerMinute       float64 `toml:"cost_per_minute"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
}

// LLM contains connection settings for the script generator.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Speech contains connection settings for the speech synthesis provider.
type Speech struct {
	BaseURL      string `toml:"base_url"`
	APIKey       string `toml:"api_key"`
	DefaultVoice string `toml:"default_voice"`
}

// Video contains connection settings for the video synthesis providers.
// FallbackURL is tried when the primary provider fails.
type Video struct {
	PrimaryURL     string `toml:"primary_url"`
	FallbackURL    string `toml:"fallback_url"`
	APIKey         string `toml:"api_key"`
	AspectRatio    string `toml:"aspect_ratio"`
	Resolution     string `toml:"resolution"`
	NegativePrompt string `toml:"negative_prompt"`
}

// News contains connection settings for the news source.
type News struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// Publish contains configuration for the YouTube publish target.
type Publish struct {
	Enabled       bool     `toml:"enabled"`
	ClientID      string   `toml:"client_id"`
	ClientSecret  string   `toml:"client_secret"`
	RefreshToken  string   `toml:"refresh_token"`
	PrivacyStatus string   `toml:"privacy_status"`
	CategoryID    string   `toml:"category_id"`
	Language      string   `toml:"language"`
	Tags          []string `toml:"tags"`
}

// Channel describes the on-air identity applied to every production by default.
type Channel struct {
	Name      string            `toml:"name"`
	Tagline   string            `toml:"tagline"`
	LiveLabel string            `toml:"live_label"`
	Anchors   map[string]string `toml:"anchors"`
	Voices    map[string]string `toml:"voices"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Render         bool   `toml:"render"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for newscast.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and lock directories
//   - Store: checkpoint persistence backend
//   - Pipeline: generation fan-out concurrency, retry budget, and timeouts
//   - Timeline: composition constants (transition overlap, speaking rate)
//   - Render: cloud render service, polling, and cost rate
//   - LLM, Speech, Video, News: external generation collaborators
//   - Publish: YouTube upload target
//   - Channel: on-air identity used for overlays and voice casting
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Timeline      Timeline      `toml:"timeline"`
	Render        Render        `toml:"render"`
	LLM           LLM           `toml:"llm"`
	Speech        Speech        `toml:"speech"`
	Video         Video         `toml:"video"`
	News          News          `toml:"news"`
	Publish       Publish       `toml:"publish"`
	Channel       Channel       `toml:"channel"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newscast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite checkpoint database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "productions.db")
}

// GenerationTimeout returns the per-call timeout for speech and video synthesis.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Pipeline.GenerationTimeoutSeconds) * time.Second
}

// RenderPollInterval returns the delay between render status polls.
func (c *Config) RenderPollInterval() time.Duration {
	return time.Duration(c.Render.PollIntervalSeconds) * time.Second
}

// RenderMaxWait returns the upper bound on waiting for a render job.
func (c *Config) RenderMaxWait() time.Duration {
	return time.Duration(c.Render.MaxWaitSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// VoiceFor returns the configured voice for a speaker, falling back to the speech default.
func (c *Config) VoiceFor(speaker string) string {
	if voice, ok := c.Channel.Voices[strings.ToLower(strings.TrimSpace(speaker))]; ok && voice != "" {
		return voice
	}
	return c.Speech.DefaultVoice
}
