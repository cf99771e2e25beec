package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizePipeline()
	c.normalizeTimeline()
	c.normalizeRender()
	c.normalizeLLM()
	c.normalizeGenerators()
	c.normalizePublish()
	c.normalizeChannel()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.DatabaseURL = envOverride(c.Store.DatabaseURL, defaultDatabaseURLEnv)
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = defaultConcurrency
	}
	if c.Pipeline.RetryBackoffMillis < 0 {
		c.Pipeline.RetryBackoffMillis = 0
	}
	if c.Pipeline.MaxNewsItems <= 0 {
		c.Pipeline.MaxNewsItems = defaultMaxNewsItems
	}
}

func (c *Config) normalizeTimeline() {
	c.Timeline.Transition = strings.TrimSpace(c.Timeline.Transition)
	if c.Timeline.Transition == "" {
		c.Timeline.Transition = defaultTransition
	}
	palette := make([]string, 0, len(c.Timeline.EffectPalette))
	for _, effect := range c.Timeline.EffectPalette {
		effect = strings.TrimSpace(effect)
		if effect != "" {
			palette = append(palette, effect)
		}
	}
	if len(palette) == 0 {
		palette = append(palette, defaultEffectPalette...)
	}
	c.Timeline.EffectPalette = palette
}

func (c *Config) normalizeRender() {
	c.Render.BaseURL = strings.TrimRight(strings.TrimSpace(c.Render.BaseURL), "/")
	if c.Render.BaseURL == "" {
		c.Render.BaseURL = defaultRenderBaseURL
	}
	c.Render.APIKey = envOverride(c.Render.APIKey, defaultRenderAPIKeyEnv)
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = envOverride(c.LLM.APIKey, defaultLLMAPIKeyEnv)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv(fallbackLLMAPIKeyEnv); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeGenerators() {
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	c.Speech.APIKey = envOverride(c.Speech.APIKey, defaultSpeechAPIKeyEnv)
	c.Speech.DefaultVoice = strings.TrimSpace(c.Speech.DefaultVoice)
	if c.Speech.DefaultVoice == "" {
		c.Speech.DefaultVoice = defaultSpeechVoice
	}

	c.Video.PrimaryURL = strings.TrimRight(strings.TrimSpace(c.Video.PrimaryURL), "/")
	c.Video.FallbackURL = strings.TrimRight(strings.TrimSpace(c.Video.FallbackURL), "/")
	c.Video.APIKey = envOverride(c.Video.APIKey, defaultVideoAPIKeyEnv)
	if strings.TrimSpace(c.Video.AspectRatio) == "" {
		c.Video.AspectRatio = defaultVideoAspectRatio
	}
	c.Video.Resolution = strings.ToLower(strings.TrimSpace(c.Video.Resolution))
	if c.Video.Resolution == "" {
		c.Video.Resolution = defaultVideoResolution
	}

	c.News.BaseURL = strings.TrimRight(strings.TrimSpace(c.News.BaseURL), "/")
	c.News.APIKey = envOverride(c.News.APIKey, defaultNewsAPIKeyEnv)
}

func (c *Config) normalizePublish() {
	c.Publish.ClientID = envOverride(c.Publish.ClientID, defaultYouTubeClientIDEnv)
	c.Publish.ClientSecret = envOverride(c.Publish.ClientSecret, defaultYouTubeSecretEnv)
	c.Publish.RefreshToken = envOverride(c.Publish.RefreshToken, defaultYouTubeRefreshEnv)
	c.Publish.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.Publish.PrivacyStatus))
	if c.Publish.PrivacyStatus == "" {
		c.Publish.PrivacyStatus = defaultPublishPrivacy
	}
	if strings.TrimSpace(c.Publish.CategoryID) == "" {
		c.Publish.CategoryID = defaultPublishCategory
	}
	if strings.TrimSpace(c.Publish.Language) == "" {
		c.Publish.Language = defaultPublishLanguage
	}
}

func (c *Config) normalizeChannel() {
	c.Channel.Name = strings.TrimSpace(c.Channel.Name)
	if c.Channel.Name == "" {
		c.Channel.Name = defaultChannelName
	}
	if strings.TrimSpace(c.Channel.LiveLabel) == "" {
		c.Channel.LiveLabel = defaultChannelLiveLabel
	}
	if len(c.Channel.Voices) > 0 {
		voices := make(map[string]string, len(c.Channel.Voices))
		for speaker, voice := range c.Channel.Voices {
			voices[strings.ToLower(strings.TrimSpace(speaker))] = strings.TrimSpace(voice)
		}
		c.Channel.Voices = voices
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envOverride returns the trimmed environment value for envKey when it is set and
// non-empty, otherwise the trimmed file value.
func envOverride(value, envKey string) string {
	if env, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env)
	}
	return strings.TrimSpace(value)
}
