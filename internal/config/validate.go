package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url must be set when store.driver is postgres (or set %s)", defaultDatabaseURLEnv)
		}
		return nil
	default:
		return fmt.Errorf("store.driver %q is not supported (use sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.concurrency":                c.Pipeline.Concurrency,
		"pipeline.generation_timeout_seconds": c.Pipeline.GenerationTimeoutSeconds,
		"render.poll_interval_seconds":        c.Render.PollIntervalSeconds,
		"render.max_wait_seconds":             c.Render.MaxWaitSeconds,
		"notifications.request_timeout":       c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Pipeline.RetryBudget < 1 {
		return errors.New("pipeline.retry_budget must be at least 1 attempt")
	}
	return nil
}

func (c *Config) validateTimeline() error {
	t := c.Timeline
	if t.TransitionSeconds < 0 {
		return errors.New("timeline.transition_seconds must be >= 0")
	}
	if t.WordsPerSecond <= 0 {
		return errors.New("timeline.words_per_second must be positive")
	}
	if t.MinSegmentSeconds <= 0 {
		return errors.New("timeline.min_segment_seconds must be positive")
	}
	if t.TransitionSeconds >= t.MinSegmentSeconds {
		return errors.New("timeline.transition_seconds must be smaller than timeline.min_segment_seconds")
	}
	if t.CaptionMaxChars <= 0 {
		return errors.New("timeline.caption_max_chars must be positive")
	}
	return ensurePositiveMap(map[string]int{
		"timeline.width":  t.Width,
		"timeline.height": t.Height,
		"timeline.fps":    t.FPS,
	})
}

func (c *Config) validateRender() error {
	if c.Render.CostPerMinute < 0 {
		return errors.New("render.cost_per_minute must be >= 0")
	}
	if c.Render.MaxWaitSeconds < c.Render.PollIntervalSeconds {
		return errors.New("render.max_wait_seconds must be at least render.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateVideo() error {
	switch c.Video.Resolution {
	case "480p", "720p", "1080p":
	default:
		return fmt.Errorf("video.resolution %q is not supported (use 480p, 720p, or 1080p)", c.Video.Resolution)
	}
	if !strings.Contains(c.Video.AspectRatio, ":") {
		return fmt.Errorf("video.aspect_ratio %q must look like 16:9", c.Video.AspectRatio)
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.PrivacyStatus {
	case "private", "unlisted", "public":
	default:
		return fmt.Errorf("publish.privacy_status %q is not supported", c.Publish.PrivacyStatus)
	}
	if !c.Publish.Enabled {
		return nil
	}
	if c.Publish.ClientID == "" || c.Publish.ClientSecret == "" || c.Publish.RefreshToken == "" {
		return fmt.Errorf("publish.client_id, publish.client_secret, and publish.refresh_token must be set when publish.enabled is true (or set %s, %s, %s)",
			defaultYouTubeClientIDEnv, defaultYouTubeSecretEnv, defaultYouTubeRefreshEnv)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
