package config

const (
	defaultConfigPath           = "~/.config/newscast/config.toml"
	defaultDataDir              = "~/.local/share/newscast"
	defaultLogDir               = "~/.local/share/newscast/logs"
	defaultLockDir              = "~/.local/share/newscast/locks"
	defaultStoreDriver          = "sqlite"
	defaultConcurrency          = 3
	defaultRetryBudget          = 3
	defaultGenerationTimeout    = 300
	defaultRetryBackoffMillis   = 2000
	defaultMaxNewsItems         = 5
	defaultTransitionSeconds    = 0.5
	defaultWordsPerSecond       = 2.5
	defaultMinSegmentSeconds    = 3.0
	defaultCaptionMaxChars      = 42
	defaultTransition           = "fade"
	defaultRenderBaseURL        = "https://api.shotstack.io/edit/v1"
	defaultRenderPollInterval   = 5
	defaultRenderMaxWait        = 600
	defaultRenderCostPerMinute  = 0.20
	defaultRenderTimeout        = 30
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1"
	defaultLLMModel             = "google/gemini-2.5-flash"
	defaultLLMTimeoutSeconds    = 120
	defaultLLMTemperature       = 0.7
	defaultSpeechVoice          = "anchor-neutral"
	defaultVideoAspectRatio     = "16:9"
	defaultVideoResolution      = "720p"
	defaultPublishPrivacy       = "private"
	defaultPublishCategory      = "25"
	defaultPublishLanguage      = "en"
	defaultChannelName          = "Newscast"
	defaultChannelLiveLabel     = "LIVE"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultWidth                = 1280
	defaultHeight               = 720
	defaultFPS                  = 25
	envPrefix                   = "NEWSCAST_"
	defaultYouTubeClientIDEnv   = "YOUTUBE_CLIENT_ID"
	defaultYouTubeSecretEnv     = "YOUTUBE_CLIENT_SECRET"
	defaultYouTubeRefreshEnv    = "YOUTUBE_REFRESH_TOKEN"
	defaultDatabaseURLEnv       = envPrefix + "DATABASE_URL"
	defaultRenderAPIKeyEnv      = envPrefix + "RENDER_API_KEY"
	defaultLLMAPIKeyEnv         = envPrefix + "LLM_API_KEY"
	defaultSpeechAPIKeyEnv      = envPrefix + "SPEECH_API_KEY"
	defaultVideoAPIKeyEnv       = envPrefix + "VIDEO_API_KEY"
	defaultNewsAPIKeyEnv        = envPrefix + "NEWS_API_KEY"
	fallbackLLMAPIKeyEnv        = "OPENROUTER_API_KEY"
)

var defaultEffectPalette = []string{"zoomIn", "zoomOut", "slideLeft", "slideRight", "zoomInSlow"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	palette := make([]string, len(defaultEffectPalette))
	copy(palette, defaultEffectPalette)
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			LockDir: defaultLockDir,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Pipeline: Pipeline{
			Concurrency:              defaultConcurrency,
			RetryBudget:              defaultRetryBudget,
			GenerationTimeoutSeconds: defaultGenerationTimeout,
			RetryBackoffMillis:       defaultRetryBackoffMillis,
			MaxNewsItems:             defaultMaxNewsItems,
		},
		Timeline: Timeline{
			TransitionSeconds: defaultTransitionSeconds,
			WordsPerSecond:    defaultWordsPerSecond,
			MinSegmentSeconds: defaultMinSegmentSeconds,
			CaptionMaxChars:   defaultCaptionMaxChars,
			EffectPalette:     palette,
			Transition:        defaultTransition,
			Subtitles:         true,
			Width:             defaultWidth,
			Height:            defaultHeight,
			FPS:               defaultFPS,
		},
		Render: Render{
			BaseURL:             defaultRenderBaseURL,
			PollIntervalSeconds: defaultRenderPollInterval,
			MaxWaitSeconds:      defaultRenderMaxWait,
			CostPerMinute:       defaultRenderCostPerMinute,
			TimeoutSeconds:      defaultRenderTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Speech: Speech{
			DefaultVoice: defaultSpeechVoice,
		},
		Video: Video{
			AspectRatio: defaultVideoAspectRatio,
			Resolution:  defaultVideoResolution,
		},
		Publish: Publish{
			PrivacyStatus: defaultPublishPrivacy,
			CategoryID:    defaultPublishCategory,
			Language:      defaultPublishLanguage,
		},
		Channel: Channel{
			Name:      defaultChannelName,
			LiveLabel: defaultChannelLiveLabel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Render:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
