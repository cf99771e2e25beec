package providers

import (
	"context"
	"strings"

	"newscast/internal/config"
	"newscast/internal/providers/httpjson"
	"newscast/internal/services"
)

// HTTPSpeech calls a text-to-speech endpoint: POST {base}/synthesize.
type HTTPSpeech struct {
	client       *httpjson.Client
	defaultVoice string
}

// NewHTTPSpeech builds a speech synthesizer from configuration.
func NewHTTPSpeech(cfg *config.Config, opts ...httpjson.Option) *HTTPSpeech {
	client := httpjson.NewClient(httpjson.Config{
		Name:           "speech",
		BaseURL:        cfg.Speech.BaseURL,
		APIKey:         cfg.Speech.APIKey,
		TimeoutSeconds: cfg.Pipeline.GenerationTimeoutSeconds,
	}, opts...)
	return &HTTPSpeech{client: client, defaultVoice: cfg.Speech.DefaultVoice}
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type speechResponse struct {
	AudioURL string  `json:"audio_url"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// Synthesize implements SpeechSynthesizer.
func (s *HTTPSpeech) Synthesize(ctx context.Context, text, voice string) (Speech, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Speech{}, services.Wrap(services.ErrValidation, "speech", "synthesize", "text required", nil)
	}
	if strings.TrimSpace(voice) == "" {
		voice = s.defaultVoice
	}
	var resp speechResponse
	if err := s.client.Post(ctx, "synthesize", speechRequest{Text: text, Voice: voice}, &resp); err != nil {
		return Speech{}, services.Wrap(services.ErrGenerationFailed, "speech", "synthesize", "speech request failed", err)
	}
	audioURL := strings.TrimSpace(resp.AudioURL)
	if audioURL == "" {
		audioURL = strings.TrimSpace(resp.URL)
	}
	if audioURL == "" {
		return Speech{}, services.Wrap(services.ErrGenerationFailed, "speech", "synthesize", "response carried no audio url", nil)
	}
	return Speech{URL: audioURL, Duration: resp.Duration}, nil
}
