package providers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"newscast/internal/config"
	"newscast/internal/logging"
	"newscast/internal/providers/httpjson"
	"newscast/internal/services"
)

// HTTPVideo calls a talking-head video endpoint: POST {base}/generate.
type HTTPVideo struct {
	name     string
	client   *httpjson.Client
	defaults VideoRequest
}

// NewHTTPVideo builds a video synthesizer for baseURL with the configured request defaults.
func NewHTTPVideo(name, baseURL string, cfg *config.Config, opts ...httpjson.Option) *HTTPVideo {
	client := httpjson.NewClient(httpjson.Config{
		Name:           name,
		BaseURL:        baseURL,
		APIKey:         cfg.Video.APIKey,
		TimeoutSeconds: cfg.Pipeline.GenerationTimeoutSeconds,
	}, opts...)
	return &HTTPVideo{
		name:   name,
		client: client,
		defaults: VideoRequest{
			AspectRatio:    cfg.Video.AspectRatio,
			Resolution:     cfg.Video.Resolution,
			NegativePrompt: cfg.Video.NegativePrompt,
		},
	}
}

type videoResponse struct {
	VideoURL string `json:"video_url"`
	URL      string `json:"url"`
	Error    string `json:"error"`
}

// Synthesize implements VideoSynthesizer.
func (v *HTTPVideo) Synthesize(ctx context.Context, req VideoRequest) (string, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return "", services.Wrap(services.ErrValidation, v.name, "synthesize", "audio url required for lip sync", nil)
	}
	if req.AspectRatio == "" {
		req.AspectRatio = v.defaults.AspectRatio
	}
	if req.Resolution == "" {
		req.Resolution = v.defaults.Resolution
	}
	if req.NegativePrompt == "" {
		req.NegativePrompt = v.defaults.NegativePrompt
	}
	var resp videoResponse
	if err := v.client.Post(ctx, "generate", req, &resp); err != nil {
		return "", services.Wrap(services.ErrGenerationFailed, v.name, "synthesize", "video request failed", err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return "", services.Wrap(services.ErrGenerationFailed, v.name, "synthesize", msg, nil)
	}
	videoURL := strings.TrimSpace(resp.VideoURL)
	if videoURL == "" {
		videoURL = strings.TrimSpace(resp.URL)
	}
	if videoURL == "" {
		return "", services.Wrap(services.ErrGenerationFailed, v.name, "synthesize", "response carried no video url", nil)
	}
	return videoURL, nil
}

// FallbackVideo tries Primary and, when it fails, Fallback.
type FallbackVideo struct {
	Primary  VideoSynthesizer
	Fallback VideoSynthesizer
	Logger   *slog.Logger
}

// Synthesize implements VideoSynthesizer. Validation errors and cancellation are not
// retried against the fallback.
func (f FallbackVideo) Synthesize(ctx context.Context, req VideoRequest) (string, error) {
	url, err := f.Primary.Synthesize(ctx, req)
	if err == nil || f.Fallback == nil {
		return url, err
	}
	if errors.Is(err, services.ErrValidation) || ctx.Err() != nil {
		return "", err
	}
	logging.WarnWithContext(f.Logger, "primary video provider failed; trying fallback", "video_provider_fallback",
		logging.Int(logging.FieldSegmentIndex, req.Segment),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check primary video provider status"),
		logging.String(logging.FieldImpact, "segment served by fallback provider"),
	)
	url, fallbackErr := f.Fallback.Synthesize(ctx, req)
	if fallbackErr != nil {
		return "", errors.Join(err, fallbackErr)
	}
	return url, nil
}

// NewVideoFromConfig wires the primary provider and, when configured, the fallback chain.
func NewVideoFromConfig(cfg *config.Config, logger *slog.Logger, opts ...httpjson.Option) VideoSynthesizer {
	primary := NewHTTPVideo("video", cfg.Video.PrimaryURL, cfg, opts...)
	if strings.TrimSpace(cfg.Video.FallbackURL) == "" {
		return primary
	}
	return FallbackVideo{
		Primary:  primary,
		Fallback: NewHTTPVideo("video-fallback", cfg.Video.FallbackURL, cfg, opts...),
		Logger:   logging.NewComponentLogger(logger, "video"),
	}
}
