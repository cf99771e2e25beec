// Package youtube publishes rendered bulletins through the YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"newscast/internal/config"
	"newscast/internal/logging"
	"newscast/internal/providers"
	"newscast/internal/services"
)

// Publisher uploads a rendered video by streaming it from its render URL.
type Publisher struct {
	cfg        config.Publish
	download   *http.Client
	logger     *slog.Logger
	serviceOpt []option.ClientOption
}

// Option customizes the publisher.
type Option func(*Publisher)

// WithDownloadClient overrides the client used to fetch the rendered video.
func WithDownloadClient(client *http.Client) Option {
	return func(p *Publisher) {
		if client != nil {
			p.download = client
		}
	}
}

// WithServiceOptions replaces the API client options (tests point these at a fake endpoint).
func WithServiceOptions(opts ...option.ClientOption) Option {
	return func(p *Publisher) {
		p.serviceOpt = opts
	}
}

// New validates credentials and builds a publisher.
func New(cfg config.Publish, logger *slog.Logger, opts ...Option) (*Publisher, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "new",
			"youtube client id, client secret and refresh token are required", nil)
	}
	p := &Publisher{
		cfg:      cfg,
		download: &http.Client{Timeout: 30 * time.Minute},
		logger:   logging.NewComponentLogger(logger, "youtube"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish implements providers.Publisher.
func (p *Publisher) Publish(ctx context.Context, videoURL string, meta providers.Metadata) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", services.Wrap(services.ErrValidation, "youtube", "publish", "video url required", nil)
	}
	svc, err := p.service(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "youtube", "publish", "create api client", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "youtube", "publish", "build download request", err)
	}
	resp, err := p.download.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "youtube", "publish", "download rendered video", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternalTool, "youtube", "publish", fmt.Sprintf("download rendered video: http %d", resp.StatusCode), nil)
	}

	video := BuildVideo(meta, p.cfg)
	p.logger.Info("uploading video",
		logging.String("title", video.Snippet.Title),
		logging.String("privacy_status", video.Status.PrivacyStatus),
	)
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(resp.Body).Context(ctx).Do()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "youtube", "publish", "upload video", err)
	}
	p.logger.Info("video uploaded",
		logging.String("video_id", uploaded.Id),
		logging.String("watch_url", WatchURL(uploaded.Id)),
	)
	return uploaded.Id, nil
}

func (p *Publisher) service(ctx context.Context) (*yt.Service, error) {
	if len(p.serviceOpt) > 0 {
		return yt.NewService(ctx, p.serviceOpt...)
	}
	conf := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope},
	}
	// Expired on purpose so the first call exchanges the refresh token.
	token := &oauth2.Token{RefreshToken: p.cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	return yt.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
}

// BuildVideo maps publish metadata onto the API resource, filling gaps from cfg.
func BuildVideo(meta providers.Metadata, cfg config.Publish) *yt.Video {
	category := firstNonEmpty(meta.CategoryID, cfg.CategoryID, "25")
	privacy := firstNonEmpty(meta.PrivacyStatus, cfg.PrivacyStatus, "private")
	language := firstNonEmpty(meta.Language, cfg.Language)
	tags := meta.Tags
	if len(tags) == 0 {
		tags = cfg.Tags
	}
	return &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:                truncate(meta.Title, 100),
			Description:          truncate(meta.Description, 5000),
			Tags:                 tags,
			CategoryId:           category,
			DefaultLanguage:      language,
			DefaultAudioLanguage: language,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: meta.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// WatchURL returns the public watch page of a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
