package providers

import (
	"context"

	"newscast/internal/production"
)

// NewsSource fetches candidate stories for a broadcast date.
type NewsSource interface {
	FetchNews(ctx context.Context, date, criteria string) ([]production.NewsItem, error)
}

// NewsSelector narrows fetched stories down to the ones the broadcast covers.
type NewsSelector interface {
	Select(ctx context.Context, items []production.NewsItem, brief production.Brief) ([]production.NewsItem, error)
}

// ScriptGenerator writes the scene list for the selected stories.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, news []production.NewsItem, hint string) (production.Script, error)
}

// ScriptReviewer checks a generated script before segments are frozen.
type ScriptReviewer interface {
	Review(ctx context.Context, script production.Script) (production.Review, error)
}

// Speech is a synthesized narration clip.
type Speech struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// SpeechSynthesizer turns segment text into narration audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (Speech, error)
}

// VideoRequest describes one talking-head clip.
type VideoRequest struct {
	Segment        int    `json:"segment"`
	Prompt         string `json:"prompt"`
	ReferenceImage string `json:"image_url,omitempty"`
	AudioURL       string `json:"audio_url"`
	ShotType       string `json:"shot_type,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// VideoSynthesizer renders a lip-synced clip for one segment and returns its URL.
type VideoSynthesizer interface {
	Synthesize(ctx context.Context, req VideoRequest) (string, error)
}

// Metadata describes a published video.
type Metadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CategoryID    string   `json:"category_id,omitempty"`
	PrivacyStatus string   `json:"privacy_status,omitempty"`
	Language      string   `json:"language,omitempty"`
	MadeForKids   bool     `json:"made_for_kids"`
}

// Publisher uploads a rendered video and returns the published id.
type Publisher interface {
	Publish(ctx context.Context, videoURL string, meta Metadata) (string, error)
}

// Set bundles the collaborators a production runner needs. Publisher may be nil when
// publishing is disabled.
type Set struct {
	News      NewsSource
	Selector  NewsSelector
	Scripts   ScriptGenerator
	Reviewer  ScriptReviewer
	Speech    SpeechSynthesizer
	Video     VideoSynthesizer
	Publisher Publisher
}
