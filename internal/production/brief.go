package production

import "time"

// Channel is the on-air identity applied to a production. It travels with the
// brief so overlay and voice decisions never depend on ambient state.
type Channel struct {
	Name      string            `json:"name" validate:"required"`
	Tagline   string            `json:"tagline,omitempty"`
	LiveLabel string            `json:"live_label,omitempty"`
	Ticker    []string          `json:"ticker,omitempty"`
	Anchors   map[string]string `json:"anchors,omitempty"`
	Voices    map[string]string `json:"voices,omitempty"`
}

// DisplayName returns the on-screen name for a speaker.
func (c Channel) DisplayName(speaker string) string {
	if name, ok := c.Anchors[speaker]; ok && name != "" {
		return name
	}
	return speaker
}

// Brief describes what a production should cover.
type Brief struct {
	Title         string   `json:"title" validate:"required,max=200"`
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	Criteria      string   `json:"criteria,omitempty"`
	NarrativeHint string   `json:"narrative_hint,omitempty"`
	MaxItems      int      `json:"max_items" validate:"gte=0,lte=50"`
	SelectedIDs   []string `json:"selected_ids,omitempty"`
	Language      string   `json:"language,omitempty"`
	Channel       Channel  `json:"channel"`
}

// NewsItem is one story returned by the news source.
type NewsItem struct {
	ID          string    `json:"id" validate:"required"`
	Headline    string    `json:"headline" validate:"required"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Scene is one scripted beat produced by the script generator.
type Scene struct {
	Speaker        string  `json:"speaker"`
	Text           string  `json:"text"`
	Title          string  `json:"title,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	VisualPrompt   string  `json:"visual_prompt,omitempty"`
	ReferenceImage string  `json:"reference_image,omitempty"`
	ShotType       string  `json:"shot_type,omitempty"`
	SceneType      string  `json:"scene_type,omitempty"`
	Effect         string  `json:"effect,omitempty"`
}

// Script is the ordered scene list for a production.
type Script struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Scenes      []Scene  `json:"scenes"`
}

// ShotCorrection records one automatic shot-type change made during review.
type ShotCorrection struct {
	Index  int    `json:"index"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// Review is the stored result of the script_review step.
type Review struct {
	Approved    bool             `json:"approved"`
	Notes       string           `json:"notes,omitempty"`
	Script      Script           `json:"script"`
	Corrections []ShotCorrection `json:"corrections,omitempty"`
}
