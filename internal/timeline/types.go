package timeline

import (
	"newscast/internal/config"
	"newscast/internal/production"
)

// Options holds the composition constants.
type Options struct {
	TransitionSeconds float64
	WordsPerSecond    float64
	MinSegmentSeconds float64
	CaptionMaxChars   int
	EffectPalette     []string
	Transition        string
	Subtitles         bool
	Width             int
	Height            int
	FPS               int
}

// OptionsFromConfig maps the timeline config section onto Options.
func OptionsFromConfig(cfg config.Timeline) Options {
	return Options{
		TransitionSeconds: cfg.TransitionSeconds,
		WordsPerSecond:    cfg.WordsPerSecond,
		MinSegmentSeconds: cfg.MinSegmentSeconds,
		CaptionMaxChars:   cfg.CaptionMaxChars,
		EffectPalette:     append([]string(nil), cfg.EffectPalette...),
		Transition:        cfg.Transition,
		Subtitles:         cfg.Subtitles,
		Width:             cfg.Width,
		Height:            cfg.Height,
		FPS:               cfg.FPS,
	}
}

// DefaultOptions returns Options built from the repository defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Timeline)
}

// Input is one segment together with its generated resources.
type Input struct {
	Segment       production.Segment
	AudioURL      string
	VideoURL      string
	AudioDuration float64
}

// Meta carries production-level overlay content.
type Meta struct {
	Title   string
	Date    string
	Channel production.Channel
}

// TrackKind classifies a track for renderers.
type TrackKind string

const (
	TrackVideo   TrackKind = "video"
	TrackAudio   TrackKind = "audio"
	TrackOverlay TrackKind = "overlay"
	TrackCaption TrackKind = "caption"
)

// Track names.
const (
	TrackBase       = "base"
	TrackNarration  = "narration"
	TrackSubtitles  = "subtitles"
	TrackNamePlates = "name_plates"
	TrackBanner     = "lower_third"
	TrackTicker     = "ticker"
	TrackDateBadge  = "date_badge"
	TrackLive       = "live"
)

// ClipKind describes what a clip carries.
type ClipKind string

const (
	ClipVideo   ClipKind = "video"
	ClipAudio   ClipKind = "audio"
	ClipTitle   ClipKind = "title"
	ClipCaption ClipKind = "caption"
)

// Clip is one placement on a track. Times are in seconds from the start of the timeline.
// Segment is -1 for clips spanning the whole timeline.
type Clip struct {
	Kind          ClipKind `json:"kind"`
	Segment       int      `json:"segment"`
	Source        string   `json:"source,omitempty"`
	Text          string   `json:"text,omitempty"`
	Style         string   `json:"style,omitempty"`
	Start         float64  `json:"start"`
	Length        float64  `json:"length"`
	Effect        string   `json:"effect,omitempty"`
	TransitionIn  string   `json:"transition_in,omitempty"`
	TransitionOut string   `json:"transition_out,omitempty"`
	Muted         bool     `json:"muted,omitempty"`
}

// End returns Start + Length.
func (c Clip) End() float64 { return c.Start + c.Length }

// Track is one z-ordered layer. Higher Z renders on top.
type Track struct {
	Name  string    `json:"name"`
	Kind  TrackKind `json:"kind"`
	Z     int       `json:"z"`
	Clips []Clip    `json:"clips"`
}

// Dropped records a segment or overlay left out of the timeline.
type Dropped struct {
	Segment int    `json:"segment"`
	Track   string `json:"track"`
	Reason  string `json:"reason"`
}

// Spec is the builder output.
type Spec struct {
	Tracks     []Track   `json:"tracks"`
	Duration   float64   `json:"duration"`
	Transition float64   `json:"transition"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FPS        int       `json:"fps"`
	Dropped    []Dropped `json:"dropped,omitempty"`
}

// Track returns the track named name.
func (s Spec) Track(name string) (Track, bool) {
	for _, track := range s.Tracks {
		if track.Name == name {
			return track, true
		}
	}
	return Track{}, false
}

// Base returns the base video track.
func (s Spec) Base() Track {
	track, _ := s.Track(TrackBase)
	return track
}
