package production

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResourceKind names a per-segment generated resource.
type ResourceKind string

const (
	ResourceAudio ResourceKind = "audio"
	ResourceVideo ResourceKind = "video"
)

// ResourceKinds returns the kinds in generation order.
func ResourceKinds() []ResourceKind {
	return []ResourceKind{ResourceAudio, ResourceVideo}
}

// ParseResourceKind converts a user-supplied name into a ResourceKind.
func ParseResourceKind(value string) (ResourceKind, error) {
	switch kind := ResourceKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case ResourceAudio, ResourceVideo:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown resource kind %q (use audio or video)", value)
	}
}

// ResourceState is the generation state of one segment resource.
type ResourceState string

const (
	ResourcePending    ResourceState = "pending"
	ResourceGenerating ResourceState = "generating"
	ResourceDone       ResourceState = "done"
	ResourceFailed     ResourceState = "failed"
)

// SegmentStatus tracks the audio and video resources of one segment.
type SegmentStatus struct {
	Audio         ResourceState `json:"audio" validate:"required,oneof=pending generating done failed"`
	Video         ResourceState `json:"video" validate:"required,oneof=pending generating done failed"`
	AudioURL      string        `json:"audio_url,omitempty" validate:"omitempty,url"`
	VideoURL      string        `json:"video_url,omitempty" validate:"omitempty,url"`
	AudioDuration float64       `json:"audio_duration,omitempty" validate:"gte=0"`
	AudioError    string        `json:"audio_error,omitempty"`
	VideoError    string        `json:"video_error,omitempty"`
	AudioAttempts int           `json:"audio_attempts" validate:"gte=0"`
	VideoAttempts int           `json:"video_attempts" validate:"gte=0"`
	LastUpdated   time.Time     `json:"last_updated"`
}

// NewSegmentStatus returns a status with both resources pending.
func NewSegmentStatus() SegmentStatus {
	return SegmentStatus{Audio: ResourcePending, Video: ResourcePending}
}

// State returns the state of kind.
func (s SegmentStatus) State(kind ResourceKind) ResourceState {
	if kind == ResourceVideo {
		return s.Video
	}
	return s.Audio
}

// URL returns the resource URL of kind.
func (s SegmentStatus) URL(kind ResourceKind) string {
	if kind == ResourceVideo {
		return s.VideoURL
	}
	return s.AudioURL
}

// Err returns the recorded error of kind.
func (s SegmentStatus) Err(kind ResourceKind) string {
	if kind == ResourceVideo {
		return s.VideoError
	}
	return s.AudioError
}

// Attempts returns how many times kind has entered generating.
func (s SegmentStatus) Attempts(kind ResourceKind) int {
	if kind == ResourceVideo {
		return s.VideoAttempts
	}
	return s.AudioAttempts
}

// Ready reports whether the segment is render-ready.
func (s SegmentStatus) Ready() bool {
	return s.Audio == ResourceDone && s.Video == ResourceDone
}

func (s SegmentStatus) validateInvariants() error {
	for _, kind := range ResourceKinds() {
		state := s.State(kind)
		if (s.URL(kind) != "") != (state == ResourceDone) {
			return fmt.Errorf("%s url present=%t with state %s", kind, s.URL(kind) != "", state)
		}
		if (s.Err(kind) != "") != (state == ResourceFailed) {
			return fmt.Errorf("%s error present=%t with state %s", kind, s.Err(kind) != "", state)
		}
	}
	return nil
}

// Segment is one ordered spoken unit of the broadcast. Segments are frozen once the
// script is reviewed; only their SegmentStatus changes afterwards.
type Segment struct {
	Index          int     `json:"index" validate:"gte=0"`
	Speaker        string  `json:"speaker" validate:"required"`
	Text           string  `json:"text" validate:"required"`
	Title          string  `json:"title,omitempty"`
	Duration       float64 `json:"duration,omitempty" validate:"gte=0"`
	VisualPrompt   string  `json:"visual_prompt,omitempty"`
	ReferenceImage string  `json:"reference_image,omitempty" validate:"omitempty,url"`
	ShotType       string  `json:"shot_type,omitempty"`
	SceneType      string  `json:"scene_type,omitempty"`
	Effect         string  `json:"effect,omitempty"`
}

// WordCount returns the number of whitespace-separated words in the segment text.
func (s Segment) WordCount() int {
	return len(strings.Fields(s.Text))
}

// SegmentsFromScript converts reviewed scenes into ordered segments.
func SegmentsFromScript(script Script) ([]Segment, error) {
	if len(script.Scenes) == 0 {
		return nil, errors.New("script has no scenes")
	}
	segments := make([]Segment, 0, len(script.Scenes))
	for _, scene := range script.Scenes {
		if strings.TrimSpace(scene.Text) == "" {
			continue
		}
		segments = append(segments, Segment{
			Index:          len(segments),
			Speaker:        strings.TrimSpace(scene.Speaker),
			Text:           strings.TrimSpace(scene.Text),
			Title:          strings.TrimSpace(scene.Title),
			Duration:       scene.Duration,
			VisualPrompt:   scene.VisualPrompt,
			ReferenceImage: scene.ReferenceImage,
			ShotType:       scene.ShotType,
			SceneType:      scene.SceneType,
			Effect:         scene.Effect,
		})
	}
	if len(segments) == 0 {
		return nil, errors.New("script has no spoken scenes")
	}
	return segments, nil
}
