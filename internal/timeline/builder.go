package timeline

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"newscast/internal/logging"
	"newscast/internal/services"
)

// namePlateSeconds caps how long a speaker name plate stays on screen.
const namePlateSeconds = 4.0

// Overlay z-order; the base video and narration sit at zero.
const (
	zBase       = 0
	zSubtitles  = 10
	zNamePlates = 20
	zBanner     = 30
	zTicker     = 40
	zDateBadge  = 50
	zLive       = 60
)

// Builder turns segment inputs into a Spec.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if len(opts.EffectPalette) == 0 {
		opts.EffectPalette = DefaultPalette
	}
	if opts.TransitionSeconds < 0 {
		opts.TransitionSeconds = 0
	}
	return &Builder{opts: opts, logger: logging.NewComponentLogger(logger, "timeline")}
}

// Options returns the builder's composition constants.
func (b *Builder) Options() Options { return b.opts }

// Build computes the timeline. Inputs are placed in the order given; inputs without a
// playable video source are dropped. Build is pure with respect to its inputs.
func (b *Builder) Build(inputs []Input, meta Meta) (Spec, error) {
	spec := Spec{
		Transition: b.opts.TransitionSeconds,
		Width:      b.opts.Width,
		Height:     b.opts.Height,
		FPS:        b.opts.FPS,
	}

	usableInputs := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.VideoURL) == "" {
			spec.Dropped = append(spec.Dropped, Dropped{Segment: in.Segment.Index, Track: TrackBase, Reason: "no video source"})
			logging.WarnWithContext(b.logger, "segment dropped from timeline", "timeline_segment_dropped",
				logging.Int(logging.FieldSegmentIndex, in.Segment.Index),
				logging.String(logging.FieldErrorHint, "regenerate the segment video"),
				logging.String(logging.FieldImpact, "segment missing from the broadcast"),
			)
			continue
		}
		usableInputs = append(usableInputs, in)
	}
	if len(usableInputs) == 0 {
		return Spec{}, services.Wrap(services.ErrInvalidTimeline, "timeline", "build",
			fmt.Sprintf("no playable segments among %d inputs", len(inputs)), nil)
	}

	base, narration := b.baseTracks(usableInputs)
	last := base.Clips[len(base.Clips)-1]
	spec.Duration = round(last.End())

	spec.Tracks = append(spec.Tracks, base)
	if len(narration.Clips) > 0 {
		spec.Tracks = append(spec.Tracks, narration)
	}
	overlays := []Track{
		b.subtitles(usableInputs, base),
		b.namePlates(usableInputs, base, meta),
		b.banners(usableInputs, base),
		b.spanning(TrackTicker, zTicker, "ticker", strings.Join(nonEmpty(meta.Channel.Ticker), " • "), spec.Duration),
		b.spanning(TrackDateBadge, zDateBadge, "date_badge", meta.Date, spec.Duration),
		b.spanning(TrackLive, zLive, "live", meta.Channel.LiveLabel, spec.Duration),
	}
	for _, track := range overlays {
		track.Clips = b.clamp(track, spec.Duration, &spec.Dropped)
		if len(track.Clips) == 0 {
			continue
		}
		spec.Tracks = append(spec.Tracks, track)
	}

	b.logger.Debug("timeline built",
		logging.Int("segments", len(usableInputs)),
		logging.Int("tracks", len(spec.Tracks)),
		logging.Float64("duration_seconds", spec.Duration),
	)
	return spec, nil
}

func (b *Builder) baseTracks(inputs []Input) (Track, Track) {
	base := Track{Name: TrackBase, Kind: TrackVideo, Z: zBase, Clips: make([]Clip, 0, len(inputs))}
	narration := Track{Name: TrackNarration, Kind: TrackAudio, Z: zBase}
	transition := b.opts.TransitionSeconds
	start := 0.0
	for i, in := range inputs {
		length := SegmentDuration(in, b.opts)
		hasAudio := strings.TrimSpace(in.AudioURL) != ""
		clip := Clip{
			Kind:    ClipVideo,
			Segment: in.Segment.Index,
			Source:  in.VideoURL,
			Start:   round(start),
			Length:  round(length),
			Effect:  EffectFor(b.opts.EffectPalette, in.Segment.Index, segmentOverride(in.Segment)),
			Muted:   hasAudio,
		}
		if transition > 0 && b.opts.Transition != "" {
			if i > 0 {
				clip.TransitionIn = b.opts.Transition
			}
			if i < len(inputs)-1 {
				clip.TransitionOut = b.opts.Transition
			}
		}
		base.Clips = append(base.Clips, clip)
		if hasAudio {
			narration.Clips = append(narration.Clips, Clip{
				Kind:    ClipAudio,
				Segment: in.Segment.Index,
				Source:  in.AudioURL,
				Start:   clip.Start,
				Length:  clip.Length,
			})
		}
		start += length - transition
	}
	return base, narration
}

func (b *Builder) subtitles(inputs []Input, base Track) Track {
	track := Track{Name: TrackSubtitles, Kind: TrackCaption, Z: zSubtitles}
	if !b.opts.Subtitles {
		return track
	}
	for i, in := range inputs {
		anchor := base.Clips[i]
		for _, caption := range Captions(in.Segment.Text, anchor.Length, b.opts) {
			track.Clips = append(track.Clips, Clip{
				Kind:    ClipCaption,
				Segment: anchor.Segment,
				Text:    caption.Text,
				Style:   "subtitle",
				Start:   round(anchor.Start + caption.Offset),
				Length:  caption.Length,
			})
		}
	}
	return track
}

// namePlates shows the speaker's display name whenever the speaker changes.
func (b *Builder) namePlates(inputs []Input, base Track, meta Meta) Track {
	track := Track{Name: TrackNamePlates, Kind: TrackOverlay, Z: zNamePlates}
	previous := ""
	for i, in := range inputs {
		speaker := in.Segment.Speaker
		if speaker == "" || speaker == previous {
			previous = speaker
			continue
		}
		previous = speaker
		anchor := base.Clips[i]
		track.Clips = append(track.Clips, Clip{
			Kind:    ClipTitle,
			Segment: anchor.Segment,
			Text:    meta.Channel.DisplayName(speaker),
			Style:   "name_plate",
			Start:   anchor.Start,
			Length:  round(math.Min(namePlateSeconds, anchor.Length)),
		})
	}
	return track
}

func (b *Builder) banners(inputs []Input, base Track) Track {
	track := Track{Name: TrackBanner, Kind: TrackOverlay, Z: zBanner}
	for i, in := range inputs {
		title := strings.TrimSpace(in.Segment.Title)
		if title == "" {
			continue
		}
		anchor := base.Clips[i]
		track.Clips = append(track.Clips, Clip{
			Kind:    ClipTitle,
			Segment: anchor.Segment,
			Text:    title,
			Style:   "lower_third",
			Start:   anchor.Start,
			Length:  anchor.Length,
		})
	}
	return track
}

func (b *Builder) spanning(name string, z int, style, text string, total float64) Track {
	track := Track{Name: name, Kind: TrackOverlay, Z: z}
	text = strings.TrimSpace(text)
	if text == "" {
		return track
	}
	track.Clips = []Clip{{Kind: ClipTitle, Segment: -1, Text: text, Style: style, Start: 0, Length: total}}
	return track
}

// clamp trims overlay clips to [0, total] and drops those left empty.
func (b *Builder) clamp(track Track, total float64, dropped *[]Dropped) []Clip {
	kept := track.Clips[:0]
	for _, clip := range track.Clips {
		start := math.Max(clip.Start, 0)
		end := math.Min(clip.End(), total)
		if end <= start {
			*dropped = append(*dropped, Dropped{Segment: clip.Segment, Track: track.Name, Reason: "outside timeline"})
			logging.WarnWithContext(b.logger, "overlay dropped from timeline", "timeline_overlay_dropped",
				logging.String("track", track.Name),
				logging.Int(logging.FieldSegmentIndex, clip.Segment),
				logging.String(logging.FieldErrorHint, "check segment durations"),
			)
			continue
		}
		clip.Start = round(start)
		clip.Length = round(end - start)
		kept = append(kept, clip)
	}
	return kept
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
