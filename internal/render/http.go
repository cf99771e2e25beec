package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"newscast/internal/config"
	"newscast/internal/providers/httpjson"
	"newscast/internal/timeline"
)

// HTTPService talks to a Shotstack-style edit API: POST {base}/render with an edit
// document, GET {base}/render/{id} for status.
type HTTPService struct {
	client *httpjson.Client
}

// NewHTTPService builds the render service client from configuration.
func NewHTTPService(cfg config.Render, opts ...httpjson.Option) *HTTPService {
	return &HTTPService{client: httpjson.NewClient(httpjson.Config{
		Name:           "render",
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Auth:           httpjson.AuthAPIKeyHeader,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)}
}

type editDocument struct {
	Timeline editTimeline `json:"timeline"`
	Output   editOutput   `json:"output"`
}

type editTimeline struct {
	Background string      `json:"background"`
	Tracks     []editTrack `json:"tracks"`
}

type editTrack struct {
	Clips []editClip `json:"clips"`
}

type editClip struct {
	Asset      editAsset       `json:"asset"`
	Start      float64         `json:"start"`
	Length     float64         `json:"length"`
	Effect     string          `json:"effect,omitempty"`
	Position   string          `json:"position,omitempty"`
	Transition *editTransition `json:"transition,omitempty"`
}

type editAsset struct {
	Type   string   `json:"type"`
	Src    string   `json:"src,omitempty"`
	Text   string   `json:"text,omitempty"`
	Style  string   `json:"style,omitempty"`
	Size   string   `json:"size,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

type editTransition struct {
	In  string `json:"in,omitempty"`
	Out string `json:"out,omitempty"`
}

type editOutput struct {
	Format string   `json:"format"`
	FPS    int      `json:"fps,omitempty"`
	Size   editSize `json:"size"`
}

type editSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var overlayPositions = map[string]string{
	"lower_third": "bottomLeft",
	"name_plate":  "left",
	"ticker":      "bottom",
	"date_badge":  "topRight",
	"live":        "topLeft",
	"subtitle":    "bottom",
}

// buildDocument translates spec into the edit document. The provider draws the first
// track on top, so tracks are emitted in descending z order.
func buildDocument(spec timeline.Spec) editDocument {
	tracks := append([]timeline.Track(nil), spec.Tracks...)
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Z > tracks[j].Z })

	doc := editDocument{
		Timeline: editTimeline{Background: "#000000"},
		Output: editOutput{
			Format: "mp4",
			FPS:    spec.FPS,
			Size:   editSize{Width: spec.Width, Height: spec.Height},
		},
	}
	for _, track := range tracks {
		out := editTrack{Clips: make([]editClip, 0, len(track.Clips))}
		for _, clip := range track.Clips {
			out.Clips = append(out.Clips, translateClip(clip))
		}
		doc.Timeline.Tracks = append(doc.Timeline.Tracks, out)
	}
	return doc
}

func translateClip(clip timeline.Clip) editClip {
	out := editClip{Start: clip.Start, Length: clip.Length, Effect: clip.Effect}
	switch clip.Kind {
	case timeline.ClipVideo:
		out.Asset = editAsset{Type: "video", Src: clip.Source}
		if clip.Muted {
			zero := 0.0
			out.Asset.Volume = &zero
		}
	case timeline.ClipAudio:
		out.Asset = editAsset{Type: "audio", Src: clip.Source}
	default:
		out.Asset = editAsset{Type: "title", Text: clip.Text, Style: "minimal", Size: "small"}
		out.Position = overlayPositions[clip.Style]
	}
	if clip.TransitionIn != "" || clip.TransitionOut != "" {
		out.Transition = &editTransition{In: clip.TransitionIn, Out: clip.TransitionOut}
	}
	return out
}

type submitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"response"`
}

type statusResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response struct {
		ID       string  `json:"id"`
		Status   string  `json:"status"`
		URL      string  `json:"url"`
		Poster   string  `json:"poster"`
		Error    string  `json:"error"`
		Duration float64 `json:"duration"`
	} `json:"response"`
}

// Submit implements Service.
func (s *HTTPService) Submit(ctx context.Context, spec timeline.Spec) (string, error) {
	var resp submitResponse
	if err := s.client.Post(ctx, "render", buildDocument(spec), &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("render submit: %s", strings.TrimSpace(resp.Message))
	}
	return resp.Response.ID, nil
}

// Status implements Service.
func (s *HTTPService) Status(ctx context.Context, jobID string) (Result, error) {
	var resp statusResponse
	if err := s.client.Get(ctx, "render/"+jobID, nil, &resp); err != nil {
		return Result{}, err
	}
	if !resp.Success {
		return Result{}, fmt.Errorf("render status: %s", strings.TrimSpace(resp.Message))
	}
	status, err := ParseStatus(resp.Response.Status)
	if err != nil {
		return Result{}, err
	}
	return Result{
		JobID:     firstNonEmpty(resp.Response.ID, jobID),
		Status:    status,
		URL:       resp.Response.URL,
		PosterURL: resp.Response.Poster,
		Error:     resp.Response.Error,
		Duration:  resp.Response.Duration,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
