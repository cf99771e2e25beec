package testsupport

import (
	"fmt"

	"newscast/internal/production"
)

// Brief returns a valid production brief.
func Brief() production.Brief {
	return production.Brief{
		Title:    "Evening bulletin",
		Date:     "2026-03-14",
		Criteria: "technology",
		MaxItems: 3,
		Channel: production.Channel{
			Name:      "Newscast",
			Tagline:   "The day in five minutes",
			LiveLabel: "LIVE",
			Ticker:    []string{"Markets up", "Rain tomorrow"},
			Anchors:   map[string]string{"anchor": "Dana Reyes"},
			Voices:    map[string]string{"anchor": "warm"},
		},
	}
}

// Script returns a script with n scenes alternating between two speakers.
func Script(n int) production.Script {
	speakers := []string{"anchor", "reporter"}
	scenes := make([]production.Scene, n)
	for i := range scenes {
		scenes[i] = production.Scene{
			Speaker:      speakers[i%len(speakers)],
			Text:         fmt.Sprintf("Scene %d brings the latest developments on the story.", i+1),
			Title:        fmt.Sprintf("Story %d", i+1),
			VisualPrompt: fmt.Sprintf("newsroom shot %d", i+1),
			SceneType:    production.SceneStory,
			ShotType:     production.ShotCloseUp,
		}
	}
	return production.Script{Title: "Evening bulletin", Scenes: scenes}
}

// Segments returns n frozen segments built from Script(n).
func Segments(n int) []production.Segment {
	segments, err := production.SegmentsFromScript(Script(n))
	if err != nil {
		panic(err)
	}
	return segments
}
