package timeline

import "newscast/internal/production"

// DefaultPalette is the motion effect rotation used when none is configured.
var DefaultPalette = []string{"zoomIn", "zoomOut", "slideLeft", "slideRight", "zoomInSlow"}

var sceneEffects = map[string]string{
	production.SceneIntro: "zoomInSlow",
	production.SceneOutro: "zoomOut",
}

// EffectFor returns the motion effect of the clip at index. A non-empty override always
// wins; otherwise the palette is rotated by index.
func EffectFor(palette []string, index int, override string) string {
	if override != "" {
		return override
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

// SceneEffect returns the effect implied by a scene type, or "" when the scene type has none.
func SceneEffect(sceneType string) string {
	return sceneEffects[sceneType]
}

func segmentOverride(segment production.Segment) string {
	if segment.Effect != "" {
		return segment.Effect
	}
	return SceneEffect(segment.SceneType)
}
