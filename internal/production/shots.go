package production

import "fmt"

// Shot types understood by the video synthesizer.
const (
	ShotAnchorDesk  = "anchor_desk"
	ShotCloseUp     = "closeup"
	ShotWide        = "wide"
	ShotBRoll       = "broll"
	ShotSplitScreen = "split_screen"
)

// Scene types produced by the script generator.
const (
	SceneIntro     = "intro"
	SceneStory     = "story"
	SceneInterview = "interview"
	SceneOutro     = "outro"
)

var knownShots = map[string]struct{}{
	ShotAnchorDesk:  {},
	ShotCloseUp:     {},
	ShotWide:        {},
	ShotBRoll:       {},
	ShotSplitScreen: {},
}

var defaultShotForScene = map[string]string{
	SceneIntro:     ShotAnchorDesk,
	SceneStory:     ShotCloseUp,
	SceneInterview: ShotCloseUp,
	SceneOutro:     ShotAnchorDesk,
}

// CorrectShots adjusts narrative-driven shot choices that the video synthesizer
// cannot honour and returns the corrected script together with every change made.
// Intro and outro scenes always open and close at the anchor desk, split screens need
// a second speaker in the neighbouring scene, and unknown shot types fall back to the
// scene default.
func CorrectShots(script Script) (Script, []ShotCorrection) {
	corrected := script
	corrected.Scenes = append([]Scene(nil), script.Scenes...)
	var corrections []ShotCorrection

	apply := func(i int, to, reason string) {
		from := corrected.Scenes[i].ShotType
		if from == to {
			return
		}
		corrected.Scenes[i].ShotType = to
		corrections = append(corrections, ShotCorrection{Index: i, From: from, To: to, Reason: reason})
	}

	for i, scene := range corrected.Scenes {
		fallback, ok := defaultShotForScene[scene.SceneType]
		if !ok {
			fallback = ShotCloseUp
		}
		switch {
		case scene.ShotType == "":
			apply(i, fallback, "missing shot type")
		case !isKnownShot(scene.ShotType):
			apply(i, fallback, fmt.Sprintf("unknown shot type %q", scene.ShotType))
		case (scene.SceneType == SceneIntro || scene.SceneType == SceneOutro) && scene.ShotType != ShotAnchorDesk:
			apply(i, ShotAnchorDesk, scene.SceneType+" scenes are anchored at the desk")
		case scene.ShotType == ShotSplitScreen && !hasNeighbourSpeaker(corrected.Scenes, i):
			apply(i, ShotCloseUp, "split screen needs a second speaker")
		}
	}
	return corrected, corrections
}

func isKnownShot(shot string) bool {
	_, ok := knownShots[shot]
	return ok
}

func hasNeighbourSpeaker(scenes []Scene, i int) bool {
	speaker := scenes[i].Speaker
	if i > 0 && scenes[i-1].Speaker != speaker {
		return true
	}
	return i+1 < len(scenes) && scenes[i+1].Speaker != speaker
}
