package production

import "fmt"

// Step identifies one stage of the production wizard.
type Step string

const (
	StepNewsFetch      Step = "news_fetch"
	StepNewsSelect     Step = "news_select"
	StepScriptGenerate Step = "script_generate"
	StepScriptReview   Step = "script_review"
	StepAudioGenerate  Step = "audio_generate"
	StepVideoGenerate  Step = "video_generate"
	StepRenderFinal    Step = "render_final"
	StepPublish        Step = "publish"
	StepDone           Step = "done"
)

var orderedSteps = []Step{
	StepNewsFetch,
	StepNewsSelect,
	StepScriptGenerate,
	StepScriptReview,
	StepAudioGenerate,
	StepVideoGenerate,
	StepRenderFinal,
	StepPublish,
}

// Steps returns the runnable steps in declared order. StepDone is not included.
func Steps() []Step {
	out := make([]Step, len(orderedSteps))
	copy(out, orderedSteps)
	return out
}

// Next returns the step that follows step. It returns false at StepDone and for unknown steps.
func Next(step Step) (Step, bool) {
	if step == StepDone {
		return "", false
	}
	idx := step.Index()
	if idx < 0 {
		return "", false
	}
	if idx == len(orderedSteps)-1 {
		return StepDone, true
	}
	return orderedSteps[idx+1], true
}

// Index returns the 0-based position of the step, len(Steps()) for StepDone, or -1 when unknown.
func (s Step) Index() int {
	if s == StepDone {
		return len(orderedSteps)
	}
	for i, candidate := range orderedSteps {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a runnable step or StepDone.
func (s Step) Valid() bool {
	return s.Index() >= 0
}

// Before reports whether s is declared strictly before other.
func (s Step) Before(other Step) bool {
	return s.Index() < other.Index()
}

// ResourceKind returns the resource kind a fan-out step generates.
func (s Step) ResourceKind() (ResourceKind, bool) {
	switch s {
	case StepAudioGenerate:
		return ResourceAudio, true
	case StepVideoGenerate:
		return ResourceVideo, true
	default:
		return "", false
	}
}

// StepForKind returns the fan-out step that generates kind.
func StepForKind(kind ResourceKind) Step {
	if kind == ResourceVideo {
		return StepVideoGenerate
	}
	return StepAudioGenerate
}

// ParseStep converts a user-supplied name into a Step.
func ParseStep(value string) (Step, error) {
	step := Step(value)
	if !step.Valid() || step == StepDone {
		return "", fmt.Errorf("unknown step %q", value)
	}
	return step, nil
}

func (s Step) String() string { return string(s) }
