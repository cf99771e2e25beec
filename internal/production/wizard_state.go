package production

import (
	"fmt"
)

// WizardState aggregates the progress of every wizard step.
type WizardState struct {
	CurrentStep Step                      `json:"current_step"`
	Steps       map[Step]*SubStepProgress `json:"steps"`
}

// NewWizardState returns a state with every step pending, positioned at news_fetch.
func NewWizardState() *WizardState {
	state := &WizardState{
		CurrentStep: StepNewsFetch,
		Steps:       make(map[Step]*SubStepProgress, len(orderedSteps)),
	}
	for _, step := range orderedSteps {
		state.Steps[step] = NewSubStepProgress()
	}
	return state
}

// Progress returns the progress record for step, creating a pending one when missing.
func (w *WizardState) Progress(step Step) *SubStepProgress {
	if w.Steps == nil {
		w.Steps = make(map[Step]*SubStepProgress, len(orderedSteps))
	}
	progress, ok := w.Steps[step]
	if !ok || progress == nil {
		progress = NewSubStepProgress()
		w.Steps[step] = progress
	}
	return progress
}

// RecomputeCurrentStep derives CurrentStep from the step statuses by scanning in
// declared order and stopping at the first step that is not completed or skipped.
// The stored pointer is never trusted.
func (w *WizardState) RecomputeCurrentStep() Step {
	w.CurrentStep = StepDone
	for _, step := range orderedSteps {
		if !w.Progress(step).Status.Finished() {
			w.CurrentStep = step
			break
		}
	}
	return w.CurrentStep
}

// Finished reports whether step is completed or skipped.
func (w *WizardState) Finished(step Step) bool {
	progress, ok := w.Steps[step]
	return ok && progress != nil && progress.Status.Finished()
}

// Clone returns a deep copy.
func (w *WizardState) Clone() *WizardState {
	if w == nil {
		return nil
	}
	clone := &WizardState{CurrentStep: w.CurrentStep, Steps: make(map[Step]*SubStepProgress, len(w.Steps))}
	for step, progress := range w.Steps {
		clone.Steps[step] = progress.Clone()
	}
	return clone
}

func (w *WizardState) validate() error {
	if !w.CurrentStep.Valid() {
		return fmt.Errorf("current step %q is unknown", w.CurrentStep)
	}
	for step, progress := range w.Steps {
		if !step.Valid() || step == StepDone {
			return fmt.Errorf("unknown step %q", step)
		}
		if progress == nil {
			return fmt.Errorf("step %s has no progress", step)
		}
		if err := Validate(progress); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
		if _, fanOut := step.ResourceKind(); !fanOut && len(progress.Segments) > 0 {
			return fmt.Errorf("step %s carries segment progress", step)
		}
	}
	return nil
}
