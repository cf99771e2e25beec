package wizard

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"newscast/internal/checkpoint"
	"newscast/internal/production"
	"newscast/internal/tracker"
)

// Advance returns the step after step. It reports false once done is reached.
func Advance(step production.Step) (production.Step, bool) {
	return production.Next(step)
}

// Production is the in-memory aggregate of one broadcast.
type Production struct {
	ID        string
	Brief     production.Brief
	CreatedAt time.Time

	// saveMu orders snapshot and save so checkpoints never go backwards.
	saveMu sync.Mutex

	mu       sync.Mutex
	state    *production.WizardState
	segments []production.Segment
	tracker  *tracker.Tracker
	aborted  atomic.Bool
}

// NewProduction returns a production positioned at news_fetch.
func NewProduction(id string, brief production.Brief, now func() time.Time) *Production {
	if now == nil {
		now = time.Now
	}
	snap := checkpoint.NewSnapshot(id, brief)
	snap.CreatedAt = now().UTC()
	return FromSnapshot(snap, now)
}

// FromSnapshot rebuilds a production from a checkpoint.
func FromSnapshot(snap checkpoint.Snapshot, now func() time.Time) *Production {
	state := snap.Wizard.Clone()
	if state == nil {
		state = production.NewWizardState()
	}
	state.RecomputeCurrentStep()
	p := &Production{
		ID:        snap.ProductionID,
		Brief:     snap.Brief,
		CreatedAt: snap.CreatedAt,
		state:     state,
		segments:  slices.Clone(snap.Segments),
		tracker:   tracker.New(now),
	}
	p.tracker.Restore(snap.Statuses)
	p.aborted.Store(snap.Aborted)
	return p
}

// Snapshot captures the current state for checkpointing. Fan-out step progress is
// refreshed from the tracker first.
func (p *Production) Snapshot() checkpoint.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncSegmentProgressLocked()
	return checkpoint.Snapshot{
		ProductionID: p.ID,
		Brief:        p.Brief,
		Wizard:       p.state.Clone(),
		Segments:     slices.Clone(p.segments),
		Statuses:     p.tracker.Snapshot(),
		Aborted:      p.aborted.Load(),
		CreatedAt:    p.CreatedAt,
	}
}

// State returns a copy of the wizard state with a freshly derived current step.
func (p *Production) State() *production.WizardState {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncSegmentProgressLocked()
	p.state.RecomputeCurrentStep()
	return p.state.Clone()
}

// CurrentStep derives the first step that is neither completed nor skipped.
func (p *Production) CurrentStep() production.Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.RecomputeCurrentStep()
}

// Progress returns a copy of the progress of step.
func (p *Production) Progress(step production.Step) production.SubStepProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.state.Progress(step).Clone()
}

// Segments returns the frozen segment list. It is empty before script review.
func (p *Production) Segments() []production.Segment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.segments)
}

// Status returns the resource status of segment index.
func (p *Production) Status(index int) production.SegmentStatus {
	return p.tracker.Status(index)
}

// Abort stops the production from issuing new generation calls. Finished
// resources are kept for a later resume.
func (p *Production) Abort() { p.aborted.Store(true) }

// Aborted reports whether Abort was called.
func (p *Production) Aborted() bool { return p.aborted.Load() }

func (p *Production) resume() { p.aborted.Store(false) }

func (p *Production) mutate(step production.Step, fn func(progress *production.SubStepProgress)) production.SubStepProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	progress := p.state.Progress(step)
	fn(progress)
	p.state.RecomputeCurrentStep()
	return *progress.Clone()
}

func (p *Production) freezeSegments(segments []production.Segment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.segments = slices.Clone(segments)
	p.tracker.Restore(nil)
}

func (p *Production) segmentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.segments)
}

func (p *Production) syncSegmentProgressLocked() {
	if len(p.segments) == 0 {
		return
	}
	for _, kind := range production.ResourceKinds() {
		step := production.StepForKind(kind)
		p.state.Progress(step).Segments = p.tracker.StatesFor(kind, len(p.segments))
	}
}
