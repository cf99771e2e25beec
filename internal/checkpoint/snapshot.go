package checkpoint

import (
	"maps"
	"time"

	"newscast/internal/production"
)

// Snapshot is the persisted state of one production.
type Snapshot struct {
	ProductionID string
	Brief        production.Brief
	Wizard       *production.WizardState
	Segments     []production.Segment
	Statuses     map[int]production.SegmentStatus
	Aborted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSnapshot returns a fresh snapshot positioned at news_fetch.
func NewSnapshot(id string, brief production.Brief) Snapshot {
	return Snapshot{
		ProductionID: id,
		Brief:        brief,
		Wizard:       production.NewWizardState(),
		Statuses:     make(map[int]production.SegmentStatus),
	}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	clone := s
	clone.Wizard = s.Wizard.Clone()
	clone.Segments = append([]production.Segment(nil), s.Segments...)
	clone.Statuses = maps.Clone(s.Statuses)
	return clone
}

// Summary is the list view of a checkpoint.
type Summary struct {
	ProductionID string
	Title        string
	Date         string
	CurrentStep  production.Step
	Aborted      bool
	Segments     int
	Ready        int
	UpdatedAt    time.Time
}

// Summary condenses the snapshot for listings.
func (s Snapshot) Summary() Summary {
	summary := Summary{
		ProductionID: s.ProductionID,
		Title:        s.Brief.Title,
		Date:         s.Brief.Date,
		Aborted:      s.Aborted,
		Segments:     len(s.Segments),
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Wizard != nil {
		summary.CurrentStep = s.Wizard.CurrentStep
	}
	for i := range s.Segments {
		if status, ok := s.Statuses[i]; ok && status.Ready() {
			summary.Ready++
		}
	}
	return summary
}
