package store

import "time"

// Record is one persisted production checkpoint.
type Record struct {
	ProductionID string
	Title        string
	CurrentStep  string
	Aborted      bool
	BriefJSON    string
	WizardJSON   string
	SegmentsJSON string
	StatusesJSON string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
