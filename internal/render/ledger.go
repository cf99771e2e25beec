package render

import (
	"sync"
	"time"
)

// CostEntry is one recorded render charge.
type CostEntry struct {
	JobID      string    `json:"job_id"`
	Seconds    float64   `json:"seconds"`
	Cost       float64   `json:"cost"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CostLedger accumulates estimated render cost at a per-minute rate.
type CostLedger struct {
	mu            sync.Mutex
	ratePerMinute float64
	entries       []CostEntry
	now           func() time.Time
}

// NewCostLedger creates a ledger charging ratePerMinute for each minute of output.
func NewCostLedger(ratePerMinute float64) *CostLedger {
	if ratePerMinute < 0 {
		ratePerMinute = 0
	}
	return &CostLedger{ratePerMinute: ratePerMinute, now: time.Now}
}

// Record charges durationSeconds of output to jobID and returns the entry. Recording the
// same job twice replaces the earlier entry.
func (l *CostLedger) Record(jobID string, durationSeconds float64) CostEntry {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	entry := CostEntry{
		JobID:   jobID,
		Seconds: durationSeconds,
		Cost:    durationSeconds / 60 * l.ratePerMinute,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entry.RecordedAt = l.now()
	for i := range l.entries {
		if l.entries[i].JobID == jobID {
			l.entries[i] = entry
			return entry
		}
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Total returns the sum of all recorded costs.
func (l *CostLedger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, entry := range l.entries {
		total += entry.Cost
	}
	return total
}

// Entries returns a copy of the recorded entries in recording order.
func (l *CostLedger) Entries() []CostEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]CostEntry(nil), l.entries...)
}
