package checkpoint

import (
	"encoding/json"
	"fmt"

	"newscast/internal/production"
	"newscast/internal/store"
)

func encode(snap Snapshot) (store.Record, error) {
	brief, err := json.Marshal(snap.Brief)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode brief: %w", err)
	}
	wizard, err := json.Marshal(snap.Wizard)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode wizard: %w", err)
	}
	record := store.Record{
		ProductionID: snap.ProductionID,
		Title:        snap.Brief.Title,
		CurrentStep:  string(snap.Wizard.CurrentStep),
		Aborted:      snap.Aborted,
		BriefJSON:    string(brief),
		WizardJSON:   string(wizard),
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}
	if len(snap.Segments) > 0 {
		segments, err := json.Marshal(snap.Segments)
		if err != nil {
			return store.Record{}, fmt.Errorf("encode segments: %w", err)
		}
		record.SegmentsJSON = string(segments)
	}
	if len(snap.Statuses) > 0 {
		statuses, err := json.Marshal(snap.Statuses)
		if err != nil {
			return store.Record{}, fmt.Errorf("encode statuses: %w", err)
		}
		record.StatusesJSON = string(statuses)
	}
	return record, nil
}

func decode(record store.Record) (Snapshot, error) {
	snap := Snapshot{
		ProductionID: record.ProductionID,
		Aborted:      record.Aborted,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		Statuses:     make(map[int]production.SegmentStatus),
	}
	if err := json.Unmarshal([]byte(record.BriefJSON), &snap.Brief); err != nil {
		return Snapshot{}, fmt.Errorf("decode brief: %w", err)
	}
	snap.Wizard = &production.WizardState{}
	if err := json.Unmarshal([]byte(record.WizardJSON), snap.Wizard); err != nil {
		return Snapshot{}, fmt.Errorf("decode wizard: %w", err)
	}
	if record.SegmentsJSON != "" {
		if err := json.Unmarshal([]byte(record.SegmentsJSON), &snap.Segments); err != nil {
			return Snapshot{}, fmt.Errorf("decode segments: %w", err)
		}
	}
	if record.StatusesJSON != "" {
		if err := json.Unmarshal([]byte(record.StatusesJSON), &snap.Statuses); err != nil {
			return Snapshot{}, fmt.Errorf("decode statuses: %w", err)
		}
	}
	return snap, nil
}

func validate(snap Snapshot) error {
	if err := production.Validate(snap.Brief); err != nil {
		return err
	}
	if err := production.Validate(snap.Wizard); err != nil {
		return err
	}
	if err := production.ValidateSegments(snap.Segments); err != nil {
		return err
	}
	for index, status := range snap.Statuses {
		if index < 0 || (len(snap.Segments) > 0 && index >= len(snap.Segments)) {
			return fmt.Errorf("status for unknown segment %d", index)
		}
		if err := production.Validate(status); err != nil {
			return fmt.Errorf("segment %d: %w", index, err)
		}
	}
	return nil
}
