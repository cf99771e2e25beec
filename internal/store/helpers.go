package store

import (
	"database/sql"
	"errors"
	"time"
)

const checkpointColumns = "production_id, title, current_step, aborted, brief_json, wizard_json, segments_json, statuses_json, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id         string
		title      string
		step       string
		aborted    sql.NullInt64
		brief      string
		wizard     string
		segments   sql.NullString
		statuses   sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &title, &step, &aborted, &brief, &wizard, &segments, &statuses, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	record := &Record{
		ProductionID: id,
		Title:        title,
		CurrentStep:  step,
		Aborted:      aborted.Valid && aborted.Int64 != 0,
		BriefJSON:    brief,
		WizardJSON:   wizard,
		SegmentsJSON: segments.String,
		StatusesJSON: statuses.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
