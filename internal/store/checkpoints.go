package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Upsert inserts or replaces the checkpoint for record.ProductionID. CreatedAt is kept
// from the first insert and the aborted flag is never cleared here.
func (s *Store) Upsert(ctx context.Context, record Record) error {
	if strings.TrimSpace(record.ProductionID) == "" {
		return errors.New("production id is required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO checkpoints (`+checkpointColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(production_id) DO UPDATE SET
            title = excluded.title,
            current_step = excluded.current_step,
            aborted = MAX(checkpoints.aborted, excluded.aborted),
            brief_json = excluded.brief_json,
            wizard_json = excluded.wizard_json,
            segments_json = excluded.segments_json,
            statuses_json = excluded.statuses_json,
            updated_at = excluded.updated_at`,
		record.ProductionID,
		record.Title,
		record.CurrentStep,
		boolToInt(record.Aborted),
		record.BriefJSON,
		record.WizardJSON,
		nullableString(record.SegmentsJSON),
		nullableString(record.StatusesJSON),
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Get fetches the checkpoint for id. It returns nil, nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+checkpointColumns+` FROM checkpoints WHERE production_id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return record, nil
}

// List returns every checkpoint, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+checkpointColumns+` FROM checkpoints ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return records, nil
}

// Delete removes the checkpoint for id. Deleting a missing checkpoint is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM checkpoints WHERE production_id = ?`, id); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// SetAborted sets or clears the aborted flag. It reports false when no checkpoint exists.
func (s *Store) SetAborted(ctx context.Context, id string, aborted bool) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE checkpoints SET aborted = ?, updated_at = ? WHERE production_id = ?`,
		boolToInt(aborted), formatTime(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("set aborted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set aborted rows: %w", err)
	}
	return affected > 0, nil
}

// Aborted reports whether the checkpoint for id carries the aborted flag.
func (s *Store) Aborted(ctx context.Context, id string) (bool, error) {
	var aborted int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT aborted FROM checkpoints WHERE production_id = ?`, id).Scan(&aborted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read aborted: %w", err)
	}
	return aborted != 0, nil
}
