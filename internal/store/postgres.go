package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// PGStore manages checkpoint persistence backed by PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, verifies the connection, and ensures the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Upsert inserts or replaces the checkpoint for record.ProductionID.
func (s *PGStore) Upsert(ctx context.Context, record Record) error {
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (`+checkpointColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (production_id) DO UPDATE SET
		     title = EXCLUDED.title,
		     current_step = EXCLUDED.current_step,
		     aborted = checkpoints.aborted OR EXCLUDED.aborted,
		     brief_json = EXCLUDED.brief_json,
		     wizard_json = EXCLUDED.wizard_json,
		     segments_json = EXCLUDED.segments_json,
		     statuses_json = EXCLUDED.statuses_json,
		     updated_at = EXCLUDED.updated_at`,
		record.ProductionID,
		record.Title,
		record.CurrentStep,
		record.Aborted,
		record.BriefJSON,
		record.WizardJSON,
		nullableString(record.SegmentsJSON),
		nullableString(record.StatusesJSON),
		record.CreatedAt.UTC(),
		record.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Get fetches the checkpoint for id. It returns nil, nil when none exists.
func (s *PGStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM checkpoints WHERE production_id = $1`, id)
	record, err := scanPGRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return record, nil
}

// List returns every checkpoint, most recently updated first.
func (s *PGStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgColumns+` FROM checkpoints ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanPGRecord(rows)
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

// Delete removes the checkpoint for id.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM checkpoints WHERE production_id = $1`, id); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// SetAborted sets or clears the aborted flag. It reports false when no checkpoint exists.
func (s *PGStore) SetAborted(ctx context.Context, id string, aborted bool) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE checkpoints SET aborted = $1, updated_at = NOW() WHERE production_id = $2`,
		aborted, id,
	)
	if err != nil {
		return false, fmt.Errorf("set aborted: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Aborted reports whether the checkpoint for id carries the aborted flag.
func (s *PGStore) Aborted(ctx context.Context, id string) (bool, error) {
	var aborted bool
	err := s.pool.QueryRow(ctx, `SELECT aborted FROM checkpoints WHERE production_id = $1`, id).Scan(&aborted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read aborted: %w", err)
	}
	return aborted, nil
}

// JSONB columns are read back as text so both backends share Record.
const pgColumns = "production_id, title, current_step, aborted, brief_json::text, wizard_json::text, COALESCE(segments_json::text, ''), COALESCE(statuses_json::text, ''), created_at, updated_at"

func scanPGRecord(row pgx.Row) (*Record, error) {
	var record Record
	if err := row.Scan(
		&record.ProductionID,
		&record.Title,
		&record.CurrentStep,
		&record.Aborted,
		&record.BriefJSON,
		&record.WizardJSON,
		&record.SegmentsJSON,
		&record.StatusesJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
