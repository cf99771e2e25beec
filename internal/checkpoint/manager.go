package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newscast/internal/logging"
	"newscast/internal/production"
	"newscast/internal/services"
	"newscast/internal/store"
)

// Store is the record persistence the manager writes through.
type Store interface {
	Upsert(ctx context.Context, record store.Record) error
	Get(ctx context.Context, id string) (*store.Record, error)
	List(ctx context.Context) ([]store.Record, error)
	Delete(ctx context.Context, id string) error
	SetAborted(ctx context.Context, id string, aborted bool) (bool, error)
	Aborted(ctx context.Context, id string) (bool, error)
}

// Manager saves and restores production snapshots.
type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager constructs a manager over st.
func NewManager(st Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		logger: logging.NewComponentLogger(logger, "checkpoint"),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// Save upserts snap. Errors wrap services.ErrPersistence.
func (m *Manager) Save(ctx context.Context, snap Snapshot) error {
	if strings.TrimSpace(snap.ProductionID) == "" {
		return services.Wrap(services.ErrPersistence, "checkpoint", "save", "missing production id", nil)
	}
	if snap.Wizard == nil {
		return services.Wrap(services.ErrPersistence, "checkpoint", "save", "missing wizard state", nil)
	}

	lock := m.lockFor(snap.ProductionID)
	lock.Lock()
	defer lock.Unlock()

	snap.UpdatedAt = m.now().UTC()
	record, err := encode(snap)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "checkpoint", "save", "encode snapshot", err)
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return services.Wrap(services.ErrPersistence, "checkpoint", "save", "upsert checkpoint", err)
	}
	m.logger.Debug("checkpoint saved",
		logging.String(logging.FieldProductionID, snap.ProductionID),
		logging.String(logging.FieldStep, string(snap.Wizard.CurrentStep)),
	)
	return nil
}

// Load restores the snapshot for id, validating it and recomputing its current step.
// A missing checkpoint wraps services.ErrNotFound.
func (m *Manager) Load(ctx context.Context, id string) (Snapshot, error) {
	record, err := m.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, services.Wrap(services.ErrPersistence, "checkpoint", "load", "read checkpoint", err)
	}
	if record == nil {
		return Snapshot{}, services.Wrap(services.ErrNotFound, "checkpoint", "load", fmt.Sprintf("no checkpoint for %s", id), nil)
	}

	snap, err := decode(*record)
	if err != nil {
		return Snapshot{}, services.Wrap(services.ErrPersistence, "checkpoint", "load", "decode checkpoint", err)
	}
	if err := validate(snap); err != nil {
		return Snapshot{}, services.Wrap(services.ErrPersistence, "checkpoint", "load", "invalid checkpoint", err)
	}

	stored := snap.Wizard.CurrentStep
	if recomputed := snap.Wizard.RecomputeCurrentStep(); recomputed != stored {
		m.logger.Info("recovered current step from step statuses",
			logging.String(logging.FieldProductionID, id),
			logging.String("stored_step", string(stored)),
			logging.String(logging.FieldStep, string(recomputed)),
		)
	}
	return snap, nil
}

// LoadOrNew loads id or, when no checkpoint exists, returns a fresh snapshot for brief.
// The boolean reports whether the snapshot is new.
func (m *Manager) LoadOrNew(ctx context.Context, id string, brief production.Brief) (Snapshot, bool, error) {
	snap, err := m.Load(ctx, id)
	if err == nil {
		return snap, false, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return Snapshot{}, false, err
	}
	if err := production.Validate(brief); err != nil {
		return Snapshot{}, false, err
	}
	snap = NewSnapshot(id, brief)
	snap.CreatedAt = m.now().UTC()
	return snap, true, nil
}

// List returns summaries of every stored production, most recent first. Records that
// fail to decode are logged and skipped.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	records, err := m.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "checkpoint", "list", "list checkpoints", err)
	}
	summaries := make([]Summary, 0, len(records))
	for _, record := range records {
		snap, err := decode(record)
		if err != nil {
			logging.WarnWithContext(m.logger, "skipping unreadable checkpoint", "checkpoint_decode_failed",
				logging.String(logging.FieldProductionID, record.ProductionID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "production hidden from listing"),
			)
			continue
		}
		snap.Wizard.RecomputeCurrentStep()
		summaries = append(summaries, snap.Summary())
	}
	return summaries, nil
}

// Delete removes the checkpoint for id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	if err := m.store.Delete(ctx, id); err != nil {
		return services.Wrap(services.ErrPersistence, "checkpoint", "delete", "delete checkpoint", err)
	}
	return nil
}

// RequestAbort flags id as aborted so a running pipeline stops issuing generation calls.
func (m *Manager) RequestAbort(ctx context.Context, id string) error {
	found, err := m.store.SetAborted(ctx, id, true)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "checkpoint", "abort", "set aborted", err)
	}
	if !found {
		return services.Wrap(services.ErrNotFound, "checkpoint", "abort", fmt.Sprintf("no checkpoint for %s", id), nil)
	}
	return nil
}

// ClearAbort removes the aborted flag before a production resumes.
func (m *Manager) ClearAbort(ctx context.Context, id string) error {
	if _, err := m.store.SetAborted(ctx, id, false); err != nil {
		return services.Wrap(services.ErrPersistence, "checkpoint", "resume", "clear aborted", err)
	}
	return nil
}

// AbortRequested reports whether an abort was requested for id, possibly by another process.
func (m *Manager) AbortRequested(ctx context.Context, id string) (bool, error) {
	aborted, err := m.store.Aborted(ctx, id)
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "checkpoint", "abort", "read aborted", err)
	}
	return aborted, nil
}
