package tracker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"newscast/internal/production"
	"newscast/internal/services"
)

// Unit identifies one generation unit.
type Unit struct {
	Index int
	Kind  production.ResourceKind
}

func (u Unit) String() string {
	return fmt.Sprintf("segment %d %s", u.Index, u.Kind)
}

// Option customises a SetStatus call.
type Option func(*update)

type update struct {
	url      string
	errMsg   string
	duration float64
}

// WithURL attaches the resource URL. Required when moving to done.
func WithURL(url string) Option {
	return func(u *update) { u.url = strings.TrimSpace(url) }
}

// WithError attaches the failure reason. Required when moving to failed.
func WithError(msg string) Option {
	return func(u *update) { u.errMsg = strings.TrimSpace(msg) }
}

// WithDuration records the measured audio duration in seconds.
func WithDuration(seconds float64) Option {
	return func(u *update) { u.duration = seconds }
}

// Tracker holds the SegmentStatus of every segment in a production.
type Tracker struct {
	mu       sync.Mutex
	statuses map[int]production.SegmentStatus
	now      func() time.Time
}

// New returns an empty tracker. A nil clock uses time.Now.
func New(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{statuses: make(map[int]production.SegmentStatus), now: now}
}

// SetStatus moves one resource to state and returns the updated status.
func (t *Tracker) SetStatus(index int, kind production.ResourceKind, state production.ResourceState, opts ...Option) (production.SegmentStatus, error) {
	if index < 0 {
		return production.SegmentStatus{}, invalid("set status", fmt.Errorf("negative segment index %d", index))
	}
	if err := checkKind(kind); err != nil {
		return production.SegmentStatus{}, invalid("set status", err)
	}
	var upd update
	for _, opt := range opts {
		opt(&upd)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.statusLocked(index)
	current := status.State(kind)
	if err := checkTransition(current, state); err != nil {
		return status, invalid("set status", fmt.Errorf("%s: %w", Unit{index, kind}, err))
	}

	switch state {
	case production.ResourceDone:
		if upd.url == "" {
			return status, invalid("set status", fmt.Errorf("%s: done requires a url", Unit{index, kind}))
		}
		setResource(&status, kind, state, upd.url, "")
		if kind == production.ResourceAudio && upd.duration > 0 {
			status.AudioDuration = upd.duration
		}
	case production.ResourceFailed:
		if upd.errMsg == "" {
			return status, invalid("set status", fmt.Errorf("%s: failed requires an error", Unit{index, kind}))
		}
		setResource(&status, kind, state, "", upd.errMsg)
	case production.ResourceGenerating:
		setResource(&status, kind, state, "", "")
		incrementAttempts(&status, kind)
	case production.ResourcePending:
		setResource(&status, kind, state, "", "")
	}
	status.LastUpdated = t.now().UTC()
	t.statuses[index] = status
	return status, nil
}

// ForceRegenerate moves a done resource back to generating, clearing its URL (and,
// for audio, the measured duration) before the status is returned. The attempt
// budget of the unit starts over.
func (t *Tracker) ForceRegenerate(index int, kind production.ResourceKind) (production.SegmentStatus, error) {
	if err := checkKind(kind); err != nil {
		return production.SegmentStatus{}, invalid("force regenerate", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.statusLocked(index)
	if status.State(kind) != production.ResourceDone {
		return status, invalid("force regenerate", fmt.Errorf("%s is %s, not done", Unit{index, kind}, status.State(kind)))
	}
	setResource(&status, kind, production.ResourceGenerating, "", "")
	if kind == production.ResourceAudio {
		status.AudioDuration = 0
		status.AudioAttempts = 1
	} else {
		status.VideoAttempts = 1
	}
	status.LastUpdated = t.now().UTC()
	t.statuses[index] = status
	return status, nil
}

// ResetAttempts zeroes the attempt counter of kind on every segment, restoring the
// retry budget after an explicit user retry.
func (t *Tracker) ResetAttempts(kind production.ResourceKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for index, status := range t.statuses {
		switch kind {
		case production.ResourceAudio:
			status.AudioAttempts = 0
		case production.ResourceVideo:
			status.VideoAttempts = 0
		}
		t.statuses[index] = status
	}
}

// Status returns a copy of the status of segment index; unknown segments are pending.
func (t *Tracker) Status(index int) production.SegmentStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked(index)
}

// IsSegmentReady reports whether both resources of index are done.
func (t *Tracker) IsSegmentReady(index int) bool {
	return t.Status(index).Ready()
}

// AllReady reports whether segments 0..count-1 are all render-ready.
func (t *Tracker) AllReady(count int) bool {
	return t.AllReadyFor(production.ResourceAudio, count) && t.AllReadyFor(production.ResourceVideo, count)
}

// AllReadyFor reports whether kind is done for segments 0..count-1.
func (t *Tracker) AllReadyFor(kind production.ResourceKind, count int) bool {
	if count <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < count; i++ {
		if t.statusLocked(i).State(kind) != production.ResourceDone {
			return false
		}
	}
	return true
}

// PendingOrFailed lists every unit of segments 0..count-1 that is not done, ordered by
// segment index with audio before video.
func (t *Tracker) PendingOrFailed(count int) []Unit {
	t.mu.Lock()
	defer t.mu.Unlock()
	var units []Unit
	for i := 0; i < count; i++ {
		status := t.statusLocked(i)
		for _, kind := range production.ResourceKinds() {
			if status.State(kind) != production.ResourceDone {
				units = append(units, Unit{Index: i, Kind: kind})
			}
		}
	}
	return units
}

// StatesFor returns the state of kind for segments 0..count-1.
func (t *Tracker) StatesFor(kind production.ResourceKind, count int) map[int]production.ResourceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	states := make(map[int]production.ResourceState, count)
	for i := 0; i < count; i++ {
		states[i] = t.statusLocked(i).State(kind)
	}
	return states
}

// Snapshot returns a copy of every tracked status.
func (t *Tracker) Snapshot() map[int]production.SegmentStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int]production.SegmentStatus, len(t.statuses))
	for index, status := range t.statuses {
		out[index] = status
	}
	return out
}

// Restore replaces the tracked statuses with statuses.
func (t *Tracker) Restore(statuses map[int]production.SegmentStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses = make(map[int]production.SegmentStatus, len(statuses))
	for index, status := range statuses {
		t.statuses[index] = status
	}
}

// Indexes returns the tracked segment indexes in ascending order.
func (t *Tracker) Indexes() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	indexes := make([]int, 0, len(t.statuses))
	for index := range t.statuses {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}

func (t *Tracker) statusLocked(index int) production.SegmentStatus {
	if status, ok := t.statuses[index]; ok {
		return status
	}
	return production.NewSegmentStatus()
}

func checkTransition(from, to production.ResourceState) error {
	switch to {
	case production.ResourceGenerating:
		if from == production.ResourcePending || from == production.ResourceFailed {
			return nil
		}
		if from == production.ResourceDone {
			return fmt.Errorf("done resources only regenerate on explicit request")
		}
		return fmt.Errorf("already generating")
	case production.ResourceDone, production.ResourceFailed:
		if from == production.ResourceGenerating {
			return nil
		}
	case production.ResourcePending:
		if from == production.ResourcePending {
			return nil
		}
	default:
		return fmt.Errorf("unknown state %q", to)
	}
	return fmt.Errorf("cannot move from %s to %s", from, to)
}

func setResource(status *production.SegmentStatus, kind production.ResourceKind, state production.ResourceState, url, errMsg string) {
	if kind == production.ResourceVideo {
		status.Video, status.VideoURL, status.VideoError = state, url, errMsg
		return
	}
	status.Audio, status.AudioURL, status.AudioError = state, url, errMsg
}

func incrementAttempts(status *production.SegmentStatus, kind production.ResourceKind) {
	if kind == production.ResourceVideo {
		status.VideoAttempts++
		return
	}
	status.AudioAttempts++
}

func checkKind(kind production.ResourceKind) error {
	switch kind {
	case production.ResourceAudio, production.ResourceVideo:
		return nil
	}
	return fmt.Errorf("unknown resource kind %q", kind)
}

func invalid(operation string, err error) error {
	return services.Wrap(services.ErrValidation, "tracker", operation, "invalid transition", err)
}
