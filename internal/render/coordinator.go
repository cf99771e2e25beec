package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newscast/internal/logging"
	"newscast/internal/services"
	"newscast/internal/timeline"
)

// Coordinator drives render jobs through a Service.
type Coordinator struct {
	service Service
	ledger  *CostLedger
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	mu        sync.Mutex
	submitted map[string]float64
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the clock used for the wait deadline.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSleeper overrides how the polling loop waits between polls.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Coordinator) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewCoordinator creates a coordinator. A nil ledger disables cost accounting.
func NewCoordinator(service Service, ledger *CostLedger, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		service:   service,
		ledger:    ledger,
		logger:    logging.NewComponentLogger(logger, "render"),
		now:       time.Now,
		sleep:     sleepContext,
		submitted: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ledger returns the cost ledger, which may be nil.
func (c *Coordinator) Ledger() *CostLedger { return c.ledger }

// Submit validates spec and hands it to the render service.
func (c *Coordinator) Submit(ctx context.Context, spec timeline.Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	jobID, err := c.service.Submit(ctx, spec)
	if err != nil {
		return "", services.Wrap(services.ErrRenderFailed, "render", "submit", "render service rejected job", err)
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", services.Wrap(services.ErrRenderFailed, "render", "submit", "render service returned no job id", nil)
	}
	c.mu.Lock()
	c.submitted[jobID] = spec.Duration
	c.mu.Unlock()
	c.logger.Info("render job submitted",
		logging.String("job_id", jobID),
		logging.Float64("duration_seconds", spec.Duration),
		logging.Int("tracks", len(spec.Tracks)),
	)
	return jobID, nil
}

// Poll fetches the current status of jobID once.
func (c *Coordinator) Poll(ctx context.Context, jobID string) (Result, error) {
	result, err := c.service.Status(ctx, jobID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "render", "poll", "status request failed", err)
	}
	if result.JobID == "" {
		result.JobID = jobID
	}
	return result, nil
}

// AwaitCompletion polls jobID every interval until it reaches a terminal status or
// maxWait elapses. Transient poll errors are logged and polling continues. When the
// provider reports no output duration, job.Duration is charged, falling back to the
// duration recorded when this coordinator submitted the job.
func (c *Coordinator) AwaitCompletion(ctx context.Context, job Job, maxWait, interval time.Duration) (Result, error) {
	jobID := job.ID
	if interval <= 0 {
		interval = time.Second
	}
	deadline := c.now().Add(maxWait)
	last := Result{JobID: jobID, Status: StatusQueued}
	polls := 0

	for {
		result, err := c.Poll(ctx, jobID)
		polls++
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			logging.WarnWithContext(c.logger, "render status poll failed", "render_poll_failed",
				logging.String("job_id", jobID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check render service availability"),
				logging.String(logging.FieldImpact, "polling continues until the wait limit"),
			)
		default:
			if result.Status != last.Status {
				c.logger.Info("render status changed",
					logging.String("job_id", jobID),
					logging.String("status", string(result.Status)),
				)
			}
			last = result
		}

		switch last.Status {
		case StatusDone:
			return c.finish(last, job.Duration)
		case StatusFailed:
			message := strings.TrimSpace(last.Error)
			if message == "" {
				message = "render service reported failure"
			}
			return last, services.Wrap(services.ErrRenderFailed, "render", "await", message, nil)
		}

		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			return last, services.Wrap(services.ErrRenderTimeout, "render", "await",
				fmt.Sprintf("job %s still %s after %s (%d polls)", jobID, last.Status, maxWait, polls), nil)
		}
		if err := c.sleep(ctx, min(interval, remaining)); err != nil {
			return last, err
		}
	}
}

func (c *Coordinator) finish(result Result, submittedDuration float64) (Result, error) {
	if strings.TrimSpace(result.URL) == "" {
		return result, services.Wrap(services.ErrRenderFailed, "render", "await", "job finished without an output url", nil)
	}
	if result.Duration <= 0 {
		result.Duration = submittedDuration
	}
	if result.Duration <= 0 {
		c.mu.Lock()
		result.Duration = c.submitted[result.JobID]
		c.mu.Unlock()
	}
	if c.ledger != nil {
		entry := c.ledger.Record(result.JobID, result.Duration)
		result.Cost = entry.Cost
	}
	c.logger.Info("render job finished",
		logging.String("job_id", result.JobID),
		logging.String("url", result.URL),
		logging.Float64("duration_seconds", result.Duration),
		logging.Float64("cost", result.Cost),
	)
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
