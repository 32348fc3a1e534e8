/*
scheduler.go - Automated cover expiry sweep

PURPOSE:
  Periodically looks at approved covers. Covers that crossed their expiry
  since the previous pass change the dashboard figures (active -> expired),
  so the portfolio summary is dropped. Covers expiring within 30 days are
  logged for the administrators.

DESIGN:
  - robfig/cron drives the schedule (default "@hourly", config key
    expiry_schedule)
  - Each pass remembers its own time; the next pass looks at (last, now]
  - Overlapping passes are skipped, not queued

USAGE:
  s := NewExpiryScheduler(svc, logger, "@hourly")
  if err := s.Start(); err != nil { ... }
  defer s.Stop()

SEE ALSO:
  - request/service.go: SweepExpirations
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/hedge-desk/request"
)

// Sweeper is the part of request.Service the scheduler needs.
type Sweeper interface {
	SweepExpirations(ctx context.Context, since, now time.Time) (request.Sweep, error)
}

// ExpiryScheduler runs the expiry sweep on a cron schedule.
type ExpiryScheduler struct {
	Sweeper  Sweeper
	Log      logrus.FieldLogger
	Schedule string
	Now      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	running bool
}

// NewExpiryScheduler creates a scheduler. The first pass looks back to the
// moment the scheduler was created.
func NewExpiryScheduler(sw Sweeper, log logrus.FieldLogger, schedule string) *ExpiryScheduler {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &ExpiryScheduler{
		Sweeper:  sw,
		Log:      log,
		Schedule: schedule,
		Now:      time.Now,
		lastRun:  time.Now().UTC(),
	}
}

// Start registers the job and starts the cron runner.
func (s *ExpiryScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.Schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", s.Schedule, err)
	}
	c.Start()
	s.cron = c

	s.Log.WithField("schedule", s.Schedule).Info("expiry scheduler started")
	return nil
}

// Stop stops the runner and waits for a pass in progress.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.Log.Info("expiry scheduler stopped")
}

// RunOnce performs one sweep. It is what the cron job calls and what tests
// and the admin endpoint use directly. A pass already in progress makes
// RunOnce return the zero Sweep.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) request.Sweep {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.Log.Debug("expiry sweep already running, skipping")
		return request.Sweep{}
	}
	s.running = true
	since := s.lastRun
	s.mu.Unlock()

	now := s.Now().UTC()
	sweep, err := s.Sweeper.SweepExpirations(ctx, since, now)

	s.mu.Lock()
	s.running = false
	s.lastErr = err
	if err == nil {
		s.lastRun = now
	}
	s.mu.Unlock()

	if err != nil {
		s.Log.WithError(err).Error("expiry sweep failed")
		return request.Sweep{}
	}

	for _, r := range sweep.Expired {
		s.Log.WithFields(logrus.Fields{
			"request_id": r.ID,
			"client":     r.Client,
			"bank":       r.Bank,
			"expiry":     r.Expiry.Format(time.DateOnly),
		}).Info("cover expired")
	}
	for _, r := range sweep.Upcoming {
		s.Log.WithFields(logrus.Fields{
			"request_id": r.ID,
			"client":     r.Client,
			"bank":       r.Bank,
			"days_left":  int(r.Expiry.Sub(now).Hours() / 24),
		}).Warn("cover expiring soon")
	}
	s.Log.WithFields(logrus.Fields{
		"expired":  len(sweep.Expired),
		"upcoming": len(sweep.Upcoming),
	}).Info("expiry sweep done")
	return sweep
}

// Status reports the last successful pass time and the last error.
func (s *ExpiryScheduler) Status() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
