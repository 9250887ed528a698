package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper removes artifacts older than a cutoff.
type Sweeper interface {
	Sweep(cutoff time.Time) ([]string, error)
}

// Janitor periodically clears scratch files that no live job owns. Only a
// crashed or killed process leaves such files behind.
type Janitor struct {
	cron   *cron.Cron
	store  Sweeper
	maxAge time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewJanitor schedules sweeps with a cron expression such as "@every 15m".
func NewJanitor(store Sweeper, schedule string, maxAge time.Duration, logger zerolog.Logger) (*Janitor, error) {
	if maxAge <= 0 {
		return nil, errors.Errorf("janitor max age must be positive, got %s", maxAge)
	}
	j := &Janitor{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce() }); err != nil {
		return nil, errors.Wrapf(err, "invalid sweep schedule %q", schedule)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (j *Janitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce sweeps now and returns how many files were removed.
func (j *Janitor) RunOnce() int {
	removed, err := j.store.Sweep(j.now().Add(-j.maxAge))
	if err != nil {
		j.logger.Warn().Err(err).Int("removed", len(removed)).Msg("scratch sweep failed")
		return len(removed)
	}
	if len(removed) > 0 {
		j.logger.Info().Strs("files", removed).Msg("removed stale artifacts")
	}
	return len(removed)
}
