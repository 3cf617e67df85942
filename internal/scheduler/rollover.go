// Package scheduler runs the daily rollover: at every local midnight the
// active schedule is re-resolved for the new calendar day, plus any
// additional locations kept warm in the cache.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"minaret/internal/schedule"
	"minaret/internal/state"
	"minaret/internal/types"
)

// UntilNextMidnight returns the duration from now to the next local
// midnight. Computed through the calendar rather than a flat 24h so DST
// transitions land on the real day boundary.
func UntilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}

// Job is the rollover worker. Start launches it; Stop shuts it down and
// waits for the loop to exit.
type Job struct {
	source   types.ScheduleSource
	settings *schedule.SettingsStore
	state    *state.Store
	clock    types.Clock
	logger   *slog.Logger

	// warm is the set of extra locations refreshed alongside the active
	// one so their cache entries never go cold.
	warm []types.Coordinate

	stop chan struct{}
	done chan struct{}
}

// NewJob creates a rollover job. clock and logger may be nil.
func NewJob(
	source types.ScheduleSource,
	settings *schedule.SettingsStore,
	stateStore *state.Store,
	clock types.Clock,
	logger *slog.Logger,
	warm ...types.Coordinate,
) *Job {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		source:   source,
		settings: settings,
		state:    stateStore,
		clock:    clock,
		logger:   logger,
		warm:     warm,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start performs an initial refresh and launches the midnight loop.
func (j *Job) Start(ctx context.Context) {
	if err := j.Refresh(ctx); err != nil {
		j.logger.ErrorContext(ctx, "initial schedule refresh failed", "error", err)
	}
	go j.run(ctx)
}

// Stop terminates the loop and blocks until it has exited.
func (j *Job) Stop() {
	close(j.stop)
	<-j.done
}

func (j *Job) run(ctx context.Context) {
	defer close(j.done)

	// One-shot timer to the first midnight, then re-armed per day.
	// Recomputing each cycle keeps the boundary aligned across DST.
	timer := time.NewTimer(UntilNextMidnight(j.clock.Now()))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := j.Refresh(ctx); err != nil {
				j.logger.ErrorContext(ctx, "midnight schedule refresh failed", "error", err)
			}
			timer.Reset(UntilNextMidnight(j.clock.Now()))
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh re-resolves today's schedule for the active location and
// installs it in the state store, then warms the extra locations in
// parallel. A warm-location failure is logged, not returned; only the
// active location's failure is an error.
func (j *Job) Refresh(ctx context.Context) error {
	methodID := j.settings.Get(ctx).MethodID
	active := j.state.Location().Coordinate

	sched, err := j.source.TodaysSchedule(ctx, active, methodID)
	if err != nil {
		return err
	}
	j.state.SetSchedule(sched)

	if len(j.warm) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, coord := range j.warm {
		g.Go(func() error {
			if _, warmErr := j.source.TodaysSchedule(gctx, coord, methodID); warmErr != nil {
				j.logger.WarnContext(gctx, "warm location refresh failed",
					"location", coord.String(),
					"error", warmErr,
				)
			}
			return nil
		})
	}
	return g.Wait()
}
