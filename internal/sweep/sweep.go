// Package sweep runs the periodic maintenance job that keeps stores and
// caches inside the rolling window.
package sweep

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/engine"
)

// TaskCounter reports the size of the task collection for capacity tracking.
type TaskCounter interface {
	Count(ctx context.Context) (int, error)
}

// Sweeper owns the cron schedule for window cleanup.
type Sweeper struct {
	service *engine.Service
	busy    *cache.BusyBlocks
	guard   *cache.Guard
	tasks   TaskCounter
	cron    *cron.Cron
	log     zerolog.Logger
}

// New builds a Sweeper around the service and busy-block cache. guard and
// tasks may be nil when capacity tracking is not wanted.
func New(service *engine.Service, busy *cache.BusyBlocks, guard *cache.Guard, tasks TaskCounter) *Sweeper {
	return &Sweeper{
		service: service,
		busy:    busy,
		guard:   guard,
		tasks:   tasks,
		cron:    cron.New(),
		log:     logging.Component("sweep"),
	}
}

// Start registers the cleanup job on the given cron schedule and starts the
// scheduler. The job runs until Stop is called.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("register sweep schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.log.Debug().Str("schedule", schedule).Msg("sweep scheduled")
	return nil
}

// Stop halts the scheduler. Running jobs finish.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// Run performs one cleanup pass: drop gap dates that fell out of the rolling
// window, expire cached busy blocks outside it, and surface cache pressure.
func (s *Sweeper) Run(ctx context.Context) {
	win := s.service.Window()
	s.log.Info().Str("window", win.String()).Msg("sweep started")

	removed, err := s.service.CleanupWindow(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("gap cleanup failed")
	}
	s.busy.Cleanup(win)

	if s.guard != nil {
		if s.tasks != nil {
			if n, err := s.tasks.Count(ctx); err == nil {
				s.guard.Observe(cache.CollectionTasks, n, 0)
			}
		}
		s.guard.Observe(cache.CollectionBusyBlocks, s.busy.BlockCount(), 0)
	}
	s.service.CheckPressure()

	if s.guard != nil && s.guard.NeedsCleanup() {
		victims := s.guard.RecommendEviction(s.busy.Entries())
		s.busy.Evict(victims)
		s.guard.Observe(cache.CollectionBusyBlocks, s.busy.BlockCount(), 0)
		s.log.Info().Int("evicted", len(victims)).Msg("evicted cold busy-block entries under cache pressure")
	}

	s.log.Info().Str("window", win.String()).Int("gap_dates_removed", removed).Msg("sweep finished")
}
