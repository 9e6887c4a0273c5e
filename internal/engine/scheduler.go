package engine

import (
	"context"
	"sync"
	"time"

	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// DefaultDebounce is how long the scheduler waits after the last trigger
// before recomputing a batch of non-urgent dates.
const DefaultDebounce = 250 * time.Millisecond

type recomputeRequest struct {
	dates     []timeutil.Date
	immediate bool
}

// Scheduler dispatches recomputation asynchronously relative to the caller.
// Urgent requests run at once; the rest are debounced so a burst of rapid
// preference edits collapses into a single whole-window pass.
type Scheduler struct {
	service  *Service
	requests chan recomputeRequest
	debounce time.Duration
	inflight sync.WaitGroup
}

// NewScheduler creates a scheduler over the given service. A non-positive
// debounce falls back to DefaultDebounce.
func NewScheduler(service *Service, debounce time.Duration) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Scheduler{
		service:  service,
		requests: make(chan recomputeRequest, 32),
		debounce: debounce,
	}
}

// Trigger asks for the given dates to be recomputed. Immediate requests are
// started right away; others are batched. Trigger never blocks the caller;
// a full buffer drops the request (the next window sweep recomputes anyway).
func (s *Scheduler) Trigger(dates []timeutil.Date, immediate bool) {
	s.inflight.Add(1)
	select {
	case s.requests <- recomputeRequest{dates: dates, immediate: immediate}:
	default:
		s.inflight.Done()
		logger := logging.Component("scheduler")
		logger.Warn().Msg("recompute request dropped, buffer full")
	}
}

// Wait blocks until every accepted request has finished recomputing,
// including requests still inside their debounce window. One-shot callers use
// it to keep the process alive until dispatched work lands; Run must be
// running, or Wait never returns.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// Run processes requests until ctx is done. It must be started on its own
// goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	log := logging.Component("scheduler")

	pending := make(map[timeutil.Date]struct{})
	batched := 0
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		merged := batched
		batched = 0
		if len(pending) == 0 {
			for range merged {
				s.inflight.Done()
			}
			return
		}
		batch := make([]timeutil.Date, 0, len(pending))
		for d := range pending {
			batch = append(batch, d)
		}
		pending = make(map[timeutil.Date]struct{})
		go func() {
			s.recompute(ctx, batch)
			for range merged {
				s.inflight.Done()
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-s.requests:
			if req.immediate {
				go func() {
					s.recompute(ctx, req.dates)
					s.inflight.Done()
				}()
				continue
			}
			batched++
			for _, d := range req.dates {
				pending[d] = struct{}{}
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			timerC = timer.C
			log.Debug().Int("pending", len(pending)).Msg("batched recompute request")

		case <-timerC:
			timerC = nil
			flush()
		}
	}
}

func (s *Scheduler) recompute(ctx context.Context, dates []timeutil.Date) {
	for _, date := range dates {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.service.RecomputeDate(ctx, date); err != nil {
			logger := logging.ForDate("scheduler", date.String())
			logger.Error().
				Err(err).
				Msg("recompute failed")
		}
	}
}
