package round

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/01Clarian/xposure/internal/event"
)

// StateFunc reports the round's current (cycle, phase, deadline) under the
// engine's lock. The scheduler never mutates round state itself — it only
// emits PhaseDeadline events, so timer firing and restart recovery take the
// exact same path through the engine.
type StateFunc func() (cycle int64, phase Phase, deadline time.Time)

// Scheduler arms a wall-clock timer for the current phase deadline and emits
// a PhaseDeadline event when it elapses. Deadlines are recomputed from
// persisted timestamps, so a deadline already in the past (restart mid-phase)
// fires immediately.
type Scheduler struct {
	state     StateFunc
	eventChan chan<- event.Event
	logger    zerolog.Logger
}

func NewScheduler(state StateFunc, eventChan chan<- event.Event, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		state:     state,
		eventChan: eventChan,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		cycle, phase, deadline := s.state()

		if wait := time.Until(deadline); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		evt := &event.PhaseDeadline{
			Cycle:     cycle,
			FromPhase: int32(phase),
			FiredAt:   time.Now(),
		}

		select {
		case s.eventChan <- evt:
			s.logger.Debug().
				Int64("cycle", cycle).
				Str("phase", phase.String()).
				Msg("phase deadline emitted")
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := s.waitForAdvance(ctx, cycle, phase); err != nil {
			return err
		}
	}
}

// waitForAdvance polls until the engine has consumed the deadline event and
// moved the round on. Without this the loop would re-emit for the same
// (cycle, phase) while the event sits in the channel; the engine would dedup
// it, but there is no reason to spin.
func (s *Scheduler) waitForAdvance(ctx context.Context, cycle int64, phase Phase) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c, p, _ := s.state()
			if c != cycle || p != phase {
				return nil
			}
		}
	}
}

// SweepTicker emits SweepTick events on a fixed interval for the pending
// entry purge. Runs until ctx is cancelled.
func SweepTicker(ctx context.Context, interval time.Duration, eventChan chan<- event.Event) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case eventChan <- &event.SweepTick{FiredAt: time.Now()}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
