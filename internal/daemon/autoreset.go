package daemon

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/classbank/classbank/internal/app/cycles"
	"github.com/classbank/classbank/internal/domain"
)

// Sweeper periodically rotates cycles whose end date has passed, so the
// weekly reset happens even when no teacher clicks the button.
type Sweeper struct {
	repo    domain.CycleRepo
	manager *cycles.Manager
	cron    *cron.Cron
	log     zerolog.Logger
}

// NewSweeper creates a Sweeper with the given cron schedule.
func NewSweeper(repo domain.CycleRepo, manager *cycles.Manager, schedule string, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		repo:    repo,
		manager: manager,
		cron:    cron.New(),
		log:     log,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the scheduled sweeps. One sweep runs immediately so a
// daemon that was down over a week boundary catches up on startup.
func (s *Sweeper) Start() {
	s.sweep()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one pass over all overdue active cycles. Exported for the
// CLI's manual sweep command.
func (s *Sweeper) Sweep(ctx context.Context) error {
	overdue, err := s.repo.ListOverdueActiveCycles(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, c := range overdue {
		if _, _, err := s.manager.ResetCycle(ctx, c.ClassID); err != nil {
			// One stuck class must not stall the rest of the sweep.
			s.log.Error().Err(err).Str("class", c.ClassID).Msg("auto reset failed")
			continue
		}
		s.log.Info().Str("class", c.ClassID).Int("week", c.WeekNumber+1).Msg("cycle auto reset")
	}
	return nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.Sweep(ctx); err != nil {
		s.log.Error().Err(err).Msg("cycle sweep failed")
	}
}
