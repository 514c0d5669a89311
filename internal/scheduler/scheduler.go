package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const runTimeout = time.Minute

type eventCloser interface {
	CloseEndedEvents(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler closes registration for events whose date has passed.
type Scheduler struct {
	cron *cron.Cron
	repo eventCloser
	log  *zerolog.Logger
	now  func() time.Time
}

func New(repo eventCloser, log *zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.closeEnded); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("spec", spec).Msg("scheduler started")
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) closeEnded() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := s.repo.CloseEndedEvents(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to close ended events")
		return
	}
	if n > 0 {
		s.log.Info().Int64("closed", n).Msg("closed registration for ended events")
	}
}
