package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/ports"
)

const refreshTimeout = 30 * time.Second

// Scheduler periodically recomputes the dashboard snapshot.
type Scheduler struct {
	cron  *cron.Cron
	stats ports.StatsService
	spec  string
	log   zerolog.Logger
}

// NewScheduler accepts standard five-field cron specs and descriptors such as "@every 1m".
func NewScheduler(stats ports.StatsService, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		stats: stats,
		spec:  spec,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.stats == nil || s.spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.refreshStats); err != nil {
		return fmt.Errorf("schedule stats refresh %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("stats refresh scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) refreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	stats, err := s.stats.Refresh(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("stats refresh failed")
		return
	}
	s.log.Debug().Int64("total_damages", stats.TotalDamages).Msg("stats refreshed")
}
