package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
)

// StatsService builds the dashboard summary, preferring a cached snapshot
// when one is available and younger than maxAge.
type StatsService struct {
	users   ports.UserRepository
	damages ports.DamageRepository
	cache   ports.StatsCache // optional
	maxAge  time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

func NewStatsService(
	users ports.UserRepository,
	damages ports.DamageRepository,
	cache ports.StatsCache,
	maxAge time.Duration,
	log zerolog.Logger,
) *StatsService {
	return &StatsService{users: users, damages: damages, cache: cache, maxAge: maxAge, log: log, now: time.Now}
}

func (s *StatsService) Get(ctx context.Context) (*domain.DashboardStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("stats cache read failed, computing live")
		case cached != nil && s.now().Sub(cached.LastUpdated) <= s.maxAge:
			return cached, nil
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the summary from the stores and updates the cache.
func (s *StatsService) Refresh(ctx context.Context) (*domain.DashboardStats, error) {
	counts, err := s.damages.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: damages: %w", err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: users: %w", err)
	}

	stats := &domain.DashboardStats{
		TotalDamages:    counts.Total,
		TotalUsers:      totalUsers,
		BySeverity:      make(map[domain.Severity]int64, len(domain.Severities)),
		ByStatus:        make(map[domain.DamageStatus]int64, len(domain.Statuses)),
		PendingCritical: counts.PendingCritical,
		LastUpdated:     s.now().UTC(),
	}
	for _, sev := range domain.Severities {
		stats.BySeverity[sev] = counts.BySeverity[sev]
	}
	for _, st := range domain.Statuses {
		stats.ByStatus[st] = counts.ByStatus[st]
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.log.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return stats, nil
}
