package ports

import (
	"context"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// DamageRepository persists damage reports. Create assigns the numeric ID.
type DamageRepository interface {
	Create(ctx context.Context, report *domain.DamageReport) (*domain.DamageReport, error)
	FindByID(ctx context.Context, id int64) (*domain.DamageReport, error)
	List(ctx context.Context, filter domain.DamageFilter) ([]domain.DamageReport, error)
	Counts(ctx context.Context) (*domain.DamageCounts, error)
}
