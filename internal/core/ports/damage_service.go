package ports

import (
	"context"
	"io"
	"time"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// CreateDamageInput is the DTO passed from the transport layer to DamageService.
type CreateDamageInput struct {
	Type         string
	Severity     string
	Location     string
	Lat          float64
	Lng          float64
	Description  string
	ReportedDate time.Time // zero = now
	Status       string    // empty = Pending
}

// DamageService exposes read/write access to damage reports.
type DamageService interface {
	List(ctx context.Context, filter domain.DamageFilter) ([]domain.DamageReport, error)
	Get(ctx context.Context, id int64) (*domain.DamageReport, error)
	Create(ctx context.Context, input CreateDamageInput) (*domain.DamageReport, error)
	Export(ctx context.Context, filter domain.DamageFilter, w io.Writer) (int, error)
}

// StatsService produces the dashboard summary.
type StatsService interface {
	Get(ctx context.Context) (*domain.DashboardStats, error)
	Refresh(ctx context.Context) (*domain.DashboardStats, error)
}
