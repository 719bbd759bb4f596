package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/pkg/metrics"
)

// csvHeader is the column order of Export.
var csvHeader = []string{"id", "type", "severity", "location", "latitude", "longitude", "description", "reported_date", "status"}

type DamageService struct {
	repo ports.DamageRepository
	log  zerolog.Logger
}

func NewDamageService(repo ports.DamageRepository, log zerolog.Logger) *DamageService {
	return &DamageService{repo: repo, log: log}
}

func (s *DamageService) List(ctx context.Context, filter domain.DamageFilter) ([]domain.DamageReport, error) {
	if filter.SortBy == "" {
		filter.SortBy = domain.SortReportedDate
	}
	if filter.SortBy != domain.SortReportedDate && filter.SortBy != domain.SortSeverity {
		return nil, fmt.Errorf("%w: unsupported sort %q", domain.ErrInvalidInput, filter.SortBy)
	}
	if !filter.From.IsZero() && !filter.Until.IsZero() && filter.Until.Before(filter.From) {
		return nil, fmt.Errorf("%w: date range end precedes start", domain.ErrInvalidInput)
	}
	reports, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list damages: %w", err)
	}
	if reports == nil {
		reports = []domain.DamageReport{}
	}
	return reports, nil
}

func (s *DamageService) Get(ctx context.Context, id int64) (*domain.DamageReport, error) {
	if id <= 0 {
		return nil, domain.ErrDamageNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// Create validates the input against the closed severity and status sets
// and stores a new report. The store assigns the ID.
func (s *DamageService) Create(ctx context.Context, in ports.CreateDamageInput) (*domain.DamageReport, error) {
	report, err := newDamageReport(in)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, report)
	if err != nil {
		s.log.Error().Err(err).Str("type", report.Type).Msg("failed to store damage report")
		return nil, fmt.Errorf("create damage: %w", err)
	}

	metrics.DamagesCreatedTotal.WithLabelValues(string(created.Severity)).Inc()
	s.log.Info().
		Int64("id", created.ID).
		Str("type", created.Type).
		Str("severity", string(created.Severity)).
		Msg("damage report stored")
	return created, nil
}

func newDamageReport(in ports.CreateDamageInput) (*domain.DamageReport, error) {
	in.Type = strings.TrimSpace(in.Type)
	in.Location = strings.TrimSpace(in.Location)
	if in.Type == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: type and location are required", domain.ErrInvalidInput)
	}

	severity, ok := domain.ParseSeverity(in.Severity)
	if !ok {
		return nil, fmt.Errorf("%w: severity must be one of Low, Medium, High, Critical", domain.ErrInvalidInput)
	}

	status := domain.StatusPending
	if in.Status != "" {
		if status, ok = domain.ParseStatus(in.Status); !ok {
			return nil, fmt.Errorf("%w: status must be one of Pending, In Progress, Completed", domain.ErrInvalidInput)
		}
	}

	coords := domain.Coordinates{Lat: in.Lat, Lng: in.Lng}
	if !coords.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}

	reported := in.ReportedDate
	if reported.IsZero() {
		reported = time.Now()
	}

	return &domain.DamageReport{
		Type:         in.Type,
		Severity:     severity,
		Location:     in.Location,
		Coordinates:  coords,
		Description:  strings.TrimSpace(in.Description),
		ReportedDate: reported.UTC(),
		Status:       status,
	}, nil
}

// Export writes the filtered reports as CSV and returns the number of data rows.
func (s *DamageService) Export(ctx context.Context, filter domain.DamageFilter, w io.Writer) (int, error) {
	reports, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write(csvRecord(r)); err != nil {
			return 0, fmt.Errorf("export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return len(reports), nil
}

func csvRecord(r domain.DamageReport) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Type,
		string(r.Severity),
		r.Location,
		strconv.FormatFloat(r.Coordinates.Lat, 'f', -1, 64),
		strconv.FormatFloat(r.Coordinates.Lng, 'f', -1, 64),
		r.Description,
		r.ReportedDate.UTC().Format(time.RFC3339),
		string(r.Status),
	}
}
