package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

type DamageRepository struct {
	db *sqlx.DB
}

func NewDamageRepository(db *sqlx.DB) *DamageRepository {
	return &DamageRepository{db: db}
}

type damageRow struct {
	ID           int64   `db:"id"`
	Type         string  `db:"type"`
	Severity     string  `db:"severity"`
	SeverityRank int     `db:"severity_rank"`
	Location     string  `db:"location"`
	Lat          float64 `db:"lat"`
	Lng          float64 `db:"lng"`
	Description  string  `db:"description"`
	ReportedAt   int64   `db:"reported_at"`
	Status       string  `db:"status"`
}

const selectDamage = `SELECT id, type, severity, severity_rank, location, lat, lng, description, reported_at, status FROM damage_reports`

func (r *DamageRepository) Create(ctx context.Context, d *domain.DamageReport) (*domain.DamageReport, error) {
	row := damageRow{
		Type:         d.Type,
		Severity:     string(d.Severity),
		SeverityRank: d.Severity.Rank(),
		Location:     d.Location,
		Lat:          d.Coordinates.Lat,
		Lng:          d.Coordinates.Lng,
		Description:  d.Description,
		ReportedAt:   d.ReportedDate.Unix(),
		Status:       string(d.Status),
	}

	const query = `
		INSERT INTO damage_reports (type, severity, severity_rank, location, lat, lng, description, reported_at, status)
		VALUES (:type, :severity, :severity_rank, :location, :lat, :lng, :description, :reported_at, :status)`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return nil, fmt.Errorf("insert damage: %w", err)
	}
	if row.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert damage: %w", err)
	}
	return row.toDomain(), nil
}

func (r *DamageRepository) FindByID(ctx context.Context, id int64) (*domain.DamageReport, error) {
	var row damageRow
	if err := r.db.GetContext(ctx, &row, selectDamage+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDamageNotFound
		}
		return nil, fmt.Errorf("find damage: %w", err)
	}
	return row.toDomain(), nil
}

func (r *DamageRepository) List(ctx context.Context, f domain.DamageFilter) ([]domain.DamageReport, error) {
	query, args := listQuery(f)

	var rows []damageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list damages: %w", err)
	}

	out := make([]domain.DamageReport, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toDomain())
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func listQuery(f domain.DamageFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Search != "" {
		where = append(where, `location LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
	}
	if !f.From.IsZero() {
		where = append(where, "reported_at >= ?")
		args = append(args, f.From.Unix())
	}
	if !f.Until.IsZero() {
		where = append(where, "reported_at < ?")
		args = append(args, unixCeil(f.Until))
	}

	var b strings.Builder
	b.WriteString(selectDamage)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	dir := "DESC"
	if f.Asc {
		dir = "ASC"
	}
	col := "reported_at"
	if f.SortBy == domain.SortSeverity {
		col = "severity_rank"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", col, dir, dir)
	return b.String(), args
}

func (r *DamageRepository) Counts(ctx context.Context) (*domain.DamageCounts, error) {
	var rows []struct {
		Severity string `db:"severity"`
		Status   string `db:"status"`
		Count    int64  `db:"n"`
	}
	const query = `SELECT severity, status, COUNT(*) AS n FROM damage_reports GROUP BY severity, status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count damages: %w", err)
	}

	counts := &domain.DamageCounts{
		BySeverity: make(map[domain.Severity]int64),
		ByStatus:   make(map[domain.DamageStatus]int64),
	}
	for _, row := range rows {
		sev, st := domain.Severity(row.Severity), domain.DamageStatus(row.Status)
		counts.Total += row.Count
		counts.BySeverity[sev] += row.Count
		counts.ByStatus[st] += row.Count
		if sev == domain.SeverityCritical && st == domain.StatusPending {
			counts.PendingCritical += row.Count
		}
	}
	return counts, nil
}

func (row damageRow) toDomain() *domain.DamageReport {
	return &domain.DamageReport{
		ID:           row.ID,
		Type:         row.Type,
		Severity:     domain.Severity(row.Severity),
		Location:     row.Location,
		Coordinates:  domain.Coordinates{Lat: row.Lat, Lng: row.Lng},
		Description:  row.Description,
		ReportedDate: time.Unix(row.ReportedAt, 0).UTC(),
		Status:       domain.DamageStatus(row.Status),
	}
}

// unixCeil rounds t up to whole seconds, the resolution reported_at is stored at.
func unixCeil(t time.Time) int64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return s
}
