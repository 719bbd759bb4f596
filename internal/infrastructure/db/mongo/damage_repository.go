package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

const (
	damagesCollection  = "damage_reports"
	countersCollection = "counters"
)

// DamageRepository stores damage reports with sequential numeric ids drawn
// from the counters collection.
type DamageRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewDamageRepository(db *mongo.Database) *DamageRepository {
	return &DamageRepository{
		col:      db.Collection(damagesCollection),
		counters: db.Collection(countersCollection),
	}
}

type mongoCoordinates struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type mongoDamage struct {
	ID           int64            `bson:"_id"`
	Type         string           `bson:"type"`
	Severity     string           `bson:"severity"`
	SeverityRank int              `bson:"severity_rank"`
	Location     string           `bson:"location"`
	Coordinates  mongoCoordinates `bson:"coordinates"`
	Description  string           `bson:"description"`
	ReportedDate time.Time        `bson:"reported_date"`
	Status       string           `bson:"status"`
}

// Create assigns the next sequence value and inserts the report.
func (r *DamageRepository) Create(ctx context.Context, d *domain.DamageReport) (*domain.DamageReport, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := mongoDamage{
		ID:           id,
		Type:         d.Type,
		Severity:     string(d.Severity),
		SeverityRank: d.Severity.Rank(),
		Location:     d.Location,
		Coordinates:  mongoCoordinates{Lat: d.Coordinates.Lat, Lng: d.Coordinates.Lng},
		Description:  d.Description,
		ReportedDate: d.ReportedDate.UTC(),
		Status:       string(d.Status),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert damage: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *DamageRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": damagesCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next damage id: %w", err)
	}
	return counter.Seq, nil
}

func (r *DamageRepository) FindByID(ctx context.Context, id int64) (*domain.DamageReport, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoDamage
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDamageNotFound
		}
		return nil, fmt.Errorf("find damage: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *DamageRepository) List(ctx context.Context, f domain.DamageFilter) ([]domain.DamageReport, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, listFilter(f), options.Find().SetSort(listSort(f)))
	if err != nil {
		return nil, fmt.Errorf("list damages: %w", err)
	}
	defer cur.Close(ctx)

	out := []domain.DamageReport{}
	for cur.Next(ctx) {
		var doc mongoDamage
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode damage: %w", err)
		}
		out = append(out, *doc.toDomain())
	}
	return out, cur.Err()
}

func listFilter(f domain.DamageFilter) bson.M {
	filter := bson.M{}
	if f.Severity != "" {
		filter["severity"] = string(f.Severity)
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Search != "" {
		filter["location"] = bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
	}
	if !f.From.IsZero() || !f.Until.IsZero() {
		dateRange := bson.M{}
		if !f.From.IsZero() {
			dateRange["$gte"] = f.From.UTC()
		}
		if !f.Until.IsZero() {
			dateRange["$lt"] = f.Until.UTC()
		}
		filter["reported_date"] = dateRange
	}
	return filter
}

func listSort(f domain.DamageFilter) bson.D {
	dir := -1
	if f.Asc {
		dir = 1
	}
	key := "reported_date"
	if f.SortBy == domain.SortSeverity {
		key = "severity_rank"
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}
}

// Counts groups reports by severity and status in a single aggregation.
func (r *DamageRepository) Counts(ctx context.Context) (*domain.DamageCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "severity", Value: "$severity"},
				{Key: "status", Value: "$status"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate damages: %w", err)
	}
	defer cur.Close(ctx)

	counts := &domain.DamageCounts{
		BySeverity: make(map[domain.Severity]int64),
		ByStatus:   make(map[domain.DamageStatus]int64),
	}
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Severity string `bson:"severity"`
				Status   string `bson:"status"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode damage counts: %w", err)
		}
		sev, st := domain.Severity(row.ID.Severity), domain.DamageStatus(row.ID.Status)
		counts.Total += row.Count
		counts.BySeverity[sev] += row.Count
		counts.ByStatus[st] += row.Count
		if sev == domain.SeverityCritical && st == domain.StatusPending {
			counts.PendingCritical += row.Count
		}
	}
	return counts, cur.Err()
}

// EnsureIndexes creates indexes for the dashboard filters and sorts.
func (r *DamageRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "reported_date", Value: -1}}},
		{Keys: bson.D{{Key: "severity_rank", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (d mongoDamage) toDomain() *domain.DamageReport {
	return &domain.DamageReport{
		ID:           d.ID,
		Type:         d.Type,
		Severity:     domain.Severity(d.Severity),
		Location:     d.Location,
		Coordinates:  domain.Coordinates{Lat: d.Coordinates.Lat, Lng: d.Coordinates.Lng},
		Description:  d.Description,
		ReportedDate: d.ReportedDate.UTC(),
		Status:       domain.DamageStatus(d.Status),
	}
}
