package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type MigrationMetricRepo interface {
	ReplaceDay(dbc dbctx.Context, metric *types.MigrationMetric) (*types.MigrationMetric, error)
	GetDay(dbc dbctx.Context, day time.Time) (*types.MigrationMetric, error)
	ListRange(dbc dbctx.Context, from, to time.Time) ([]*types.MigrationMetric, error)
}

type migrationMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMigrationMetricRepo(db *gorm.DB, baseLog *logger.Logger) MigrationMetricRepo {
	return &migrationMetricRepo{
		db:  db,
		log: baseLog.With("repo", "MigrationMetricRepo"),
	}
}

// ReplaceDay upserts the rollup row for metric.Day. Rollups are recomputed
// from the source tables each cycle, so the whole row is replaced rather than
// incremented, which keeps the operation idempotent.
func (r *migrationMetricRepo) ReplaceDay(dbc dbctx.Context, metric *types.MigrationMetric) (*types.MigrationMetric, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if metric == nil {
		return nil, nil
	}
	metric.Day = truncateDay(metric.Day)
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"updates_found", "changes_detected", "started", "completed",
				"failed", "rolled_back", "avg_validation_ms", "avg_duration_ms",
				"updated_at",
			}),
		}).
		Create(metric).Error
	if err != nil {
		return nil, storeerr.Classify(err)
	}
	return metric, nil
}

func (r *migrationMetricRepo) GetDay(dbc dbctx.Context, day time.Time) (*types.MigrationMetric, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.MigrationMetric
	if err := t.WithContext(dbc.Ctx).
		Where("day = ?", truncateDay(day)).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *migrationMetricRepo) ListRange(dbc dbctx.Context, from, to time.Time) ([]*types.MigrationMetric, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MigrationMetric
	if err := t.WithContext(dbc.Ctx).
		Where("day >= ? AND day <= ?", truncateDay(from), truncateDay(to)).
		Order("day ASC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func truncateDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
