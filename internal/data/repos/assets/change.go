package assets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type ChangeRepo interface {
	Create(dbc dbctx.Context, ch *types.Change) (*types.Change, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Change, error)
	ListByBaseName(dbc dbctx.Context, baseName string, limit, offset int) ([]*types.Change, error)
	ListSince(dbc dbctx.Context, since time.Time, severity string, limit int) ([]*types.Change, error)
	ListUnnotified(dbc dbctx.Context, limit int) ([]*types.Change, error)
	MarkNotified(dbc dbctx.Context, ids []uuid.UUID) error
	CountBySeveritySince(dbc dbctx.Context, since time.Time) (map[string]int64, error)
	CountBetween(dbc dbctx.Context, from, to time.Time) (int64, error)
}

type changeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeRepo(db *gorm.DB, baseLog *logger.Logger) ChangeRepo {
	return &changeRepo{
		db:  db,
		log: baseLog.With("repo", "ChangeRepo"),
	}
}

func (r *changeRepo) Create(dbc dbctx.Context, ch *types.Change) (*types.Change, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if ch == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(ch).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return ch, nil
}

func (r *changeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Change, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Change
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *changeRepo) ListByBaseName(dbc dbctx.Context, baseName string, limit, offset int) ([]*types.Change, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Change
	if baseName == "" {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("base_name = ?", baseName).
		Order("detected_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *changeRepo) ListSince(dbc dbctx.Context, since time.Time, severity string, limit int) ([]*types.Change, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("detected_at >= ?", since).
		Order("detected_at DESC")
	if severity != "" {
		q = q.Where("severity = ?", severity)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Change
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *changeRepo) ListUnnotified(dbc dbctx.Context, limit int) ([]*types.Change, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("notified = ?", false).
		Order("detected_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Change
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *changeRepo) MarkNotified(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.Change{}).
		Where("id IN ?", ids).
		Update("notified", true).Error
	return storeerr.Classify(err)
}

func (r *changeRepo) CountBySeveritySince(dbc dbctx.Context, since time.Time) (map[string]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []struct {
		Severity string
		N        int64
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Change{}).
		Select("severity, count(*) AS n").
		Where("detected_at >= ?", since).
		Group("severity").
		Scan(&rows).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Severity] = row.N
	}
	return out, nil
}

func (r *changeRepo) CountBetween(dbc dbctx.Context, from, to time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Change{}).
		Where("detected_at >= ? AND detected_at < ?", from, to).
		Count(&n).Error; err != nil {
		return 0, storeerr.Classify(err)
	}
	return n, nil
}
