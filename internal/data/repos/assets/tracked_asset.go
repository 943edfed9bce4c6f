package assets

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

type TrackedAssetRepo interface {
	Create(dbc dbctx.Context, asset *types.TrackedAsset) (*types.TrackedAsset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrackedAsset, error)
	GetByURL(dbc dbctx.Context, url string) (*types.TrackedAsset, error)
	GetActiveByBaseName(dbc dbctx.Context, baseName string) (*types.TrackedAsset, error)
	LockActiveByBaseName(dbc dbctx.Context, baseName string) (*types.TrackedAsset, error)
	ListActive(dbc dbctx.Context) ([]*types.TrackedAsset, error)
	List(dbc dbctx.Context, category, priority string, active *bool, limit, offset int) ([]*types.TrackedAsset, error)
	ListFailing(dbc dbctx.Context, threshold int) ([]*types.TrackedAsset, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	MarkChecked(dbc dbctx.Context, id uuid.UUID, hash string, size int64, content string, checkedAt time.Time) error
	IncrementFailure(dbc dbctx.Context, id uuid.UUID, failedAt time.Time) error
	ResetFailures(dbc dbctx.Context, id uuid.UUID) error
	DeactivateAllByBaseName(dbc dbctx.Context, baseName string) (int64, error)
	ActivateExclusive(dbc dbctx.Context, baseName string, id uuid.UUID) error
	CountActive(dbc dbctx.Context) (int64, error)
}

type trackedAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackedAssetRepo(db *gorm.DB, baseLog *logger.Logger) TrackedAssetRepo {
	return &trackedAssetRepo{
		db:  db,
		log: baseLog.With("repo", "TrackedAssetRepo"),
	}
}

func (r *trackedAssetRepo) Create(dbc dbctx.Context, asset *types.TrackedAsset) (*types.TrackedAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if asset == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(asset).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return asset, nil
}

func (r *trackedAssetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrackedAsset, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.TrackedAsset
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *trackedAssetRepo) GetByURL(dbc dbctx.Context, url string) (*types.TrackedAsset, error) {
	if url == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.TrackedAsset
	if err := t.WithContext(dbc.Ctx).Where("url = ?", url).Limit(1).Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *trackedAssetRepo) GetActiveByBaseName(dbc dbctx.Context, baseName string) (*types.TrackedAsset, error) {
	if baseName == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.TrackedAsset
	if err := t.WithContext(dbc.Ctx).
		Where("base_name = ? AND active = ?", baseName, true).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *trackedAssetRepo) LockActiveByBaseName(dbc dbctx.Context, baseName string) (*types.TrackedAsset, error) {
	if baseName == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.TrackedAsset
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("base_name = ? AND active = ?", baseName, true).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *trackedAssetRepo) ListActive(dbc dbctx.Context) ([]*types.TrackedAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TrackedAsset
	if err := t.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("base_name ASC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *trackedAssetRepo) List(dbc dbctx.Context, category, priority string, active *bool, limit, offset int) ([]*types.TrackedAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&types.TrackedAsset{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if priority != "" {
		q = q.Where("priority = ?", priority)
	}
	if active != nil {
		q = q.Where("active = ?", *active)
	}
	q = q.Order("base_name ASC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*types.TrackedAsset
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *trackedAssetRepo) ListFailing(dbc dbctx.Context, threshold int) ([]*types.TrackedAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TrackedAsset
	if err := t.WithContext(dbc.Ctx).
		Where("active = ? AND failure_count >= ?", true, threshold).
		Order("failure_count DESC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *trackedAssetRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.TrackedAsset{}).
		Where("id = ?", id).
		Updates(updates).Error
	return storeerr.Classify(err)
}

func (r *trackedAssetRepo) MarkChecked(dbc dbctx.Context, id uuid.UUID, hash string, size int64, content string, checkedAt time.Time) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"content_hash":    hash,
		"content_size":    size,
		"content":         content,
		"last_checked_at": checkedAt,
		"updated_at":      checkedAt,
	})
}

func (r *trackedAssetRepo) IncrementFailure(dbc dbctx.Context, id uuid.UUID, failedAt time.Time) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"failure_count":   gorm.Expr("failure_count + 1"),
		"last_failure_at": failedAt,
		"last_checked_at": failedAt,
		"updated_at":      failedAt,
	})
}

func (r *trackedAssetRepo) ResetFailures(dbc dbctx.Context, id uuid.UUID) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"failure_count":   0,
		"last_failure_at": nil,
	})
}

func (r *trackedAssetRepo) DeactivateAllByBaseName(dbc dbctx.Context, baseName string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if baseName == "" {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.TrackedAsset{}).
		Where("base_name = ? AND active = ?", baseName, true).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, storeerr.Classify(res.Error)
	}
	return res.RowsAffected, nil
}

// ActivateExclusive deactivates every active row for baseName and activates
// exactly the given id inside one transaction. Deactivation runs first so the
// partial unique index never sees two actives.
func (r *trackedAssetRepo) ActivateExclusive(dbc dbctx.Context, baseName string, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if baseName == "" || id == uuid.Nil {
		return nil
	}
	now := time.Now()
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.TrackedAsset{}).
			Where("base_name = ? AND active = ? AND id <> ?", baseName, true, id).
			Updates(map[string]interface{}{
				"active":     false,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		return txx.Model(&types.TrackedAsset{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"active":     true,
				"updated_at": now,
			}).Error
	})
	return storeerr.Classify(err)
}

func (r *trackedAssetRepo) CountActive(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.TrackedAsset{}).
		Where("active = ?", true).
		Count(&count).Error; err != nil {
		return 0, storeerr.Classify(err)
	}
	return count, nil
}
