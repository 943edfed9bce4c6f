package assets

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type ArchivedVersionRepo interface {
	Create(dbc dbctx.Context, av *types.ArchivedVersion) (*types.ArchivedVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ArchivedVersion, error)
	GetByBaseAndVersion(dbc dbctx.Context, baseName, version string) (*types.ArchivedVersion, error)
	ListByBaseName(dbc dbctx.Context, baseName string, limit int) ([]*types.ArchivedVersion, error)
	Count(dbc dbctx.Context) (int64, error)
}

type archivedVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArchivedVersionRepo(db *gorm.DB, baseLog *logger.Logger) ArchivedVersionRepo {
	return &archivedVersionRepo{
		db:  db,
		log: baseLog.With("repo", "ArchivedVersionRepo"),
	}
}

// Create inserts the snapshot. A second insert for the same (base_name,
// version) surfaces as storeerr.ErrConflict; rows are never updated.
func (r *archivedVersionRepo) Create(dbc dbctx.Context, av *types.ArchivedVersion) (*types.ArchivedVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if av == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(av).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return av, nil
}

func (r *archivedVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ArchivedVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ArchivedVersion
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *archivedVersionRepo) GetByBaseAndVersion(dbc dbctx.Context, baseName, version string) (*types.ArchivedVersion, error) {
	if baseName == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ArchivedVersion
	if err := t.WithContext(dbc.Ctx).
		Where("base_name = ? AND version = ?", baseName, version).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *archivedVersionRepo) ListByBaseName(dbc dbctx.Context, baseName string, limit int) ([]*types.ArchivedVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ArchivedVersion
	if baseName == "" {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("base_name = ?", baseName).
		Order("archived_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *archivedVersionRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).Model(&types.ArchivedVersion{}).Count(&count).Error; err != nil {
		return 0, storeerr.Classify(err)
	}
	return count, nil
}
