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

type CandidateAssetRepo interface {
	UpsertSighting(dbc dbctx.Context, c *types.CandidateAsset) (*types.CandidateAsset, error)
	GetByURL(dbc dbctx.Context, url string) (*types.CandidateAsset, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.CandidateAsset, error)
	ListNewByBaseName(dbc dbctx.Context, baseName string) ([]*types.CandidateAsset, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error
}

type candidateAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCandidateAssetRepo(db *gorm.DB, baseLog *logger.Logger) CandidateAssetRepo {
	return &candidateAssetRepo{
		db:  db,
		log: baseLog.With("repo", "CandidateAssetRepo"),
	}
}

// UpsertSighting inserts a new candidate or, when the URL was already seen,
// bumps the sighting counters. The identity fields parsed at first sighting
// are never overwritten.
func (r *candidateAssetRepo) UpsertSighting(dbc dbctx.Context, c *types.CandidateAsset) (*types.CandidateAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if c == nil || c.URL == "" {
		return nil, nil
	}
	now := time.Now()
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "url"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"times_seen":   gorm.Expr("candidate_asset.times_seen + 1"),
				"last_seen_at": now,
				"updated_at":   now,
			}),
		}).
		Create(c).Error
	if err != nil {
		return nil, storeerr.Classify(err)
	}
	return c, nil
}

func (r *candidateAssetRepo) GetByURL(dbc dbctx.Context, url string) (*types.CandidateAsset, error) {
	if url == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.CandidateAsset
	if err := t.WithContext(dbc.Ctx).Where("url = ?", url).Limit(1).Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *candidateAssetRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.CandidateAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CandidateAsset
	if status == "" {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("last_seen_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *candidateAssetRepo) ListNewByBaseName(dbc dbctx.Context, baseName string) ([]*types.CandidateAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CandidateAsset
	if baseName == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("base_name = ? AND status = ?", baseName, types.CandidateStatusNew).
		Order("first_seen_at ASC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *candidateAssetRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || status == "" {
		return nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == types.CandidateStatusPromoted {
		updates["promoted_at"] = now
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.CandidateAsset{}).
		Where("id = ?", id).
		Updates(updates).Error
	return storeerr.Classify(err)
}
