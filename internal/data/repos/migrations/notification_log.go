package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type NotificationLogRepo interface {
	Create(dbc dbctx.Context, n *types.NotificationLog) (*types.NotificationLog, error)
	MarkDelivered(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) error
	ListRecent(dbc dbctx.Context, limit int) ([]*types.NotificationLog, error)
}

type notificationLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationLogRepo(db *gorm.DB, baseLog *logger.Logger) NotificationLogRepo {
	return &notificationLogRepo{
		db:  db,
		log: baseLog.With("repo", "NotificationLogRepo"),
	}
}

func (r *notificationLogRepo) Create(dbc dbctx.Context, n *types.NotificationLog) (*types.NotificationLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if n == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(n).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return n, nil
}

func (r *notificationLogRepo) MarkDelivered(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivered":    true,
			"delivered_at": at,
		}).Error
	return storeerr.Classify(err)
}

func (r *notificationLogRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.NotificationLog{}).
		Where("id = ?", id).
		Update("error", errMsg).Error
	return storeerr.Classify(err)
}

func (r *notificationLogRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.NotificationLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.NotificationLog
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}
