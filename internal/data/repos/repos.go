package repos

import (
	"github.com/yungbote/assetwatch-backend/internal/data/repos/assets"
	"github.com/yungbote/assetwatch-backend/internal/data/repos/migrations"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type TrackedAssetRepo = assets.TrackedAssetRepo
type ArchivedVersionRepo = assets.ArchivedVersionRepo
type CandidateAssetRepo = assets.CandidateAssetRepo
type ChangeRepo = assets.ChangeRepo

type MigrationRecordRepo = migrations.MigrationRecordRepo
type MigrationMetricRepo = migrations.MigrationMetricRepo
type NotificationLogRepo = migrations.NotificationLogRepo

func NewTrackedAssetRepo(db *gorm.DB, baseLog *logger.Logger) TrackedAssetRepo {
	return assets.NewTrackedAssetRepo(db, baseLog)
}

func NewArchivedVersionRepo(db *gorm.DB, baseLog *logger.Logger) ArchivedVersionRepo {
	return assets.NewArchivedVersionRepo(db, baseLog)
}

func NewCandidateAssetRepo(db *gorm.DB, baseLog *logger.Logger) CandidateAssetRepo {
	return assets.NewCandidateAssetRepo(db, baseLog)
}

func NewChangeRepo(db *gorm.DB, baseLog *logger.Logger) ChangeRepo {
	return assets.NewChangeRepo(db, baseLog)
}

func NewMigrationRecordRepo(db *gorm.DB, baseLog *logger.Logger) MigrationRecordRepo {
	return migrations.NewMigrationRecordRepo(db, baseLog)
}

func NewMigrationMetricRepo(db *gorm.DB, baseLog *logger.Logger) MigrationMetricRepo {
	return migrations.NewMigrationMetricRepo(db, baseLog)
}

func NewNotificationLogRepo(db *gorm.DB, baseLog *logger.Logger) NotificationLogRepo {
	return migrations.NewNotificationLogRepo(db, baseLog)
}
