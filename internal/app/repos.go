package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type Repos struct {
	Assets        repos.TrackedAssetRepo
	Archives      repos.ArchivedVersionRepo
	Candidates    repos.CandidateAssetRepo
	Changes       repos.ChangeRepo
	Migrations    repos.MigrationRecordRepo
	Metrics       repos.MigrationMetricRepo
	Notifications repos.NotificationLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Assets:        repos.NewTrackedAssetRepo(db, log),
		Archives:      repos.NewArchivedVersionRepo(db, log),
		Candidates:    repos.NewCandidateAssetRepo(db, log),
		Changes:       repos.NewChangeRepo(db, log),
		Migrations:    repos.NewMigrationRecordRepo(db, log),
		Metrics:       repos.NewMigrationMetricRepo(db, log),
		Notifications: repos.NewNotificationLogRepo(db, log),
	}
}
