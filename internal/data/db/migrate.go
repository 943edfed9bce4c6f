package db

import (
	"fmt"

	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Asset fleet
		// =========================
		&types.TrackedAsset{},
		&types.ArchivedVersion{},
		&types.CandidateAsset{},
		&types.Change{},

		// =========================
		// Migration lifecycle
		// =========================
		&types.MigrationRecord{},
		&types.MigrationMetric{},

		// =========================
		// Notifications
		// =========================
		&types.NotificationLog{},
	)
}

// EnsureAssetIndexes creates the partial indexes AutoMigrate cannot express.
// The unique index on tracked_asset(base_name) WHERE active makes the
// single-active-per-base-name rule a database guarantee rather than a
// service-layer convention.
func EnsureAssetIndexes(db *gorm.DB) error {
	// uuid-ossp is already enabled in NewPostgresService, but safe to re-run
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tracked_asset_single_active
		ON tracked_asset (base_name)
		WHERE active AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_tracked_asset_single_active: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_migration_record_base_created_at
		ON migration_record (base_name, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_migration_record_base_created_at: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_asset_change_base_detected_at
		ON asset_change (base_name, detected_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_asset_change_base_detected_at: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAssetIndexes(s.db); err != nil {
		s.log.Error("Asset index migration failed", "error", err)
		return err
	}

	return nil
}
