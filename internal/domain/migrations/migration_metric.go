package migrations

import (
	"time"

	"github.com/google/uuid"
)

// MigrationMetric is a daily rollup row backing operator statistics.
// One row per calendar day, upserted as cycles complete.
type MigrationMetric struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Day time.Time `gorm:"column:day;type:date;not null;uniqueIndex" json:"day"`

	UpdatesFound    int `gorm:"column:updates_found;not null;default:0" json:"updates_found"`
	ChangesDetected int `gorm:"column:changes_detected;not null;default:0" json:"changes_detected"`
	Started         int `gorm:"column:started;not null;default:0" json:"started"`
	Completed       int `gorm:"column:completed;not null;default:0" json:"completed"`
	Failed          int `gorm:"column:failed;not null;default:0" json:"failed"`
	RolledBack      int `gorm:"column:rolled_back;not null;default:0" json:"rolled_back"`

	AvgValidationMs int64 `gorm:"column:avg_validation_ms;not null;default:0" json:"avg_validation_ms"`
	AvgDurationMs   int64 `gorm:"column:avg_duration_ms;not null;default:0" json:"avg_duration_ms"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (MigrationMetric) TableName() string { return "migration_metric" }
