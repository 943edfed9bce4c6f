package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migration statuses. Transitions are monotonic:
// pending -> validating -> archiving -> activating -> completed,
// with failed reachable from any non-terminal state and rolled_back
// reachable from completed (operator) or failed (auto-rollback).
const (
	StatusPending    = "pending"
	StatusValidating = "validating"
	StatusArchiving  = "archiving"
	StatusActivating = "activating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRolledBack = "rolled_back"
)

const (
	TriggerAuto     = "auto"
	TriggerManual   = "manual"
	TriggerRollback = "rollback"
)

// Failure reason codes carried on terminal records. Validation failures
// persist the specific code (NOT_FOUND, EMPTY, TIMEOUT, NETWORK) when the
// fetch error classifies, VALIDATION_FAILED otherwise.
const (
	ReasonParseAmbiguous     = "PARSE_AMBIGUOUS"
	ReasonValidationFailed   = "VALIDATION_FAILED"
	ReasonArchiveFailed      = "ARCHIVE_FAILED"
	ReasonActivateFailed     = "ACTIVATE_FAILED"
	ReasonRollbackIncomplete = "ROLLBACK_INCOMPLETE"

	ReasonNotFound = "NOT_FOUND"
	ReasonEmpty    = "EMPTY"
	ReasonTimeout  = "TIMEOUT"
	ReasonNetwork  = "NETWORK"
)

// MigrationRecord is one attempted transition from an old version to a new
// version of the same base name. Rows are created before any network I/O and
// updated in place until terminal, never deleted.
type MigrationRecord struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	AssetID  *uuid.UUID `gorm:"type:uuid;column:asset_id;index" json:"asset_id,omitempty"`
	BaseName string     `gorm:"column:base_name;type:text;not null;index" json:"base_name"`

	FromVersion string `gorm:"column:from_version;type:text" json:"from_version,omitempty"`
	ToVersion   string `gorm:"column:to_version;type:text;not null" json:"to_version"`
	FromURL     string `gorm:"column:from_url;type:text" json:"from_url,omitempty"`
	ToURL       string `gorm:"column:to_url;type:text;not null" json:"to_url"`

	Status   string `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`
	Trigger  string `gorm:"column:trigger;type:text;not null;default:'auto';index" json:"trigger"`
	Priority string `gorm:"column:priority;type:text;not null;default:'medium';index" json:"priority"`
	Category string `gorm:"column:category;type:text" json:"category,omitempty"`

	FailureReason string `gorm:"column:failure_reason;type:text;index" json:"failure_reason,omitempty"`
	Error         string `gorm:"column:error;type:text" json:"error,omitempty"`

	ArchivedVersionID *uuid.UUID `gorm:"type:uuid;column:archived_version_id;index" json:"archived_version_id,omitempty"`

	ScheduledFor *time.Time `gorm:"column:scheduled_for;index" json:"scheduled_for,omitempty"`
	StartedAt    *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	ValidatedAt  *time.Time `gorm:"column:validated_at" json:"validated_at,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	RolledBackAt *time.Time `gorm:"column:rolled_back_at" json:"rolled_back_at,omitempty"`

	ValidationMs int64 `gorm:"column:validation_ms;not null;default:0" json:"validation_ms"`
	DurationMs   int64 `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`

	Notified bool           `gorm:"column:notified;not null;default:false;index" json:"notified"`
	Notes    datatypes.JSON `gorm:"column:notes;type:jsonb" json:"notes,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MigrationRecord) TableName() string { return "migration_record" }

// Terminal reports whether no further status transitions are legal.
func (m *MigrationRecord) Terminal() bool {
	switch m.Status {
	case StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}
