package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification kinds.
const (
	NotifyKindChangeDetected      = "change_detected"
	NotifyKindUpdateFound         = "update_found"
	NotifyKindMigrationCompleted  = "migration_completed"
	NotifyKindMigrationFailed     = "migration_failed"
	NotifyKindMigrationRolledBack = "migration_rolled_back"
	NotifyKindCandidateFound      = "candidate_found"
	NotifyKindFailureThreshold    = "failure_threshold"
	NotifyKindBatchSummary        = "batch_summary"
)

const (
	NotifyChannelRedis = "redis"
	NotifyChannelLog   = "log"
)

// NotificationLog records every payload handed to the notification sink.
// Delivery retry stays the sink's problem; the log only records what was
// emitted and whether the handoff succeeded.
type NotificationLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Kind    string `gorm:"column:kind;type:text;not null;index" json:"kind"`
	Channel string `gorm:"column:channel;type:text;not null;index" json:"channel"`

	SubjectType string     `gorm:"column:subject_type;type:text;index" json:"subject_type,omitempty"`
	SubjectID   *uuid.UUID `gorm:"type:uuid;column:subject_id;index" json:"subject_id,omitempty"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`

	Delivered   bool       `gorm:"column:delivered;not null;default:false;index" json:"delivered"`
	DeliveredAt *time.Time `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	Error       string     `gorm:"column:error;type:text" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (NotificationLog) TableName() string { return "notification_log" }
