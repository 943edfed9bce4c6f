package assets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Severity labels for a detected change.
const (
	SeverityCritical = "critical"
	SeverityNotable  = "notable"
	SeverityMinor    = "minor"
)

// Change is one detected content change for a tracked asset: the unified diff,
// line/size deltas, extracted metadata and the classified severity.
type Change struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	AssetID  uuid.UUID `gorm:"type:uuid;column:asset_id;not null;index" json:"asset_id"`
	BaseName string    `gorm:"column:base_name;type:text;not null;index" json:"base_name"`

	FromVersion string `gorm:"column:from_version;type:text" json:"from_version,omitempty"`
	ToVersion   string `gorm:"column:to_version;type:text" json:"to_version,omitempty"`

	OldHash string `gorm:"column:old_hash;type:text" json:"old_hash,omitempty"`
	NewHash string `gorm:"column:new_hash;type:text" json:"new_hash,omitempty"`
	OldSize int64  `gorm:"column:old_size;not null;default:0" json:"old_size"`
	NewSize int64  `gorm:"column:new_size;not null;default:0" json:"new_size"`

	SizeDelta     int64 `gorm:"column:size_delta;not null;default:0" json:"size_delta"`
	ChangePercent int   `gorm:"column:change_percent;not null;default:0" json:"change_percent"`
	AddedLines    int   `gorm:"column:added_lines;not null;default:0" json:"added_lines"`
	RemovedLines  int   `gorm:"column:removed_lines;not null;default:0" json:"removed_lines"`

	UnifiedDiff string `gorm:"column:unified_diff;type:text" json:"unified_diff,omitempty"`
	Reflowed    bool   `gorm:"column:reflowed;not null;default:false" json:"reflowed"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	Severity string `gorm:"column:severity;type:text;not null;index" json:"severity"`

	DetectedAt time.Time `gorm:"column:detected_at;not null;default:now();index" json:"detected_at"`
	Notified   bool      `gorm:"column:notified;not null;default:false;index" json:"notified"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Change) TableName() string { return "asset_change" }
