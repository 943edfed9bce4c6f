package assets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category labels assigned by the discovery scanner or watchlist seeding.
const (
	CategoryCore         = "core"
	CategoryMembers      = "members"
	CategoryEcommerce    = "ecommerce"
	CategoryZeroBlock    = "zero_block"
	CategoryUIComponents = "ui_components"
	CategoryUtilities    = "utilities"
	CategoryUnknown      = "unknown"
)

// Priority tiers. The tier decides the grace delay before an update is migrated.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

const (
	FileKindScript     = "js"
	FileKindStylesheet = "css"
)

// TrackedAsset is one remote asset under active monitoring. At most one row
// per base name may have active=true; migrations swap the flag transactionally.
type TrackedAsset struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	BaseName string `gorm:"column:base_name;type:text;not null;index" json:"base_name"`
	Filename string `gorm:"column:filename;type:text;not null" json:"filename"`
	URL      string `gorm:"column:url;type:text;not null;uniqueIndex" json:"url"`
	Domain   string `gorm:"column:domain;type:text;index" json:"domain,omitempty"`

	FileKind string `gorm:"column:file_kind;type:text;index" json:"file_kind,omitempty"`
	Pattern  string `gorm:"column:pattern;type:text" json:"pattern,omitempty"`
	Version  string `gorm:"column:version;type:text;index" json:"version,omitempty"`

	Category string `gorm:"column:category;type:text;not null;default:'unknown';index" json:"category"`
	Priority string `gorm:"column:priority;type:text;not null;default:'medium';index" json:"priority"`

	ContentHash string `gorm:"column:content_hash;type:text" json:"content_hash,omitempty"`
	ContentSize int64  `gorm:"column:content_size;not null;default:0" json:"content_size"`
	Content     string `gorm:"column:content;type:text" json:"-"`

	// Rows are inserted inactive; activation happens only through the
	// repo's exclusive swap so two actives can never coexist.
	Active bool `gorm:"column:active;not null;default:false;index" json:"active"`

	FailureCount  int        `gorm:"column:failure_count;not null;default:0" json:"failure_count"`
	LastFailureAt *time.Time `gorm:"column:last_failure_at;index" json:"last_failure_at,omitempty"`
	LastCheckedAt *time.Time `gorm:"column:last_checked_at;index" json:"last_checked_at,omitempty"`
	LastChangedAt *time.Time `gorm:"column:last_changed_at;index" json:"last_changed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TrackedAsset) TableName() string { return "tracked_asset" }
