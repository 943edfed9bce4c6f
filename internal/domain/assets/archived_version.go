package assets

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedVersion is a frozen snapshot of a TrackedAsset at the moment it was
// superseded. Rows are immutable once written and uniquely addressable by
// (base_name, version); the stored content is treated as durable truth when
// the original locator is no longer reachable.
type ArchivedVersion struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	AssetID *uuid.UUID `gorm:"type:uuid;column:asset_id;index" json:"asset_id,omitempty"`

	BaseName string `gorm:"column:base_name;type:text;not null;uniqueIndex:uq_archived_base_version" json:"base_name"`
	Version  string `gorm:"column:version;type:text;not null;uniqueIndex:uq_archived_base_version" json:"version"`

	Filename string `gorm:"column:filename;type:text" json:"filename,omitempty"`
	URL      string `gorm:"column:url;type:text;not null" json:"url"`
	Domain   string `gorm:"column:domain;type:text" json:"domain,omitempty"`
	FileKind string `gorm:"column:file_kind;type:text" json:"file_kind,omitempty"`

	Category string `gorm:"column:category;type:text" json:"category,omitempty"`
	Priority string `gorm:"column:priority;type:text" json:"priority,omitempty"`

	ContentHash string `gorm:"column:content_hash;type:text" json:"content_hash,omitempty"`
	ContentSize int64  `gorm:"column:content_size;not null;default:0" json:"content_size"`
	Content     string `gorm:"column:content;type:text" json:"-"`

	ArchivedAt time.Time `gorm:"column:archived_at;not null;default:now();index" json:"archived_at"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ArchivedVersion) TableName() string { return "archived_version" }
