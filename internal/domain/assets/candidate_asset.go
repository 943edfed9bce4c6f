package assets

import (
	"time"

	"github.com/google/uuid"
)

const (
	CandidateStatusNew      = "new"
	CandidateStatusPromoted = "promoted"
	CandidateStatusIgnored  = "ignored"
)

// CandidateAsset is a locator observed by the discovery scanner that is not
// (yet) correlated to a TrackedAsset. First sighting wins: repeat sightings
// bump times_seen/last_seen_at but never rewrite the parsed identity.
type CandidateAsset struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	URL      string `gorm:"column:url;type:text;not null;uniqueIndex" json:"url"`
	BaseName string `gorm:"column:base_name;type:text;index" json:"base_name,omitempty"`
	Filename string `gorm:"column:filename;type:text" json:"filename,omitempty"`
	Domain   string `gorm:"column:domain;type:text;index" json:"domain,omitempty"`

	FileKind string `gorm:"column:file_kind;type:text" json:"file_kind,omitempty"`
	Pattern  string `gorm:"column:pattern;type:text" json:"pattern,omitempty"`
	Version  string `gorm:"column:version;type:text" json:"version,omitempty"`

	Category string `gorm:"column:category;type:text;not null;default:'unknown';index" json:"category"`
	Priority string `gorm:"column:priority;type:text;not null;default:'medium'" json:"priority"`

	SourcePage string `gorm:"column:source_page;type:text" json:"source_page,omitempty"`

	Status     string     `gorm:"column:status;type:text;not null;default:'new';index" json:"status"`
	PromotedAt *time.Time `gorm:"column:promoted_at" json:"promoted_at,omitempty"`

	TimesSeen   int       `gorm:"column:times_seen;not null;default:1" json:"times_seen"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at;not null;default:now()" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at;not null;default:now();index" json:"last_seen_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CandidateAsset) TableName() string { return "candidate_asset" }
