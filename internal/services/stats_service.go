package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/pkg/version"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// Summary aggregates the daily rollup rows over a trailing window.
type Summary struct {
	PeriodDays      int              `json:"period_days"`
	UpdatesFound    int              `json:"updates_found"`
	ChangesDetected int              `json:"changes_detected"`
	Started         int              `json:"started"`
	Completed       int              `json:"completed"`
	Failed          int              `json:"failed"`
	RolledBack      int              `json:"rolled_back"`
	AvgValidationMs int64            `json:"avg_validation_ms"`
	AvgDurationMs   int64            `json:"avg_duration_ms"`
	BySeverity      map[string]int64 `json:"changes_by_severity"`
	Pending         int              `json:"pending_migrations"`
}

// VersionEntry is one row of an asset's version history, newest first.
type VersionEntry struct {
	BaseName   string     `json:"base_name"`
	Version    string     `json:"version"`
	URL        string     `json:"url"`
	Active     bool       `json:"active"`
	Category   string     `json:"category,omitempty"`
	Priority   string     `json:"priority,omitempty"`
	Size       int64      `json:"content_size"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

type StatsService interface {
	// RecomputeDay rebuilds the rollup row for the given day from the
	// source tables and upserts it. Deferred migrations finish on later
	// days than they were created, so both days get recomputed by callers.
	RecomputeDay(dbc dbctx.Context, day time.Time) (*types.MigrationMetric, error)
	Summary(dbc dbctx.Context, days int) (*Summary, error)
	VersionHistory(dbc dbctx.Context, baseName string) ([]VersionEntry, error)
	PendingMigrations(dbc dbctx.Context) ([]*types.MigrationRecord, error)
}

type statsService struct {
	db         *gorm.DB
	log        *logger.Logger
	assets     repos.TrackedAssetRepo
	archives   repos.ArchivedVersionRepo
	changes    repos.ChangeRepo
	migrations repos.MigrationRecordRepo
	metrics    repos.MigrationMetricRepo
}

func NewStatsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assets repos.TrackedAssetRepo,
	archives repos.ArchivedVersionRepo,
	changes repos.ChangeRepo,
	migrations repos.MigrationRecordRepo,
	metrics repos.MigrationMetricRepo,
) StatsService {
	return &statsService{
		db:         db,
		log:        baseLog.With("service", "StatsService"),
		assets:     assets,
		archives:   archives,
		changes:    changes,
		migrations: migrations,
		metrics:    metrics,
	}
}

func (s *statsService) RecomputeDay(dbc dbctx.Context, day time.Time) (*types.MigrationMetric, error) {
	y, m, d := day.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	counts, err := s.migrations.RollupBetween(dbc, from, to)
	if err != nil {
		return nil, err
	}
	changed, err := s.changes.CountBetween(dbc, from, to)
	if err != nil {
		return nil, err
	}

	metric := &types.MigrationMetric{
		Day:             from,
		UpdatesFound:    int(counts.Created),
		ChangesDetected: int(changed),
		Started:         int(counts.Started),
		Completed:       int(counts.Completed),
		Failed:          int(counts.Failed),
		RolledBack:      int(counts.RolledBack),
		AvgValidationMs: counts.AvgValidationMs,
		AvgDurationMs:   counts.AvgDurationMs,
	}
	return s.metrics.ReplaceDay(dbc, metric)
}

func (s *statsService) Summary(dbc dbctx.Context, days int) (*Summary, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -(days - 1))

	rows, err := s.metrics.ListRange(dbc, from, now)
	if err != nil {
		return nil, err
	}

	out := &Summary{PeriodDays: days}
	var validationWeight, durationWeight int64
	for _, row := range rows {
		out.UpdatesFound += row.UpdatesFound
		out.ChangesDetected += row.ChangesDetected
		out.Started += row.Started
		out.Completed += row.Completed
		out.Failed += row.Failed
		out.RolledBack += row.RolledBack
		// Day averages are weighted by how many migrations completed
		// that day, so a single slow outlier day cannot dominate.
		w := int64(row.Completed)
		validationWeight += w * row.AvgValidationMs
		durationWeight += w * row.AvgDurationMs
	}
	if out.Completed > 0 {
		out.AvgValidationMs = validationWeight / int64(out.Completed)
		out.AvgDurationMs = durationWeight / int64(out.Completed)
	}

	severity, err := s.changes.CountBySeveritySince(dbc, from)
	if err != nil {
		return nil, err
	}
	out.BySeverity = severity

	pending, err := s.migrations.ListByStatus(dbc, types.MigrationStatusPending, 0)
	if err != nil {
		return nil, err
	}
	out.Pending = len(pending)
	return out, nil
}

// VersionHistory lists the active version plus every archived version of one
// asset, sorted newest version first. Versionless entries sort last.
func (s *statsService) VersionHistory(dbc dbctx.Context, baseName string) ([]VersionEntry, error) {
	entries := make([]VersionEntry, 0, 8)

	active, err := s.assets.GetActiveByBaseName(dbc, baseName)
	if err != nil {
		return nil, err
	}
	if active != nil {
		entries = append(entries, VersionEntry{
			BaseName: active.BaseName,
			Version:  active.Version,
			URL:      active.URL,
			Active:   true,
			Category: active.Category,
			Priority: active.Priority,
			Size:     active.ContentSize,
		})
	}

	archived, err := s.archives.ListByBaseName(dbc, baseName, 0)
	if err != nil {
		return nil, err
	}
	for _, av := range archived {
		at := av.ArchivedAt
		entries = append(entries, VersionEntry{
			BaseName:   av.BaseName,
			Version:    av.Version,
			URL:        av.URL,
			Active:     false,
			Category:   av.Category,
			Priority:   av.Priority,
			Size:       av.ContentSize,
			ArchivedAt: &at,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		switch version.Compare(entries[i].Version, entries[j].Version) {
		case version.Greater:
			return true
		case version.Less:
			return false
		default:
			return entries[i].Active && !entries[j].Active
		}
	})
	return entries, nil
}

func (s *statsService) PendingMigrations(dbc dbctx.Context) ([]*types.MigrationRecord, error) {
	return s.migrations.ListByStatus(dbc, types.MigrationStatusPending, 0)
}
