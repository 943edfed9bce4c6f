package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/fetch"
	"github.com/yungbote/assetwatch-backend/internal/observability"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/pkg/version"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// Delay between discovering an update and executing its migration, by
// priority tier. A forced migration bypasses the delay.
var migrationDelays = map[string]time.Duration{
	types.PriorityCritical: 0,
	types.PriorityHigh:     time.Hour,
	types.PriorityMedium:   24 * time.Hour,
	types.PriorityLow:      7 * 24 * time.Hour,
}

func delayFor(priority string) time.Duration {
	if d, ok := migrationDelays[priority]; ok {
		return d
	}
	return migrationDelays[types.PriorityMedium]
}

// BatchStats aggregates one batch run. Deferred counts records queued for a
// later RunDue pass rather than executed now.
type BatchStats struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Deferred   int `json:"deferred"`
}

type MigrationService interface {
	// Migrate queues one update and, when it is due (forced, or its
	// priority tier has no delay), executes it to a terminal state. The
	// returned record's status tells the caller what happened; a non-nil
	// error is reserved for storage failures around the record itself.
	Migrate(ctx context.Context, upd Update, trigger string, force bool) (*types.MigrationRecord, error)
	// MigrateBatch runs updates sequentially, most urgent tier first, with
	// a fixed pause between executed migrations.
	MigrateBatch(ctx context.Context, updates []Update, trigger string, force bool) (BatchStats, error)
	// RunDue executes every pending record whose schedule has elapsed.
	RunDue(ctx context.Context) (BatchStats, error)
	// Rollback re-activates an archived version of baseName, archiving
	// whatever is currently active first.
	Rollback(ctx context.Context, baseName, toVersion string) (*types.MigrationRecord, error)
}

type migrationService struct {
	db         *gorm.DB
	log        *logger.Logger
	fetcher    fetch.Fetcher
	assets     repos.TrackedAssetRepo
	archives   repos.ArchivedVersionRepo
	candidates repos.CandidateAssetRepo
	migrations repos.MigrationRecordRepo
	notify     Notifier
	stats      StatsService

	minContentBytes int
	batchPause      time.Duration

	// Archive and activate read-modify-write the active pointer for a base
	// name, so at most one migration runs at a time, process-wide.
	mu sync.Mutex
}

func NewMigrationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	fetcher fetch.Fetcher,
	assets repos.TrackedAssetRepo,
	archives repos.ArchivedVersionRepo,
	candidates repos.CandidateAssetRepo,
	migrations repos.MigrationRecordRepo,
	notify Notifier,
	stats StatsService,
) MigrationService {
	return &migrationService{
		db:              db,
		log:             baseLog.With("service", "MigrationService"),
		fetcher:         fetcher,
		assets:          assets,
		archives:        archives,
		candidates:      candidates,
		migrations:      migrations,
		notify:          notify,
		stats:           stats,
		minContentBytes: envutil.Int("MIN_CONTENT_BYTES", 10),
		batchPause:      envutil.Duration("MIGRATION_BATCH_PAUSE", 2*time.Second),
	}
}

func (s *migrationService) Migrate(ctx context.Context, upd Update, trigger string, force bool) (*types.MigrationRecord, error) {
	if upd.BaseName == "" || upd.NewURL == "" || upd.NewVersion == "" {
		return nil, fmt.Errorf("migrate: incomplete update for %q", upd.BaseName)
	}
	if trigger == "" {
		trigger = types.MigrationTriggerAuto
	}
	priority := upd.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}

	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()

	rec, err := s.openRecord(dbc, upd.BaseName, upd.NewVersion)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &types.MigrationRecord{
			AssetID:     uuidPtr(upd.AssetID),
			BaseName:    upd.BaseName,
			FromVersion: upd.CurrentVersion,
			ToVersion:   upd.NewVersion,
			FromURL:     upd.CurrentURL,
			ToURL:       upd.NewURL,
			Status:      types.MigrationStatusPending,
			Trigger:     trigger,
			Priority:    priority,
			Category:    upd.Category,
			Notes:       migrationNotes(upd),
		}
		if !force {
			if delay := delayFor(priority); delay > 0 {
				due := now.Add(delay)
				rec.ScheduledFor = &due
			}
		}
		created, cerr := s.migrations.Create(dbc, rec)
		if cerr != nil {
			return nil, fmt.Errorf("create migration record: %w", cerr)
		}
		rec = created
		s.log.Info("migration record created",
			"migration_id", rec.ID,
			"base_name", rec.BaseName,
			"from_version", rec.FromVersion,
			"to_version", rec.ToVersion,
			"trigger", rec.Trigger,
			"priority", rec.Priority,
		)
	} else if rec.Status != types.MigrationStatusPending {
		s.log.Warn("migration already in flight",
			"migration_id", rec.ID,
			"base_name", rec.BaseName,
			"to_version", rec.ToVersion,
			"status", rec.Status,
		)
		return rec, nil
	}

	if !force && rec.ScheduledFor != nil && rec.ScheduledFor.After(now) {
		s.log.Info("migration deferred",
			"migration_id", rec.ID,
			"base_name", rec.BaseName,
			"to_version", rec.ToVersion,
			"priority", rec.Priority,
			"scheduled_for", *rec.ScheduledFor,
		)
		return rec, nil
	}
	return s.execute(ctx, rec.ID)
}

func (s *migrationService) MigrateBatch(ctx context.Context, updates []Update, trigger string, force bool) (BatchStats, error) {
	var stats BatchStats
	if len(updates) == 0 {
		return stats, nil
	}

	batch := make([]Update, len(updates))
	copy(batch, updates)
	sort.SliceStable(batch, func(i, j int) bool {
		return delayFor(batch[i].Priority) < delayFor(batch[j].Priority)
	})

	dbc := dbctx.Context{Ctx: ctx}
	for i, upd := range batch {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec, err := s.Migrate(ctx, upd, trigger, force)
		executed := false
		switch {
		case err != nil:
			stats.Failed++
			s.log.Error("migration errored",
				"base_name", upd.BaseName,
				"to_version", upd.NewVersion,
				"error", err,
			)
		case rec.Status == types.MigrationStatusCompleted:
			stats.Successful++
			executed = true
		case rec.Status == types.MigrationStatusFailed, rec.Status == types.MigrationStatusRolledBack:
			stats.Failed++
			executed = true
		default:
			stats.Deferred++
		}
		if executed && i < len(batch)-1 && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(s.batchPause):
			}
		}
	}

	s.log.Info("migration batch finished",
		"total", len(batch),
		"successful", stats.Successful,
		"failed", stats.Failed,
		"deferred", stats.Deferred,
	)
	if stats.Successful+stats.Failed > 0 {
		s.notify.BatchSummary(dbc, stats.Successful, stats.Failed)
	}
	return stats, nil
}

func (s *migrationService) RunDue(ctx context.Context) (BatchStats, error) {
	var stats BatchStats
	dbc := dbctx.Context{Ctx: ctx}

	due, err := s.migrations.ListDue(dbc, time.Now().UTC(), 0)
	if err != nil {
		return stats, fmt.Errorf("list due migrations: %w", err)
	}
	if len(due) == 0 {
		return stats, nil
	}
	s.log.Info("draining due migrations", "due", len(due))

	for i, rec := range due {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		out, err := s.execute(ctx, rec.ID)
		switch {
		case err != nil:
			stats.Failed++
			s.log.Error("due migration errored",
				"migration_id", rec.ID,
				"base_name", rec.BaseName,
				"error", err,
			)
		case out.Status == types.MigrationStatusCompleted:
			stats.Successful++
		case out.Status == types.MigrationStatusFailed, out.Status == types.MigrationStatusRolledBack:
			stats.Failed++
		}
		if i < len(due)-1 && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(s.batchPause):
			}
		}
	}

	if stats.Successful+stats.Failed > 0 {
		s.notify.BatchSummary(dbc, stats.Successful, stats.Failed)
	}
	return stats, nil
}

// execute walks one pending record through validate, archive and activate.
// All failures are terminal for the record; only activation failure gets the
// single best-effort restore of the previous version.
func (s *migrationService) execute(ctx context.Context, id uuid.UUID) (*types.MigrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbc := dbctx.Context{Ctx: ctx}
	rec, err := s.migrations.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load migration: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("migration %s not found", id)
	}
	if rec.Terminal() {
		return rec, nil
	}

	started := time.Now().UTC()
	ok, err := s.migrations.Transition(dbc, rec.ID, types.MigrationStatusPending, types.MigrationStatusValidating, map[string]interface{}{
		"started_at": started,
	})
	if err != nil {
		return nil, fmt.Errorf("transition to validating: %w", err)
	}
	if !ok {
		s.log.Warn("migration no longer pending, skipping",
			"migration_id", rec.ID,
			"base_name", rec.BaseName,
			"status", rec.Status,
		)
		return s.migrations.GetByID(dbc, rec.ID)
	}
	s.log.Info("migration started",
		"migration_id", rec.ID,
		"base_name", rec.BaseName,
		"from_version", rec.FromVersion,
		"to_version", rec.ToVersion,
		"trigger", rec.Trigger,
		"priority", rec.Priority,
	)

	current, err := s.assets.GetActiveByBaseName(dbc, rec.BaseName)
	if err != nil {
		return s.fail(dbc, rec, started, types.ReasonValidationFailed, fmt.Errorf("load active asset: %w", err))
	}
	// A long-deferred record can be overtaken by a newer migration of the
	// same base name; executing it anyway would downgrade the active asset.
	if current != nil && current.Version != "" && !version.IsNewer(current.Version, rec.ToVersion) {
		return s.fail(dbc, rec, started, types.ReasonValidationFailed,
			fmt.Errorf("superseded: active version %s is not older than %s", current.Version, rec.ToVersion))
	}

	res, reason, verr := s.validate(ctx, rec.ToURL)
	if verr != nil {
		return s.fail(dbc, rec, started, reason, verr)
	}
	validatedAt := time.Now().UTC()
	ok, err = s.migrations.Transition(dbc, rec.ID, types.MigrationStatusValidating, types.MigrationStatusArchiving, map[string]interface{}{
		"validated_at":  validatedAt,
		"validation_ms": validatedAt.Sub(started).Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("transition to archiving: %w", err)
	}
	if !ok {
		return s.migrations.GetByID(dbc, rec.ID)
	}

	var archivedID *uuid.UUID
	if current == nil {
		s.log.Warn("no active version to archive", "base_name", rec.BaseName)
	} else {
		if current.Version != rec.FromVersion {
			// The record was proposed against an older snapshot of the
			// asset; repoint it at what is actually being replaced.
			if uerr := s.migrations.UpdateFields(dbc, rec.ID, map[string]interface{}{
				"from_version": current.Version,
				"from_url":     current.URL,
			}); uerr != nil {
				s.log.Warn("repoint from_version failed", "migration_id", rec.ID, "error", uerr)
			}
			rec.FromVersion = current.Version
			rec.FromURL = current.URL
		}
		av, aerr := s.snapshot(dbc, current)
		if aerr != nil {
			return s.fail(dbc, rec, started, types.ReasonArchiveFailed, fmt.Errorf("archive %s %s: %w", current.BaseName, current.Version, aerr))
		}
		archivedID = &av.ID
		if _, derr := s.assets.DeactivateAllByBaseName(dbc, rec.BaseName); derr != nil {
			return s.fail(dbc, rec, started, types.ReasonArchiveFailed, fmt.Errorf("deactivate %s: %w", rec.BaseName, derr))
		}
		s.log.Info("previous version archived",
			"base_name", current.BaseName,
			"version", current.Version,
			"archived_version_id", av.ID,
		)
	}

	updates := map[string]interface{}{}
	if archivedID != nil {
		updates["archived_version_id"] = *archivedID
	}
	ok, err = s.migrations.Transition(dbc, rec.ID, types.MigrationStatusArchiving, types.MigrationStatusActivating, updates)
	if err != nil {
		return nil, fmt.Errorf("transition to activating: %w", err)
	}
	if !ok {
		return s.migrations.GetByID(dbc, rec.ID)
	}

	if aerr := s.activate(dbc, rec, res); aerr != nil {
		out, _ := s.fail(dbc, rec, started, types.ReasonActivateFailed, aerr)
		if current == nil {
			return out, nil
		}
		return s.restorePrevious(dbc, out, current)
	}

	s.promoteCandidate(dbc, rec)

	completedAt := time.Now().UTC()
	ok, err = s.migrations.Transition(dbc, rec.ID, types.MigrationStatusActivating, types.MigrationStatusCompleted, map[string]interface{}{
		"completed_at": completedAt,
		"duration_ms":  completedAt.Sub(started).Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("transition to completed: %w", err)
	}
	if !ok {
		return s.migrations.GetByID(dbc, rec.ID)
	}

	out, err := s.migrations.GetByID(dbc, rec.ID)
	if err != nil || out == nil {
		out = rec
		out.Status = types.MigrationStatusCompleted
		out.CompletedAt = &completedAt
	}
	s.log.Info("migration completed",
		"migration_id", rec.ID,
		"base_name", rec.BaseName,
		"from_version", rec.FromVersion,
		"to_version", rec.ToVersion,
		"duration_ms", completedAt.Sub(started).Milliseconds(),
	)
	s.notify.MigrationCompleted(dbc, out)
	s.recordOutcome(dbc, out, completedAt)
	return out, nil
}

// validate fetches the candidate locator and maps transport failures to the
// migration failure taxonomy. The fetch taxonomy codes double as reasons.
func (s *migrationService) validate(ctx context.Context, url string) (*fetch.Result, string, error) {
	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		reason := types.ReasonValidationFailed
		switch class := fetch.ErrorClass(err); class {
		case types.ReasonNotFound, types.ReasonTimeout, types.ReasonNetwork:
			reason = class
		}
		return nil, reason, err
	}
	if res.Size < s.minContentBytes {
		return nil, types.ReasonEmpty, fmt.Errorf("content below %d bytes: got %d", s.minContentBytes, res.Size)
	}
	return res, "", nil
}

// snapshot freezes the asset into an ArchivedVersion. A conflict means this
// exact base+version was archived by an earlier migration; the existing row
// is reused since archives are immutable.
func (s *migrationService) snapshot(dbc dbctx.Context, asset *types.TrackedAsset) (*types.ArchivedVersion, error) {
	av := &types.ArchivedVersion{
		AssetID:     &asset.ID,
		BaseName:    asset.BaseName,
		Version:     asset.Version,
		Filename:    asset.Filename,
		URL:         asset.URL,
		Domain:      asset.Domain,
		FileKind:    asset.FileKind,
		Category:    asset.Category,
		Priority:    asset.Priority,
		ContentHash: asset.ContentHash,
		ContentSize: asset.ContentSize,
		Content:     asset.Content,
		ArchivedAt:  time.Now().UTC(),
	}
	created, err := s.archives.Create(dbc, av)
	if err != nil {
		if storeerr.IsConflict(err) {
			existing, gerr := s.archives.GetByBaseAndVersion(dbc, asset.BaseName, asset.Version)
			if gerr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return created, nil
}

// activate points the base name at the candidate version: reuse the tracked
// row for the candidate locator when one exists, otherwise create it, then
// flip it to the single active row for the base name.
func (s *migrationService) activate(dbc dbctx.Context, rec *types.MigrationRecord, res *fetch.Result) error {
	now := time.Now().UTC()
	hash := hashContent(res.Content)

	target, err := s.assets.GetByURL(dbc, rec.ToURL)
	if err != nil {
		return fmt.Errorf("load tracked asset: %w", err)
	}
	if target == nil {
		parsed := version.Parse(rec.ToURL)
		filename := parsed.Filename
		if filename == "" {
			filename = rec.BaseName
		}
		created, cerr := s.assets.Create(dbc, &types.TrackedAsset{
			BaseName:      rec.BaseName,
			Filename:      filename,
			URL:           rec.ToURL,
			Domain:        parsed.Domain,
			FileKind:      parsed.FileKind,
			Pattern:       parsed.Pattern,
			Version:       rec.ToVersion,
			Category:      rec.Category,
			Priority:      rec.Priority,
			ContentHash:   hash,
			ContentSize:   int64(res.Size),
			Content:       res.Content,
			LastCheckedAt: &now,
		})
		if cerr != nil {
			return fmt.Errorf("create tracked asset: %w", cerr)
		}
		target = created
	} else {
		if uerr := s.assets.UpdateFields(dbc, target.ID, map[string]interface{}{
			"version":         rec.ToVersion,
			"content_hash":    hash,
			"content_size":    int64(res.Size),
			"content":         res.Content,
			"last_checked_at": now,
		}); uerr != nil {
			return fmt.Errorf("update tracked asset: %w", uerr)
		}
	}
	if aerr := s.assets.ActivateExclusive(dbc, rec.BaseName, target.ID); aerr != nil {
		return fmt.Errorf("activate %s %s: %w", rec.BaseName, rec.ToVersion, aerr)
	}
	return nil
}

// restorePrevious is the single best-effort rollback after a failed
// activation. Success moves the already-FAILED record to rolled_back; failure
// leaves it FAILED with ROLLBACK_INCOMPLETE so an operator looks at it.
func (s *migrationService) restorePrevious(dbc dbctx.Context, failed *types.MigrationRecord, previous *types.TrackedAsset) (*types.MigrationRecord, error) {
	if rerr := s.assets.ActivateExclusive(dbc, previous.BaseName, previous.ID); rerr != nil {
		s.log.Error("restore of previous version failed, asset left inactive",
			"base_name", previous.BaseName,
			"version", previous.Version,
			"error", rerr,
		)
		if uerr := s.migrations.UpdateFields(dbc, failed.ID, map[string]interface{}{
			"failure_reason": types.ReasonRollbackIncomplete,
			"error":          failed.Error + "; restore: " + rerr.Error(),
		}); uerr != nil {
			s.log.Error("persist rollback state", "migration_id", failed.ID, "error", uerr)
		}
		out, gerr := s.migrations.GetByID(dbc, failed.ID)
		if gerr != nil || out == nil {
			out = failed
			out.FailureReason = types.ReasonRollbackIncomplete
		}
		return out, nil
	}

	now := time.Now().UTC()
	if uerr := s.migrations.UpdateFields(dbc, failed.ID, map[string]interface{}{
		"status":         types.MigrationStatusRolledBack,
		"rolled_back_at": now,
	}); uerr != nil {
		s.log.Error("persist rollback state", "migration_id", failed.ID, "error", uerr)
	}
	out, gerr := s.migrations.GetByID(dbc, failed.ID)
	if gerr != nil || out == nil {
		out = failed
		out.Status = types.MigrationStatusRolledBack
		out.RolledBackAt = &now
	}
	s.log.Warn("previous version restored after failed activation",
		"base_name", previous.BaseName,
		"restored_version", previous.Version,
	)
	s.notify.MigrationRolledBack(dbc, out)
	s.recordOutcome(dbc, out, now)
	return out, nil
}

// fail marks the record terminal. Failed migrations are a handled outcome,
// so the record is returned with a nil error.
func (s *migrationService) fail(dbc dbctx.Context, rec *types.MigrationRecord, started time.Time, reason string, cause error) (*types.MigrationRecord, error) {
	now := time.Now().UTC()
	if uerr := s.migrations.UpdateFields(dbc, rec.ID, map[string]interface{}{
		"status":         types.MigrationStatusFailed,
		"failure_reason": reason,
		"error":          cause.Error(),
		"completed_at":   now,
		"duration_ms":    now.Sub(started).Milliseconds(),
	}); uerr != nil {
		s.log.Error("persist failed status", "migration_id", rec.ID, "error", uerr)
	}
	out, gerr := s.migrations.GetByID(dbc, rec.ID)
	if gerr != nil || out == nil {
		out = rec
		out.Status = types.MigrationStatusFailed
		out.FailureReason = reason
		out.Error = cause.Error()
		out.CompletedAt = &now
	}
	s.log.Error("migration failed",
		"migration_id", rec.ID,
		"base_name", rec.BaseName,
		"to_version", rec.ToVersion,
		"reason", reason,
		"error", cause,
	)
	s.notify.MigrationFailed(dbc, out)
	s.recordOutcome(dbc, out, now)
	return out, nil
}

func (s *migrationService) Rollback(ctx context.Context, baseName, toVersion string) (*types.MigrationRecord, error) {
	if baseName == "" || toVersion == "" {
		return nil, fmt.Errorf("rollback: base name and version required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dbc := dbctx.Context{Ctx: ctx}
	started := time.Now().UTC()

	target, err := s.archives.GetByBaseAndVersion(dbc, baseName, toVersion)
	if err != nil {
		return nil, fmt.Errorf("load archived version: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("no archived version %s of %s", toVersion, baseName)
	}

	current, err := s.assets.GetActiveByBaseName(dbc, baseName)
	if err != nil {
		return nil, fmt.Errorf("load active asset: %w", err)
	}
	if current != nil && current.Version == toVersion {
		return nil, fmt.Errorf("version %s of %s is already active", toVersion, baseName)
	}

	// Prefer live content; the stored snapshot is the fallback when the
	// archived locator no longer resolves.
	content := target.Content
	size := target.ContentSize
	hash := target.ContentHash
	if res, ferr := s.fetcher.Fetch(ctx, target.URL); ferr == nil {
		content = res.Content
		size = int64(res.Size)
		hash = hashContent(res.Content)
	} else {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if content == "" {
			return nil, fmt.Errorf("archived locator unreachable and no snapshot stored: %w", ferr)
		}
		s.log.Warn("archived locator unreachable, using stored snapshot",
			"base_name", baseName,
			"version", toVersion,
			"class", fetch.ErrorClass(ferr),
			"error", ferr,
		)
	}

	var archivedID *uuid.UUID
	var fromVersion, fromURL string
	if current != nil {
		fromVersion = current.Version
		fromURL = current.URL
		av, aerr := s.snapshot(dbc, current)
		if aerr != nil {
			return nil, fmt.Errorf("archive current version: %w", aerr)
		}
		archivedID = &av.ID
		if _, derr := s.assets.DeactivateAllByBaseName(dbc, baseName); derr != nil {
			return nil, fmt.Errorf("deactivate current version: %w", derr)
		}
	}

	// The rolled-back-to version may still own an inactive tracked row;
	// otherwise it is recreated from the archive.
	restored, err := s.assets.GetByURL(dbc, target.URL)
	if err != nil {
		return nil, fmt.Errorf("load tracked asset: %w", err)
	}
	now := time.Now().UTC()
	if restored != nil {
		if uerr := s.assets.UpdateFields(dbc, restored.ID, map[string]interface{}{
			"version":         target.Version,
			"content_hash":    hash,
			"content_size":    size,
			"content":         content,
			"last_checked_at": now,
		}); uerr != nil {
			return nil, fmt.Errorf("update tracked asset: %w", uerr)
		}
	} else {
		parsed := version.Parse(target.URL)
		filename := target.Filename
		if filename == "" {
			filename = parsed.Filename
		}
		created, cerr := s.assets.Create(dbc, &types.TrackedAsset{
			BaseName:      target.BaseName,
			Filename:      filename,
			URL:           target.URL,
			Domain:        target.Domain,
			FileKind:      target.FileKind,
			Pattern:       parsed.Pattern,
			Version:       target.Version,
			Category:      target.Category,
			Priority:      target.Priority,
			ContentHash:   hash,
			ContentSize:   size,
			Content:       content,
			LastCheckedAt: &now,
		})
		if cerr != nil {
			return nil, fmt.Errorf("recreate tracked asset: %w", cerr)
		}
		restored = created
	}
	if aerr := s.assets.ActivateExclusive(dbc, baseName, restored.ID); aerr != nil {
		return nil, fmt.Errorf("activate restored version: %w", aerr)
	}

	done := time.Now().UTC()
	priority := target.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	rec := &types.MigrationRecord{
		AssetID:           &restored.ID,
		BaseName:          baseName,
		FromVersion:       fromVersion,
		ToVersion:         toVersion,
		FromURL:           fromURL,
		ToURL:             target.URL,
		Status:            types.MigrationStatusRolledBack,
		Trigger:           types.MigrationTriggerRollback,
		Priority:          priority,
		Category:          target.Category,
		ArchivedVersionID: archivedID,
		StartedAt:         &started,
		CompletedAt:       &done,
		RolledBackAt:      &done,
		DurationMs:        done.Sub(started).Milliseconds(),
	}
	created, cerr := s.migrations.Create(dbc, rec)
	if cerr != nil {
		return nil, fmt.Errorf("rollback applied but not recorded: %w", cerr)
	}
	s.log.Info("rollback completed",
		"base_name", baseName,
		"from_version", fromVersion,
		"to_version", toVersion,
	)
	s.notify.MigrationRolledBack(dbc, created)
	s.recordOutcome(dbc, created, done)
	return created, nil
}

// openRecord finds a non-terminal record for the same base name and target
// version, so re-proposing an update cannot stack duplicates.
func (s *migrationService) openRecord(dbc dbctx.Context, baseName, toVersion string) (*types.MigrationRecord, error) {
	existing, err := s.migrations.ListByBaseName(dbc, baseName, 0)
	if err != nil {
		return nil, fmt.Errorf("list migrations for %s: %w", baseName, err)
	}
	for _, m := range existing {
		if !m.Terminal() && m.ToVersion == toVersion {
			return m, nil
		}
	}
	return nil, nil
}

func (s *migrationService) promoteCandidate(dbc dbctx.Context, rec *types.MigrationRecord) {
	if len(rec.Notes) == 0 {
		return
	}
	var notes struct {
		CandidateID string `json:"candidate_id"`
	}
	if err := json.Unmarshal(rec.Notes, &notes); err != nil || notes.CandidateID == "" {
		return
	}
	id, err := uuid.Parse(notes.CandidateID)
	if err != nil {
		return
	}
	if err := s.candidates.UpdateStatus(dbc, id, types.CandidateStatusPromoted); err != nil {
		s.log.Warn("promote candidate", "candidate_id", id, "error", err)
	}
}

// recordOutcome publishes the terminal record to process metrics and
// refreshes the daily rollups it touches: the day it was created and, for
// deferred records, the day it finished.
func (s *migrationService) recordOutcome(dbc dbctx.Context, rec *types.MigrationRecord, terminal time.Time) {
	if m := observability.Current(); m != nil {
		m.ObserveMigration(rec.Status, time.Duration(rec.DurationMs)*time.Millisecond)
		if rec.ValidationMs > 0 {
			m.ObserveValidation(rec.Status, time.Duration(rec.ValidationMs)*time.Millisecond)
		}
	}
	if _, err := s.stats.RecomputeDay(dbc, rec.CreatedAt); err != nil {
		s.log.Warn("recompute day metrics", "day", rec.CreatedAt.Format("2006-01-02"), "error", err)
	}
	if !sameDay(rec.CreatedAt, terminal) {
		if _, err := s.stats.RecomputeDay(dbc, terminal); err != nil {
			s.log.Warn("recompute day metrics", "day", terminal.Format("2006-01-02"), "error", err)
		}
	}
}

func migrationNotes(upd Update) datatypes.JSON {
	if upd.CandidateID == uuid.Nil {
		return nil
	}
	raw, err := json.Marshal(map[string]string{"candidate_id": upd.CandidateID.String()})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	out := id
	return &out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
