package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/notify"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// Notifier emits structured event payloads. Every emission is recorded in
// notification_log and flips the source record's notified flag; delivery
// failures are logged, never propagated to the calling cycle.
type Notifier interface {
	ChangeDetected(dbc dbctx.Context, asset *types.TrackedAsset, change *types.Change)
	UpdateFound(dbc dbctx.Context, upd Update)
	MigrationCompleted(dbc dbctx.Context, rec *types.MigrationRecord)
	MigrationFailed(dbc dbctx.Context, rec *types.MigrationRecord)
	MigrationRolledBack(dbc dbctx.Context, rec *types.MigrationRecord)
	CandidateFound(dbc dbctx.Context, cand *types.CandidateAsset)
	FailureThreshold(dbc dbctx.Context, failing []*types.TrackedAsset)
	BatchSummary(dbc dbctx.Context, successful, failed int)
}

type notifier struct {
	log        *logger.Logger
	pub        notify.Publisher
	logs       repos.NotificationLogRepo
	changes    repos.ChangeRepo
	migrations repos.MigrationRecordRepo
}

func NewNotifier(
	baseLog *logger.Logger,
	pub notify.Publisher,
	logs repos.NotificationLogRepo,
	changes repos.ChangeRepo,
	migrations repos.MigrationRecordRepo,
) Notifier {
	return &notifier{
		log:        baseLog.With("service", "Notifier"),
		pub:        pub,
		logs:       logs,
		changes:    changes,
		migrations: migrations,
	}
}

func (n *notifier) ChangeDetected(dbc dbctx.Context, asset *types.TrackedAsset, change *types.Change) {
	if n == nil || change == nil {
		return
	}
	data := map[string]any{
		"base_name":      change.BaseName,
		"url":            assetURL(asset),
		"severity":       change.Severity,
		"old_hash":       change.OldHash,
		"new_hash":       change.NewHash,
		"old_size":       change.OldSize,
		"new_size":       change.NewSize,
		"change_percent": change.ChangePercent,
		"added_lines":    change.AddedLines,
		"removed_lines":  change.RemovedLines,
		"metadata":       change.Metadata,
		"detected_at":    change.DetectedAt,
	}
	if n.emit(dbc, types.NotifyKindChangeDetected, "change", &change.ID, data) {
		if err := n.changes.MarkNotified(dbc, []uuid.UUID{change.ID}); err != nil {
			n.log.Warn("mark change notified failed", "change_id", change.ID, "error", err)
		}
	}
}

func (n *notifier) UpdateFound(dbc dbctx.Context, upd Update) {
	if n == nil {
		return
	}
	data := map[string]any{
		"base_name":       upd.BaseName,
		"current_version": upd.CurrentVersion,
		"new_version":     upd.NewVersion,
		"current_url":     upd.CurrentURL,
		"new_url":         upd.NewURL,
		"priority":        upd.Priority,
		"category":        upd.Category,
	}
	var subject *uuid.UUID
	if upd.AssetID != uuid.Nil {
		id := upd.AssetID
		subject = &id
	}
	n.emit(dbc, types.NotifyKindUpdateFound, "tracked_asset", subject, data)
}

func (n *notifier) MigrationCompleted(dbc dbctx.Context, rec *types.MigrationRecord) {
	n.emitMigration(dbc, types.NotifyKindMigrationCompleted, rec)
}

func (n *notifier) MigrationFailed(dbc dbctx.Context, rec *types.MigrationRecord) {
	n.emitMigration(dbc, types.NotifyKindMigrationFailed, rec)
}

func (n *notifier) MigrationRolledBack(dbc dbctx.Context, rec *types.MigrationRecord) {
	n.emitMigration(dbc, types.NotifyKindMigrationRolledBack, rec)
}

func (n *notifier) emitMigration(dbc dbctx.Context, kind string, rec *types.MigrationRecord) {
	if n == nil || rec == nil {
		return
	}
	data := map[string]any{
		"migration_id":   rec.ID,
		"base_name":      rec.BaseName,
		"from_version":   rec.FromVersion,
		"to_version":     rec.ToVersion,
		"status":         rec.Status,
		"trigger":        rec.Trigger,
		"priority":       rec.Priority,
		"failure_reason": rec.FailureReason,
		"error":          rec.Error,
		"validation_ms":  rec.ValidationMs,
		"duration_ms":    rec.DurationMs,
	}
	if n.emit(dbc, kind, "migration_record", &rec.ID, data) {
		if err := n.migrations.MarkNotified(dbc, []uuid.UUID{rec.ID}); err != nil {
			n.log.Warn("mark migration notified failed", "migration_id", rec.ID, "error", err)
		}
	}
}

func (n *notifier) CandidateFound(dbc dbctx.Context, cand *types.CandidateAsset) {
	if n == nil || cand == nil {
		return
	}
	data := map[string]any{
		"url":         cand.URL,
		"base_name":   cand.BaseName,
		"version":     cand.Version,
		"category":    cand.Category,
		"source_page": cand.SourcePage,
		"pattern":     cand.Pattern,
	}
	n.emit(dbc, types.NotifyKindCandidateFound, "candidate", &cand.ID, data)
}

func (n *notifier) FailureThreshold(dbc dbctx.Context, failing []*types.TrackedAsset) {
	if n == nil || len(failing) == 0 {
		return
	}
	assets := make([]map[string]any, 0, len(failing))
	for _, a := range failing {
		assets = append(assets, map[string]any{
			"base_name":       a.BaseName,
			"url":             a.URL,
			"failure_count":   a.FailureCount,
			"last_failure_at": a.LastFailureAt,
		})
	}
	n.emit(dbc, types.NotifyKindFailureThreshold, "", nil, map[string]any{
		"count":  len(failing),
		"assets": assets,
	})
}

func (n *notifier) BatchSummary(dbc dbctx.Context, successful, failed int) {
	if n == nil {
		return
	}
	n.emit(dbc, types.NotifyKindBatchSummary, "", nil, map[string]any{
		"successful": successful,
		"failed":     failed,
		"total":      successful + failed,
	})
}

// emit records the payload and hands it to the publisher. Returns true when
// the handoff succeeded.
func (n *notifier) emit(dbc dbctx.Context, kind, subjectType string, subjectID *uuid.UUID, data map[string]any) bool {
	if n.pub == nil {
		return false
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(data)
	if err != nil {
		n.log.Error("notification payload marshal failed", "kind", kind, "error", err)
		return false
	}

	row, logErr := n.logs.Create(dbc, &types.NotificationLog{
		Kind:        kind,
		Channel:     n.pub.Channel(),
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Payload:     datatypes.JSON(payload),
	})
	if logErr != nil {
		n.log.Warn("notification log write failed", "kind", kind, "error", logErr)
	}

	pubErr := n.pub.Publish(ctx, notify.Message{Kind: kind, Data: data})
	if row != nil {
		if pubErr != nil {
			_ = n.logs.MarkFailed(dbc, row.ID, pubErr.Error())
		} else {
			_ = n.logs.MarkDelivered(dbc, row.ID, time.Now().UTC())
		}
	}
	if pubErr != nil {
		n.log.Warn("notification publish failed", "kind", kind, "error", pubErr)
		return false
	}
	return true
}

func assetURL(asset *types.TrackedAsset) string {
	if asset == nil {
		return ""
	}
	return asset.URL
}
