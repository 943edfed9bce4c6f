package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/fetch"
	"github.com/yungbote/assetwatch-backend/internal/observability"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/pkg/diffmeta"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// CheckSummary aggregates one monitoring cycle over all active assets.
type CheckSummary struct {
	Checked   int `json:"checked"`
	Changed   int `json:"changed"`
	Baselines int `json:"baselines"`
	Failed    int `json:"failed"`
}

// MonitorService fetches every active asset, compares content hashes against
// the stored state and records a Change for each drift. Fetch failures feed
// the failure tracker; they never abort the cycle.
type MonitorService interface {
	CheckAll(ctx context.Context) (CheckSummary, error)
}

type monitorService struct {
	db       *gorm.DB
	log      *logger.Logger
	fetcher  fetch.Fetcher
	assets   repos.TrackedAssetRepo
	changes  repos.ChangeRepo
	failures FailureTracker
	notify   Notifier
	maxConc  int
}

func NewMonitorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	fetcher fetch.Fetcher,
	assets repos.TrackedAssetRepo,
	changes repos.ChangeRepo,
	failures FailureTracker,
	notify Notifier,
) MonitorService {
	return &monitorService{
		db:       db,
		log:      baseLog.With("service", "MonitorService"),
		fetcher:  fetcher,
		assets:   assets,
		changes:  changes,
		failures: failures,
		notify:   notify,
		maxConc:  envutil.Int("CHECK_CONCURRENCY", 4),
	}
}

type checkOutcome int

const (
	checkUnchanged checkOutcome = iota
	checkBaseline
	checkChanged
)

func (s *monitorService) CheckAll(ctx context.Context) (CheckSummary, error) {
	dbc := dbctx.Context{Ctx: ctx}
	active, err := s.assets.ListActive(dbc)
	if err != nil {
		return CheckSummary{}, fmt.Errorf("list active assets: %w", err)
	}
	if len(active) == 0 {
		s.log.Info("no active assets to check")
		return CheckSummary{}, nil
	}

	maxConc := s.maxConc
	if maxConc <= 0 {
		maxConc = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConc)

	var changed, baselines, failed int32
	for i := range active {
		asset := active[i]
		g.Go(func() error {
			outcome, err := s.checkAsset(dbctx.Context{Ctx: gctx}, asset)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				s.log.Warn("asset check failed",
					"base_name", asset.BaseName,
					"url", asset.URL,
					"error", err,
				)
				// one broken asset never aborts the cycle
				return nil
			}
			switch outcome {
			case checkChanged:
				atomic.AddInt32(&changed, 1)
			case checkBaseline:
				atomic.AddInt32(&baselines, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := CheckSummary{
		Checked:   len(active),
		Changed:   int(atomic.LoadInt32(&changed)),
		Baselines: int(atomic.LoadInt32(&baselines)),
		Failed:    int(atomic.LoadInt32(&failed)),
	}
	if m := observability.Current(); m != nil {
		m.IncCheckCycle()
	}
	s.log.Info("check cycle finished",
		"checked", summary.Checked,
		"changed", summary.Changed,
		"baselines", summary.Baselines,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *monitorService) checkAsset(dbc dbctx.Context, asset *types.TrackedAsset) (checkOutcome, error) {
	res, err := s.fetcher.Fetch(dbc.Ctx, asset.URL)
	if err != nil {
		if recErr := s.failures.RecordFailure(dbc, asset); recErr != nil {
			s.log.Warn("record failure failed", "base_name", asset.BaseName, "error", recErr)
		}
		return checkUnchanged, fmt.Errorf("fetch (%s): %w", fetch.ErrorClass(err), err)
	}
	if recErr := s.failures.RecordSuccess(dbc, asset); recErr != nil {
		s.log.Warn("record success failed", "base_name", asset.BaseName, "error", recErr)
	}

	now := time.Now().UTC()
	newHash := hashContent(res.Content)

	// first successful fetch becomes the baseline, no change recorded
	if asset.ContentHash == "" {
		if err := s.assets.MarkChecked(dbc, asset.ID, newHash, int64(res.Size), res.Content, now); err != nil {
			return checkUnchanged, fmt.Errorf("store baseline: %w", err)
		}
		s.log.Info("baseline stored", "base_name", asset.BaseName, "size", res.Size)
		return checkBaseline, nil
	}

	if asset.ContentHash == newHash {
		if err := s.assets.UpdateFields(dbc, asset.ID, map[string]interface{}{"last_checked_at": now}); err != nil {
			return checkUnchanged, fmt.Errorf("touch asset: %w", err)
		}
		return checkUnchanged, nil
	}

	diff := diffmeta.Compute(asset.Content, res.Content, asset.BaseName, asset.FileKind)
	severity := diffmeta.ClassifySeverity(diff.Metadata, diff.ChangePercent, asset.Priority)
	mdJSON, err := json.Marshal(diff.Metadata)
	if err != nil {
		mdJSON = []byte(`{}`)
	}

	change := &types.Change{
		AssetID:       asset.ID,
		BaseName:      asset.BaseName,
		FromVersion:   asset.Version,
		ToVersion:     asset.Version,
		OldHash:       asset.ContentHash,
		NewHash:       newHash,
		OldSize:       asset.ContentSize,
		NewSize:       int64(res.Size),
		SizeDelta:     int64(diff.SizeDelta),
		ChangePercent: diff.ChangePercent,
		AddedLines:    diff.AddedLines,
		RemovedLines:  diff.RemovedLines,
		UnifiedDiff:   diff.UnifiedDiff,
		Reflowed:      diff.Reflowed,
		Metadata:      datatypes.JSON(mdJSON),
		Severity:      severity,
		DetectedAt:    now,
	}
	created, err := s.changes.Create(dbc, change)
	if err != nil {
		return checkUnchanged, fmt.Errorf("record change: %w", err)
	}
	if m := observability.Current(); m != nil {
		m.IncChangeDetected(severity)
	}

	if err := s.assets.UpdateFields(dbc, asset.ID, map[string]interface{}{
		"content_hash":    newHash,
		"content_size":    int64(res.Size),
		"content":         res.Content,
		"last_checked_at": now,
		"last_changed_at": now,
	}); err != nil {
		return checkUnchanged, fmt.Errorf("store new state: %w", err)
	}

	s.log.Info("change detected",
		"base_name", asset.BaseName,
		"severity", severity,
		"change_percent", diff.ChangePercent,
		"added_lines", diff.AddedLines,
		"removed_lines", diff.RemovedLines,
	)
	if s.notify != nil {
		s.notify.ChangeDetected(dbc, asset, created)
	}
	return checkChanged, nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
