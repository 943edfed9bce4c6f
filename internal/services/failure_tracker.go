package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// FailureTracker counts consecutive fetch failures per tracked asset. Crossing
// the threshold is the only out-of-cycle trigger for discovery; migrations are
// never started from here.
type FailureTracker interface {
	RecordFailure(dbc dbctx.Context, asset *types.TrackedAsset) error
	RecordSuccess(dbc dbctx.Context, asset *types.TrackedAsset) error
	AssetsOverThreshold(dbc dbctx.Context) ([]*types.TrackedAsset, error)
	Threshold() int
}

type failureTracker struct {
	db        *gorm.DB
	log       *logger.Logger
	assets    repos.TrackedAssetRepo
	threshold int
}

func NewFailureTracker(db *gorm.DB, baseLog *logger.Logger, assets repos.TrackedAssetRepo) FailureTracker {
	return &failureTracker{
		db:        db,
		log:       baseLog.With("service", "FailureTracker"),
		assets:    assets,
		threshold: envutil.Int("FAILURE_THRESHOLD", 3),
	}
}

func (s *failureTracker) RecordFailure(dbc dbctx.Context, asset *types.TrackedAsset) error {
	if asset == nil {
		return fmt.Errorf("missing asset")
	}
	if err := s.assets.IncrementFailure(dbc, asset.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment failure count: %w", err)
	}
	count := asset.FailureCount + 1
	if count >= s.threshold {
		s.log.Warn("asset over failure threshold",
			"base_name", asset.BaseName,
			"url", asset.URL,
			"consecutive_failures", count,
		)
	}
	return nil
}

func (s *failureTracker) RecordSuccess(dbc dbctx.Context, asset *types.TrackedAsset) error {
	if asset == nil {
		return fmt.Errorf("missing asset")
	}
	// nothing to clear for the common all-healthy cycle
	if asset.FailureCount == 0 && asset.LastFailureAt == nil {
		return nil
	}
	if err := s.assets.ResetFailures(dbc, asset.ID); err != nil {
		return fmt.Errorf("reset failure count: %w", err)
	}
	return nil
}

func (s *failureTracker) AssetsOverThreshold(dbc dbctx.Context) ([]*types.TrackedAsset, error) {
	failing, err := s.assets.ListFailing(dbc, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("list failing assets: %w", err)
	}
	for _, a := range failing {
		s.log.Warn("failing asset",
			"base_name", a.BaseName,
			"url", a.URL,
			"consecutive_failures", a.FailureCount,
			"last_failure_at", a.LastFailureAt,
		)
	}
	return failing, nil
}

func (s *failureTracker) Threshold() int { return s.threshold }
