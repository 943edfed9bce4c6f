package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/pkg/version"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
	"github.com/yungbote/assetwatch-backend/internal/platform/watchlist"
)

// SeedSummary counts one watchlist pass.
type SeedSummary struct {
	Groups   int `json:"groups"`
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Skipped  int `json:"skipped"`
}

// SeedService bootstraps the tracked fleet from the watchlist file. Seeded
// rows are shells: locator identity only, content filled by the first check
// cycle. Malformed entries are logged and skipped, never fatal.
type SeedService interface {
	SeedFile(ctx context.Context, path string) (SeedSummary, error)
	// SeedIfEmpty seeds only when no asset is tracked yet, so a restarted
	// daemon never re-reads the file over a live fleet.
	SeedIfEmpty(ctx context.Context, path string) (SeedSummary, error)
}

type seedService struct {
	db     *gorm.DB
	log    *logger.Logger
	assets repos.TrackedAssetRepo
}

func NewSeedService(db *gorm.DB, baseLog *logger.Logger, assets repos.TrackedAssetRepo) SeedService {
	return &seedService{
		db:     db,
		log:    baseLog.With("service", "SeedService"),
		assets: assets,
	}
}

func (s *seedService) SeedFile(ctx context.Context, path string) (SeedSummary, error) {
	wl, err := watchlist.Load(path)
	if err != nil {
		return SeedSummary{}, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	sum := SeedSummary{Groups: len(wl.Assets)}
	for _, group := range wl.Assets {
		for _, locator := range group.URLs {
			switch s.seedLocator(dbc, group, locator) {
			case seedCreated:
				sum.Created++
			case seedExisting:
				sum.Existing++
			default:
				sum.Skipped++
			}
		}
	}

	s.log.Info("watchlist seeded",
		"file", path,
		"groups", sum.Groups,
		"created", sum.Created,
		"existing", sum.Existing,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

func (s *seedService) SeedIfEmpty(ctx context.Context, path string) (SeedSummary, error) {
	n, err := s.assets.CountActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		return SeedSummary{}, fmt.Errorf("count active assets: %w", err)
	}
	if n > 0 {
		s.log.Info("store already seeded", "active_assets", n)
		return SeedSummary{}, nil
	}
	return s.SeedFile(ctx, path)
}

type seedOutcome int

const (
	seedSkipped seedOutcome = iota
	seedCreated
	seedExisting
)

func (s *seedService) seedLocator(dbc dbctx.Context, group watchlist.Group, locator string) seedOutcome {
	if locator == "" {
		return seedSkipped
	}
	parsed := version.Parse(locator)
	if parsed.BaseName == "" {
		s.log.Warn("watchlist entry has no derivable base name, skipping", "url", locator)
		return seedSkipped
	}

	existing, err := s.assets.GetByURL(dbc, locator)
	if err != nil {
		s.log.Warn("watchlist lookup failed, skipping", "url", locator, "error", err)
		return seedSkipped
	}
	if existing != nil {
		return seedExisting
	}

	category := group.Category
	priority := group.Priority
	if !validCategory(category) || !validPriority(priority) {
		derivedCat, derivedPrio := categorize(locator)
		if !validCategory(category) {
			category = derivedCat
		}
		if !validPriority(priority) {
			priority = derivedPrio
		}
		s.log.Warn("watchlist entry missing category or priority, derived from locator",
			"url", locator,
			"category", category,
			"priority", priority,
		)
	}

	_, err = s.assets.Create(dbc, &types.TrackedAsset{
		BaseName: parsed.BaseName,
		Filename: parsed.Filename,
		URL:      locator,
		Domain:   parsed.Domain,
		FileKind: parsed.FileKind,
		Pattern:  parsed.Pattern,
		Version:  parsed.Version,
		Category: category,
		Priority: priority,
		Active:   true,
	})
	if err != nil {
		// Two watchlist entries for one base name trip the single-active
		// guarantee; keep the first and move on.
		if storeerr.IsConflict(err) {
			s.log.Warn("watchlist entry conflicts with an already-active base name, skipping",
				"url", locator,
				"base_name", parsed.BaseName,
			)
			return seedSkipped
		}
		s.log.Warn("watchlist entry insert failed, skipping", "url", locator, "error", err)
		return seedSkipped
	}

	s.log.Info("asset seeded",
		"base_name", parsed.BaseName,
		"version", parsed.Version,
		"category", category,
		"priority", priority,
	)
	return seedCreated
}

func validCategory(c string) bool {
	switch c {
	case types.CategoryCore, types.CategoryMembers, types.CategoryEcommerce,
		types.CategoryZeroBlock, types.CategoryUIComponents, types.CategoryUtilities,
		types.CategoryUnknown:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case types.PriorityCritical, types.PriorityHigh, types.PriorityMedium, types.PriorityLow:
		return true
	}
	return false
}
