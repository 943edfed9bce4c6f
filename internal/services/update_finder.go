package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/pkg/version"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// Update is one candidate locator carrying a strictly newer version of a
// tracked base name.
type Update struct {
	AssetID        uuid.UUID `json:"asset_id"`
	CandidateID    uuid.UUID `json:"candidate_id"`
	BaseName       string    `json:"base_name"`
	CurrentVersion string    `json:"current_version"`
	CurrentURL     string    `json:"current_url"`
	NewVersion     string    `json:"new_version"`
	NewURL         string    `json:"new_url"`
	Priority       string    `json:"priority"`
	Category       string    `json:"category"`
	FileKind       string    `json:"file_kind"`
	Domain         string    `json:"domain"`
}

type UpdateFinder interface {
	// FindUpdates cross-references active tracked assets against new
	// candidates from discovery.
	FindUpdates(dbc dbctx.Context) ([]Update, error)
	// CrossReference is the pure core of FindUpdates, usable on ad-hoc lists.
	CrossReference(tracked []*types.TrackedAsset, candidates []*types.CandidateAsset) []Update
	// DetectSchemaChange flags a probable base-name rename between two
	// locators. Returns a human-readable note, or "" when the names are
	// unrelated. Diagnostic only; it never promotes a rename.
	DetectSchemaChange(oldLocator, newLocator string) string
}

type updateFinder struct {
	db         *gorm.DB
	log        *logger.Logger
	assets     repos.TrackedAssetRepo
	candidates repos.CandidateAssetRepo
}

const renameSimilarityThreshold = 0.7

func NewUpdateFinder(
	db *gorm.DB,
	baseLog *logger.Logger,
	assets repos.TrackedAssetRepo,
	candidates repos.CandidateAssetRepo,
) UpdateFinder {
	return &updateFinder{
		db:         db,
		log:        baseLog.With("service", "UpdateFinder"),
		assets:     assets,
		candidates: candidates,
	}
}

func (s *updateFinder) FindUpdates(dbc dbctx.Context) ([]Update, error) {
	tracked, err := s.assets.ListActive(dbc)
	if err != nil {
		return nil, fmt.Errorf("list active assets: %w", err)
	}
	candidates, err := s.candidates.ListByStatus(dbc, types.CandidateStatusNew, 0)
	if err != nil {
		return nil, fmt.Errorf("list new candidates: %w", err)
	}

	updates := s.CrossReference(tracked, candidates)
	s.log.Info("update scan finished",
		"tracked", len(tracked),
		"candidates", len(candidates),
		"updates", len(updates),
	)
	return updates, nil
}

func (s *updateFinder) CrossReference(tracked []*types.TrackedAsset, candidates []*types.CandidateAsset) []Update {
	index := make(map[string]*types.TrackedAsset, len(tracked))
	for _, ta := range tracked {
		base := ta.BaseName
		if base == "" {
			base = version.Parse(ta.URL).BaseName
		}
		if base == "" || !ta.Active {
			continue
		}
		index[base] = ta
	}

	updates := make([]Update, 0)
	for _, c := range candidates {
		parsed := version.Parse(c.URL)
		if parsed.BaseName == "" || parsed.Version == "" {
			continue
		}
		ta, ok := index[parsed.BaseName]
		if !ok {
			continue
		}
		if !version.IsNewer(ta.Version, parsed.Version) {
			continue
		}

		current := ta.Version
		if current == "" {
			current = "unknown"
		}
		updates = append(updates, Update{
			AssetID:        ta.ID,
			CandidateID:    c.ID,
			BaseName:       parsed.BaseName,
			CurrentVersion: current,
			CurrentURL:     ta.URL,
			NewVersion:     parsed.Version,
			NewURL:         c.URL,
			Priority:       ta.Priority,
			Category:       ta.Category,
			FileKind:       parsed.FileKind,
			Domain:         parsed.Domain,
		})
		s.log.Info("newer version found",
			"base_name", parsed.BaseName,
			"current", current,
			"candidate", parsed.Version,
		)
	}
	return updates
}

func (s *updateFinder) DetectSchemaChange(oldLocator, newLocator string) string {
	oldParsed := version.Parse(oldLocator)
	newParsed := version.Parse(newLocator)
	if oldParsed.BaseName == newParsed.BaseName {
		return ""
	}
	sim := version.Similarity(oldParsed.BaseName, newParsed.BaseName)
	if sim <= renameSimilarityThreshold {
		return ""
	}
	return fmt.Sprintf("probable naming change: %s -> %s (similarity %.0f%%)",
		oldParsed.BaseName, newParsed.BaseName, sim*100)
}
