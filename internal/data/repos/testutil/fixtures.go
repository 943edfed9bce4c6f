package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedTrackedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, baseName, version string) *types.TrackedAsset {
	tb.Helper()
	content := fmt.Sprintf("console.log(%q);\n", baseName+" "+version)
	sum := sha256.Sum256([]byte(content))
	now := time.Now().UTC()
	a := &types.TrackedAsset{
		ID:          uuid.New(),
		BaseName:    baseName,
		Filename:    fmt.Sprintf("%s-%s.min.js", baseName, version),
		URL:         fmt.Sprintf("https://static.tildacdn.com/js/%s-%s.min.js", baseName, version),
		Domain:      "static.tildacdn.com",
		FileKind:    types.FileKindScript,
		Pattern:     "name-version",
		Version:     version,
		Category:    types.CategoryEcommerce,
		Priority:    types.PriorityHigh,
		ContentHash: hex.EncodeToString(sum[:]),
		ContentSize: int64(len(content)),
		Content:     content,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed tracked asset: %v", err)
	}
	return a
}

func SeedArchivedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, assetID uuid.UUID, baseName, version string) *types.ArchivedVersion {
	tb.Helper()
	content := fmt.Sprintf("console.log(%q);\n", baseName+" "+version)
	sum := sha256.Sum256([]byte(content))
	av := &types.ArchivedVersion{
		ID:          uuid.New(),
		AssetID:     &assetID,
		BaseName:    baseName,
		Version:     version,
		Filename:    fmt.Sprintf("%s-%s.min.js", baseName, version),
		URL:         fmt.Sprintf("https://static.tildacdn.com/js/%s-%s.min.js", baseName, version),
		Domain:      "static.tildacdn.com",
		FileKind:    types.FileKindScript,
		Category:    types.CategoryEcommerce,
		Priority:    types.PriorityHigh,
		ContentHash: hex.EncodeToString(sum[:]),
		ContentSize: int64(len(content)),
		Content:     content,
		ArchivedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(av).Error; err != nil {
		tb.Fatalf("seed archived version: %v", err)
	}
	return av
}

func SeedMigrationRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, assetID uuid.UUID, baseName, status string) *types.MigrationRecord {
	tb.Helper()
	now := time.Now().UTC()
	m := &types.MigrationRecord{
		ID:          uuid.New(),
		AssetID:     &assetID,
		BaseName:    baseName,
		FromVersion: "1.0",
		ToVersion:   "1.1",
		FromURL:     fmt.Sprintf("https://static.tildacdn.com/js/%s-1.0.min.js", baseName),
		ToURL:       fmt.Sprintf("https://static.tildacdn.com/js/%s-1.1.min.js", baseName),
		Status:      status,
		Trigger:     types.MigrationTriggerAuto,
		Priority:    types.PriorityHigh,
		Category:    types.CategoryEcommerce,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed migration record: %v", err)
	}
	return m
}
