package migrations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/assetwatch-backend/internal/data/repos/testutil"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

func TestMigrationMetricRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMigrationMetricRepo(db, testutil.Logger(t))

	day := time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC) // truncated to the date
	firstPass := &types.MigrationMetric{
		ID:            uuid.New(),
		Day:           day,
		UpdatesFound:  3,
		Started:       2,
		Completed:     1,
		AvgDurationMs: 1500,
	}
	if _, err := repo.ReplaceDay(dbc, firstPass); err != nil {
		t.Fatalf("ReplaceDay insert: %v", err)
	}

	// A later cycle recomputes the same day with fresher numbers.
	secondPass := &types.MigrationMetric{
		ID:              uuid.New(),
		Day:             day.Add(3 * time.Hour),
		UpdatesFound:    5,
		ChangesDetected: 4,
		Started:         4,
		Completed:       3,
		Failed:          1,
		AvgValidationMs: 200,
		AvgDurationMs:   1800,
	}
	if _, err := repo.ReplaceDay(dbc, secondPass); err != nil {
		t.Fatalf("ReplaceDay update: %v", err)
	}

	got, err := repo.GetDay(dbc, day)
	if err != nil || got == nil {
		t.Fatalf("GetDay: err=%v got=%+v", err, got)
	}
	if got.UpdatesFound != 5 || got.Completed != 3 || got.Failed != 1 || got.AvgDurationMs != 1800 {
		t.Fatalf("ReplaceDay should replace the whole row: %+v", got)
	}

	prev := &types.MigrationMetric{
		ID:        uuid.New(),
		Day:       day.AddDate(0, 0, -1),
		Completed: 7,
	}
	if _, err := repo.ReplaceDay(dbc, prev); err != nil {
		t.Fatalf("ReplaceDay previous day: %v", err)
	}

	window, err := repo.ListRange(dbc, day.AddDate(0, 0, -7), day)
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("ListRange: expected 2 days, got %d", len(window))
	}
	if !window[0].Day.Before(window[1].Day) {
		t.Fatalf("ListRange should order ascending by day")
	}

	if missing, err := repo.GetDay(dbc, day.AddDate(0, 0, 10)); err != nil || missing != nil {
		t.Fatalf("GetDay missing: expected nil,nil; err=%v got=%+v", err, missing)
	}
}
