package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/data/repos/testutil"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

type statsHarness struct {
	svc        StatsService
	assets     repos.TrackedAssetRepo
	archives   repos.ArchivedVersionRepo
	changes    repos.ChangeRepo
	migrations repos.MigrationRecordRepo
	metrics    repos.MigrationMetricRepo
	tx         *gorm.DB
	dbc        dbctx.Context
}

func newStatsHarness(t *testing.T) *statsHarness {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	h := &statsHarness{
		assets:     repos.NewTrackedAssetRepo(tx, log),
		archives:   repos.NewArchivedVersionRepo(tx, log),
		changes:    repos.NewChangeRepo(tx, log),
		migrations: repos.NewMigrationRecordRepo(tx, log),
		metrics:    repos.NewMigrationMetricRepo(tx, log),
		tx:         tx,
		dbc:        dbctx.Context{Ctx: context.Background()},
	}
	h.svc = NewStatsService(tx, log, h.assets, h.archives, h.changes, h.migrations, h.metrics)
	return h
}

// seedRollupDay writes one pending, one completed, one failed and one
// rolled-back record plus two changes, all timestamped inside the current day.
func seedRollupDay(t *testing.T, h *statsHarness, baseName string) time.Time {
	t.Helper()
	ctx := h.dbc.Ctx
	now := time.Now().UTC()
	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, baseName, "1.0")

	testutil.SeedMigrationRecord(t, ctx, h.tx, asset.ID, baseName, types.MigrationStatusPending)

	started := now.Add(-5 * time.Minute)
	finished := now.Add(-4 * time.Minute)
	for _, rec := range []*types.MigrationRecord{
		{
			AssetID: &asset.ID, BaseName: baseName,
			FromVersion: "1.0", ToVersion: "1.1",
			FromURL: "https://static.tildacdn.com/js/" + baseName + "-1.0.min.js",
			ToURL:   "https://static.tildacdn.com/js/" + baseName + "-1.1.min.js",
			Status:  types.MigrationStatusCompleted, Trigger: types.MigrationTriggerAuto,
			Priority: types.PriorityHigh, StartedAt: &started, CompletedAt: &finished,
			ValidationMs: 100, DurationMs: 1000,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			AssetID: &asset.ID, BaseName: baseName,
			FromVersion: "1.0", ToVersion: "1.2",
			FromURL: "https://static.tildacdn.com/js/" + baseName + "-1.0.min.js",
			ToURL:   "https://static.tildacdn.com/js/" + baseName + "-1.2.min.js",
			Status:  types.MigrationStatusFailed, Trigger: types.MigrationTriggerAuto,
			Priority: types.PriorityHigh, FailureReason: types.ReasonValidationFailed,
			StartedAt: &started, CompletedAt: &finished,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			AssetID: &asset.ID, BaseName: baseName,
			FromVersion: "1.0", ToVersion: "1.3",
			FromURL: "https://static.tildacdn.com/js/" + baseName + "-1.0.min.js",
			ToURL:   "https://static.tildacdn.com/js/" + baseName + "-1.3.min.js",
			Status:  types.MigrationStatusRolledBack, Trigger: types.MigrationTriggerAuto,
			Priority: types.PriorityHigh, FailureReason: types.ReasonActivateFailed,
			StartedAt: &started, CompletedAt: &finished, RolledBackAt: &finished,
			CreatedAt: now, UpdatedAt: now,
		},
	} {
		if _, err := h.migrations.Create(h.dbc, rec); err != nil {
			t.Fatalf("seed %s record: %v", rec.Status, err)
		}
	}

	for _, sev := range []string{types.SeverityCritical, types.SeverityMinor} {
		_, err := h.changes.Create(h.dbc, &types.Change{
			AssetID: asset.ID, BaseName: baseName,
			FromVersion: "1.0", ToVersion: "1.1",
			Severity: sev, DetectedAt: now,
		})
		if err != nil {
			t.Fatalf("seed %s change: %v", sev, err)
		}
	}
	return now
}

func TestRecomputeDay(t *testing.T) {
	h := newStatsHarness(t)
	day := seedRollupDay(t, h, "stats-widget")

	metric, err := h.svc.RecomputeDay(h.dbc, day)
	if err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}
	if metric.UpdatesFound != 4 || metric.Started != 3 {
		t.Fatalf("created/started = %d/%d, want 4/3", metric.UpdatesFound, metric.Started)
	}
	if metric.Completed != 1 || metric.Failed != 1 || metric.RolledBack != 1 {
		t.Fatalf("terminal counts = %d/%d/%d, want 1/1/1",
			metric.Completed, metric.Failed, metric.RolledBack)
	}
	if metric.AvgValidationMs != 100 || metric.AvgDurationMs != 1000 {
		t.Fatalf("averages = %d/%d, want 100/1000 from the completed record only",
			metric.AvgValidationMs, metric.AvgDurationMs)
	}
	if metric.ChangesDetected != 2 {
		t.Fatalf("ChangesDetected = %d, want 2", metric.ChangesDetected)
	}

	// Recomputing replaces the row in place rather than double counting.
	again, err := h.svc.RecomputeDay(h.dbc, day)
	if err != nil {
		t.Fatalf("RecomputeDay again: %v", err)
	}
	if again.UpdatesFound != metric.UpdatesFound || again.ChangesDetected != metric.ChangesDetected {
		t.Fatalf("recompute drifted: %+v vs %+v", again, metric)
	}
	stored, err := h.metrics.GetDay(h.dbc, day)
	if err != nil || stored == nil {
		t.Fatalf("GetDay: %v (%+v)", err, stored)
	}
	if stored.UpdatesFound != 4 {
		t.Fatalf("stored UpdatesFound = %d, want 4", stored.UpdatesFound)
	}
}

func TestSummary(t *testing.T) {
	h := newStatsHarness(t)
	day := seedRollupDay(t, h, "summary-widget")
	if _, err := h.svc.RecomputeDay(h.dbc, day); err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}

	sum, err := h.svc.Summary(h.dbc, 7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.PeriodDays != 7 {
		t.Fatalf("PeriodDays = %d", sum.PeriodDays)
	}
	if sum.UpdatesFound != 4 || sum.Started != 3 || sum.Completed != 1 || sum.Failed != 1 || sum.RolledBack != 1 {
		t.Fatalf("summary counts = %+v", sum)
	}
	if sum.AvgValidationMs != 100 || sum.AvgDurationMs != 1000 {
		t.Fatalf("summary averages = %d/%d", sum.AvgValidationMs, sum.AvgDurationMs)
	}
	if sum.BySeverity[types.SeverityCritical] != 1 || sum.BySeverity[types.SeverityMinor] != 1 {
		t.Fatalf("BySeverity = %+v", sum.BySeverity)
	}
	if sum.Pending != 1 {
		t.Fatalf("Pending = %d, want the one unscheduled record", sum.Pending)
	}

	// days <= 0 falls back to the default window instead of erroring.
	wide, err := h.svc.Summary(h.dbc, 0)
	if err != nil {
		t.Fatalf("Summary(0): %v", err)
	}
	if wide.PeriodDays != 30 {
		t.Fatalf("default PeriodDays = %d, want 30", wide.PeriodDays)
	}
}

func TestVersionHistory(t *testing.T) {
	h := newStatsHarness(t)
	ctx := h.dbc.Ctx

	active := testutil.SeedTrackedAsset(t, ctx, h.tx, "history-widget", "2.0")
	testutil.SeedArchivedVersion(t, ctx, h.tx, active.ID, "history-widget", "1.9")
	testutil.SeedArchivedVersion(t, ctx, h.tx, active.ID, "history-widget", "1.10")

	entries, err := h.svc.VersionHistory(h.dbc, "history-widget")
	if err != nil {
		t.Fatalf("VersionHistory: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	// Numeric segment order, not lexicographic: 1.10 outranks 1.9.
	want := []string{"2.0", "1.10", "1.9"}
	for i, v := range want {
		if entries[i].Version != v {
			t.Fatalf("entries[%d].Version = %q, want %q (%+v)", i, entries[i].Version, v, entries)
		}
	}
	if !entries[0].Active || entries[0].ArchivedAt != nil {
		t.Fatalf("head entry should be the live version: %+v", entries[0])
	}
	for _, e := range entries[1:] {
		if e.Active || e.ArchivedAt == nil {
			t.Fatalf("archived entry malformed: %+v", e)
		}
		if e.Size == 0 {
			t.Fatalf("archived entry lost its snapshot size: %+v", e)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	h := newStatsHarness(t)
	ctx := h.dbc.Ctx
	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "queue-widget", "1.0")
	rec := testutil.SeedMigrationRecord(t, ctx, h.tx, asset.ID, "queue-widget", types.MigrationStatusPending)
	testutil.SeedMigrationRecord(t, ctx, h.tx, asset.ID, "queue-widget", types.MigrationStatusCompleted)

	pending, err := h.svc.PendingMigrations(h.dbc)
	if err != nil {
		t.Fatalf("PendingMigrations: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != rec.ID {
		t.Fatalf("pending = %+v, want only %s", pending, rec.ID)
	}
}
