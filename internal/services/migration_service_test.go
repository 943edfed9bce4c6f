package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/data/repos/testutil"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/fetch"
	"github.com/yungbote/assetwatch-backend/internal/notify"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

// scriptedFetcher records every fetched URL and answers with fn, or with a
// small valid payload when fn is nil.
type scriptedFetcher struct {
	mu   sync.Mutex
	urls []string
	fn   func(url string) (*fetch.Result, error)
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(url)
	}
	content := "function boot() { return 1; }\n"
	return &fetch.Result{URL: url, StatusCode: 200, Content: content, Size: len(content)}, nil
}

func (f *scriptedFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}

// flakyAssets fails the next n ActivateExclusive calls, then delegates.
type flakyAssets struct {
	repos.TrackedAssetRepo
	mu       sync.Mutex
	failures int
}

func (f *flakyAssets) ActivateExclusive(dbc dbctx.Context, baseName string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("simulated storage fault")
	}
	return f.TrackedAssetRepo.ActivateExclusive(dbc, baseName, id)
}

type migrationHarness struct {
	svc        MigrationService
	fetcher    *scriptedFetcher
	assets     repos.TrackedAssetRepo
	archives   repos.ArchivedVersionRepo
	candidates repos.CandidateAssetRepo
	migrations repos.MigrationRecordRepo
	metrics    repos.MigrationMetricRepo
	tx         *gorm.DB
	dbc        dbctx.Context
}

// newMigrationHarness wires the orchestrator against tx-backed repos so every
// write rolls back with the test.
func newMigrationHarness(t *testing.T, wrapAssets func(repos.TrackedAssetRepo) repos.TrackedAssetRepo) *migrationHarness {
	t.Helper()
	t.Setenv("MIGRATION_BATCH_PAUSE", "1ms")

	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	assets := repos.NewTrackedAssetRepo(tx, log)
	if wrapAssets != nil {
		assets = wrapAssets(assets)
	}
	archives := repos.NewArchivedVersionRepo(tx, log)
	candidates := repos.NewCandidateAssetRepo(tx, log)
	migrations := repos.NewMigrationRecordRepo(tx, log)
	metrics := repos.NewMigrationMetricRepo(tx, log)
	changes := repos.NewChangeRepo(tx, log)
	logs := repos.NewNotificationLogRepo(tx, log)

	notifier := NewNotifier(log, notify.NewLogPublisher(log), logs, changes, migrations)
	stats := NewStatsService(tx, log, assets, archives, changes, migrations, metrics)
	fetcher := &scriptedFetcher{}
	svc := NewMigrationService(tx, log, fetcher, assets, archives, candidates, migrations, notifier, stats)

	return &migrationHarness{
		svc:        svc,
		fetcher:    fetcher,
		assets:     assets,
		archives:   archives,
		candidates: candidates,
		migrations: migrations,
		metrics:    metrics,
		tx:         tx,
		dbc:        dbctx.Context{Ctx: context.Background(), Tx: tx},
	}
}

func updateFor(asset *types.TrackedAsset, newVersion string) Update {
	return Update{
		AssetID:        asset.ID,
		BaseName:       asset.BaseName,
		CurrentVersion: asset.Version,
		CurrentURL:     asset.URL,
		NewVersion:     newVersion,
		NewURL:         fmt.Sprintf("https://static.tildacdn.com/js/%s-%s.min.js", asset.BaseName, newVersion),
		Priority:       asset.Priority,
		Category:       asset.Category,
		FileKind:       asset.FileKind,
		Domain:         asset.Domain,
	}
}

func TestMigrateCompletes(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "cart-engine", "1.0")
	upd := updateFor(asset, "1.1")

	rec, err := h.svc.Migrate(ctx, upd, types.MigrationTriggerManual, true)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rec.Status != types.MigrationStatusCompleted {
		t.Fatalf("status = %s (reason %s, error %s), want completed", rec.Status, rec.FailureReason, rec.Error)
	}
	if rec.StartedAt == nil || rec.ValidatedAt == nil || rec.CompletedAt == nil {
		t.Fatalf("timestamps missing: %+v", rec)
	}
	if rec.Trigger != types.MigrationTriggerManual {
		t.Fatalf("trigger = %s, want manual", rec.Trigger)
	}

	active, err := h.assets.GetActiveByBaseName(h.dbc, "cart-engine")
	if err != nil || active == nil {
		t.Fatalf("GetActiveByBaseName: %v", err)
	}
	if active.URL != upd.NewURL || active.Version != "1.1" {
		t.Fatalf("active asset not swapped: %+v", active)
	}

	archived, err := h.archives.GetByBaseAndVersion(h.dbc, "cart-engine", "1.0")
	if err != nil || archived == nil {
		t.Fatalf("old version should be archived: %v", err)
	}
	if rec.ArchivedVersionID == nil || *rec.ArchivedVersionID != archived.ID {
		t.Fatalf("record should point at the archive: %+v", rec.ArchivedVersionID)
	}
	if archived.Content != asset.Content || archived.ContentHash != asset.ContentHash {
		t.Fatalf("archive should snapshot the old content")
	}

	old, err := h.assets.GetByID(h.dbc, asset.ID)
	if err != nil || old == nil {
		t.Fatalf("GetByID old asset: %v", err)
	}
	if old.Active {
		t.Fatalf("old asset should be inactive after migration")
	}

	metric, err := h.metrics.GetDay(h.dbc, time.Now().UTC())
	if err != nil || metric == nil {
		t.Fatalf("daily metric should be recomputed: %v", err)
	}
	if metric.Completed < 1 {
		t.Fatalf("metric.Completed = %d, want >= 1", metric.Completed)
	}
}

func TestMigratePromotesCandidate(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "form-logic", "2.0")
	upd := updateFor(asset, "2.1")

	cand, err := h.candidates.UpsertSighting(h.dbc, &types.CandidateAsset{
		URL:      upd.NewURL,
		BaseName: "form-logic",
		Version:  "2.1",
	})
	if err != nil {
		t.Fatalf("UpsertSighting: %v", err)
	}
	upd.CandidateID = cand.ID

	rec, err := h.svc.Migrate(ctx, upd, types.MigrationTriggerAuto, true)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rec.Status != types.MigrationStatusCompleted {
		t.Fatalf("status = %s, want completed", rec.Status)
	}

	got, err := h.candidates.GetByURL(h.dbc, upd.NewURL)
	if err != nil || got == nil {
		t.Fatalf("GetByURL: %v", err)
	}
	if got.Status != types.CandidateStatusPromoted {
		t.Fatalf("candidate status = %s, want promoted", got.Status)
	}
	if got.PromotedAt == nil {
		t.Fatalf("candidate should carry a promotion timestamp")
	}
}

func TestMigrateValidationFailures(t *testing.T) {
	cases := []struct {
		name   string
		fn     func(url string) (*fetch.Result, error)
		reason string
	}{
		{
			name: "not found",
			fn: func(url string) (*fetch.Result, error) {
				return nil, fmt.Errorf("%w: %s", fetch.ErrNotFound, url)
			},
			reason: types.ReasonNotFound,
		},
		{
			name: "timeout",
			fn: func(url string) (*fetch.Result, error) {
				return nil, errors.Join(fetch.ErrTimeout, errors.New("deadline exceeded"))
			},
			reason: types.ReasonTimeout,
		},
		{
			name: "network",
			fn: func(url string) (*fetch.Result, error) {
				return nil, errors.Join(fetch.ErrNetwork, errors.New("connection refused"))
			},
			reason: types.ReasonNetwork,
		},
		{
			name: "http error falls back to family code",
			fn: func(url string) (*fetch.Result, error) {
				return nil, &fetch.HTTPError{StatusCode: 403, URL: url}
			},
			reason: types.ReasonValidationFailed,
		},
		{
			name: "empty content",
			fn: func(url string) (*fetch.Result, error) {
				return &fetch.Result{URL: url, StatusCode: 200, Content: "x", Size: 1}, nil
			},
			reason: types.ReasonEmpty,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newMigrationHarness(t, nil)
			ctx := context.Background()

			asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "gallery-kit", "3.0")
			h.fetcher.fn = tc.fn

			rec, err := h.svc.Migrate(ctx, updateFor(asset, "3.1"), types.MigrationTriggerAuto, true)
			if err != nil {
				t.Fatalf("Migrate: %v", err)
			}
			if rec.Status != types.MigrationStatusFailed {
				t.Fatalf("status = %s, want failed", rec.Status)
			}
			if rec.FailureReason != tc.reason {
				t.Fatalf("failure_reason = %s, want %s", rec.FailureReason, tc.reason)
			}
			if rec.Error == "" || rec.CompletedAt == nil {
				t.Fatalf("terminal failure should carry error and completed_at: %+v", rec)
			}

			// Validation failures must leave the asset untouched.
			active, err := h.assets.GetActiveByBaseName(h.dbc, "gallery-kit")
			if err != nil || active == nil {
				t.Fatalf("GetActiveByBaseName: %v", err)
			}
			if active.ID != asset.ID || !active.Active || active.Version != "3.0" {
				t.Fatalf("active asset should be unchanged: %+v", active)
			}
			archived, err := h.archives.GetByBaseAndVersion(h.dbc, "gallery-kit", "3.0")
			if err != nil {
				t.Fatalf("GetByBaseAndVersion: %v", err)
			}
			if archived != nil {
				t.Fatalf("no archive should exist after a validation failure")
			}
		})
	}
}

func TestMigrateDefersByPriority(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "zero-block", "1.0")
	upd := updateFor(asset, "1.1")
	upd.Priority = types.PriorityLow

	before := time.Now().UTC()
	rec, err := h.svc.Migrate(ctx, upd, types.MigrationTriggerAuto, false)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rec.Status != types.MigrationStatusPending {
		t.Fatalf("status = %s, want pending", rec.Status)
	}
	if rec.ScheduledFor == nil {
		t.Fatalf("low priority should be scheduled, not executed")
	}
	wait := rec.ScheduledFor.Sub(before)
	if wait < 167*time.Hour || wait > 169*time.Hour {
		t.Fatalf("low tier should wait about a week, got %v", wait)
	}
	if len(h.fetcher.fetched()) != 0 {
		t.Fatalf("deferred migration must not touch the network")
	}

	// Re-proposing the same update reuses the open record.
	again, err := h.svc.Migrate(ctx, upd, types.MigrationTriggerAuto, false)
	if err != nil {
		t.Fatalf("Migrate repeat: %v", err)
	}
	if again.ID != rec.ID {
		t.Fatalf("re-proposed update should reuse record %s, got %s", rec.ID, again.ID)
	}

	// Not due yet.
	stats, err := h.svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}
	if stats.Successful+stats.Failed != 0 {
		t.Fatalf("nothing should be due: %+v", stats)
	}
}

func TestRunDueExecutesElapsedSchedules(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "slider-core", "1.0")
	upd := updateFor(asset, "1.1")
	upd.Priority = types.PriorityLow

	rec, err := h.svc.Migrate(ctx, upd, types.MigrationTriggerAuto, false)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	if err := h.migrations.UpdateFields(h.dbc, rec.ID, map[string]interface{}{"scheduled_for": past}); err != nil {
		t.Fatalf("backdate schedule: %v", err)
	}

	stats, err := h.svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}
	if stats.Successful != 1 || stats.Failed != 0 {
		t.Fatalf("RunDue stats = %+v, want 1 successful", stats)
	}

	got, err := h.migrations.GetByID(h.dbc, rec.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.MigrationStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	active, err := h.assets.GetActiveByBaseName(h.dbc, "slider-core")
	if err != nil || active == nil || active.Version != "1.1" {
		t.Fatalf("active version should be 1.1: %+v err=%v", active, err)
	}
}

func TestMigrateSupersededRecordFails(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "menu-burger", "2.0")
	upd := updateFor(asset, "1.5")
	upd.CurrentVersion = "1.0"

	rec, err := h.svc.Migrate(ctx, upd, types.MigrationTriggerAuto, true)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rec.Status != types.MigrationStatusFailed {
		t.Fatalf("status = %s, want failed", rec.Status)
	}
	if rec.FailureReason != types.ReasonValidationFailed || !strings.Contains(rec.Error, "superseded") {
		t.Fatalf("overtaken record should fail as superseded: reason=%s error=%s", rec.FailureReason, rec.Error)
	}
	if len(h.fetcher.fetched()) != 0 {
		t.Fatalf("superseded record must not be validated against the network")
	}
	active, err := h.assets.GetActiveByBaseName(h.dbc, "menu-burger")
	if err != nil || active == nil || active.Version != "2.0" {
		t.Fatalf("active version must stay 2.0: %+v err=%v", active, err)
	}
}

func TestMigrateActivateFailureRestoresPrevious(t *testing.T) {
	h := newMigrationHarness(t, func(inner repos.TrackedAssetRepo) repos.TrackedAssetRepo {
		return &flakyAssets{TrackedAssetRepo: inner, failures: 1}
	})
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "review-feed", "1.0")

	rec, err := h.svc.Migrate(ctx, updateFor(asset, "1.1"), types.MigrationTriggerAuto, true)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rec.Status != types.MigrationStatusRolledBack {
		t.Fatalf("status = %s, want rolled_back after auto-restore", rec.Status)
	}
	if rec.FailureReason != types.ReasonActivateFailed {
		t.Fatalf("failure_reason = %s, want ACTIVATE_FAILED preserved", rec.FailureReason)
	}
	if rec.RolledBackAt == nil {
		t.Fatalf("rolled_back_at should be set")
	}

	active, err := h.assets.GetActiveByBaseName(h.dbc, "review-feed")
	if err != nil || active == nil {
		t.Fatalf("GetActiveByBaseName: %v", err)
	}
	if active.ID != asset.ID || active.Version != "1.0" {
		t.Fatalf("previous version should be active again: %+v", active)
	}
}

func TestMigrateRollbackIncompleteLeavesZeroActive(t *testing.T) {
	h := newMigrationHarness(t, func(inner repos.TrackedAssetRepo) repos.TrackedAssetRepo {
		return &flakyAssets{TrackedAssetRepo: inner, failures: 2}
	})
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "tariff-table", "1.0")

	rec, err := h.svc.Migrate(ctx, updateFor(asset, "1.1"), types.MigrationTriggerAuto, true)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rec.Status != types.MigrationStatusFailed {
		t.Fatalf("status = %s, want failed", rec.Status)
	}
	if rec.FailureReason != types.ReasonRollbackIncomplete {
		t.Fatalf("failure_reason = %s, want ROLLBACK_INCOMPLETE", rec.FailureReason)
	}
	if !strings.Contains(rec.Error, "restore:") {
		t.Fatalf("error should carry both faults: %s", rec.Error)
	}

	// Degraded but legal: zero actives, never two.
	active, err := h.assets.GetActiveByBaseName(h.dbc, "tariff-table")
	if err != nil {
		t.Fatalf("GetActiveByBaseName: %v", err)
	}
	if active != nil {
		t.Fatalf("no version should be active after an incomplete rollback, got %+v", active)
	}
}

func TestMigrateBatchOrdersByUrgency(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	low := testutil.SeedTrackedAsset(t, ctx, h.tx, "footer-links", "1.0")
	critical := testutil.SeedTrackedAsset(t, ctx, h.tx, "checkout-pay", "1.0")
	high := testutil.SeedTrackedAsset(t, ctx, h.tx, "lead-form", "1.0")

	updLow := updateFor(low, "1.1")
	updLow.Priority = types.PriorityLow
	updCritical := updateFor(critical, "1.1")
	updCritical.Priority = types.PriorityCritical
	updHigh := updateFor(high, "1.1")
	updHigh.Priority = types.PriorityHigh

	stats, err := h.svc.MigrateBatch(ctx, []Update{updLow, updCritical, updHigh}, types.MigrationTriggerManual, true)
	if err != nil {
		t.Fatalf("MigrateBatch: %v", err)
	}
	if stats.Successful != 3 || stats.Failed != 0 || stats.Deferred != 0 {
		t.Fatalf("stats = %+v, want 3 successful", stats)
	}

	urls := h.fetcher.fetched()
	want := []string{updCritical.NewURL, updHigh.NewURL, updLow.NewURL}
	if len(urls) != len(want) {
		t.Fatalf("fetched %d urls, want %d", len(urls), len(want))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("execution order[%d] = %s, want %s", i, urls[i], want[i])
		}
	}
}

func TestMigrateBatchDefersSlowTiers(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	low := testutil.SeedTrackedAsset(t, ctx, h.tx, "promo-strip", "1.0")
	critical := testutil.SeedTrackedAsset(t, ctx, h.tx, "auth-widget", "1.0")

	updLow := updateFor(low, "1.1")
	updLow.Priority = types.PriorityLow
	updCritical := updateFor(critical, "1.1")
	updCritical.Priority = types.PriorityCritical

	stats, err := h.svc.MigrateBatch(ctx, []Update{updLow, updCritical}, types.MigrationTriggerAuto, false)
	if err != nil {
		t.Fatalf("MigrateBatch: %v", err)
	}
	if stats.Successful != 1 || stats.Deferred != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want critical executed and low deferred", stats)
	}
	if urls := h.fetcher.fetched(); len(urls) != 1 || urls[0] != updCritical.NewURL {
		t.Fatalf("only the critical update should hit the network: %v", urls)
	}
}

func TestRollbackManual(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "pay-widget", "1.1")
	archived := testutil.SeedArchivedVersion(t, ctx, h.tx, asset.ID, "pay-widget", "1.0")

	// Archived locator is gone from the origin: the stored snapshot must be
	// used instead of failing.
	h.fetcher.fn = func(url string) (*fetch.Result, error) {
		return nil, errors.Join(fetch.ErrNetwork, errors.New("origin unreachable"))
	}

	rec, err := h.svc.Rollback(ctx, "pay-widget", "1.0")
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if rec.Status != types.MigrationStatusRolledBack || rec.Trigger != types.MigrationTriggerRollback {
		t.Fatalf("record = %+v, want rolled_back/rollback", rec)
	}
	if rec.FromVersion != "1.1" || rec.ToVersion != "1.0" {
		t.Fatalf("versions = %s -> %s, want 1.1 -> 1.0", rec.FromVersion, rec.ToVersion)
	}
	if rec.RolledBackAt == nil || rec.CompletedAt == nil {
		t.Fatalf("terminal timestamps missing: %+v", rec)
	}

	active, err := h.assets.GetActiveByBaseName(h.dbc, "pay-widget")
	if err != nil || active == nil {
		t.Fatalf("GetActiveByBaseName: %v", err)
	}
	if active.URL != archived.URL || active.Version != "1.0" {
		t.Fatalf("active should be the restored version: %+v", active)
	}
	if active.Content != archived.Content {
		t.Fatalf("restored content should come from the snapshot")
	}

	// The replaced 1.1 must itself be archived for a future roll-forward.
	replaced, err := h.archives.GetByBaseAndVersion(h.dbc, "pay-widget", "1.1")
	if err != nil || replaced == nil {
		t.Fatalf("replaced version should be archived: %v", err)
	}
	if rec.ArchivedVersionID == nil || *rec.ArchivedVersionID != replaced.ID {
		t.Fatalf("record should point at the new archive")
	}
}

func TestRollbackRejectsBadTargets(t *testing.T) {
	h := newMigrationHarness(t, nil)
	ctx := context.Background()

	asset := testutil.SeedTrackedAsset(t, ctx, h.tx, "map-embed", "1.1")
	testutil.SeedArchivedVersion(t, ctx, h.tx, asset.ID, "map-embed", "1.1")

	if _, err := h.svc.Rollback(ctx, "map-embed", "9.9"); err == nil {
		t.Fatalf("rollback to a version never archived should fail")
	}
	if _, err := h.svc.Rollback(ctx, "map-embed", "1.1"); err == nil {
		t.Fatalf("rollback to the already-active version should fail")
	}
	if _, err := h.svc.Rollback(ctx, "", "1.0"); err == nil {
		t.Fatalf("rollback without a base name should fail")
	}
}
