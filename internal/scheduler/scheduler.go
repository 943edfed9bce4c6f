package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
	"github.com/yungbote/assetwatch-backend/internal/services"
)

// Scheduler drives the recurring cycles: hourly content checks plus due
// migrations, a daily failure sweep, and a weekly discovery pass followed by
// auto-migration. Jobs never overlap themselves; a tick that lands while the
// previous run is still in flight is skipped.
type Scheduler interface {
	Start(ctx context.Context)
	Stop()
}

type scheduler struct {
	log        *logger.Logger
	monitor    services.MonitorService
	discovery  services.DiscoveryService
	finder     services.UpdateFinder
	migrations services.MigrationService
	failures   services.FailureTracker

	checkSpec    string
	sweepSpec    string
	discoverSpec string

	cron *cron.Cron

	checkRunning    int32
	sweepRunning    int32
	discoverRunning int32
}

func New(
	baseLog *logger.Logger,
	monitor services.MonitorService,
	discovery services.DiscoveryService,
	finder services.UpdateFinder,
	migrations services.MigrationService,
	failures services.FailureTracker,
) Scheduler {
	return &scheduler{
		log:          baseLog.With("service", "Scheduler"),
		monitor:      monitor,
		discovery:    discovery,
		finder:       finder,
		migrations:   migrations,
		failures:     failures,
		checkSpec:    envutil.Str("SCHEDULE_CHECK_CRON", "0 * * * *"),
		sweepSpec:    envutil.Str("SCHEDULE_SWEEP_CRON", "0 8 * * *"),
		discoverSpec: envutil.Str("SCHEDULE_DISCOVER_CRON", "0 9 * * 1"),
	}
}

func (s *scheduler) Start(ctx context.Context) {
	if s.cron != nil {
		return
	}
	c := cron.New()

	if _, err := c.AddFunc(s.checkSpec, func() { s.runCheck(ctx) }); err != nil {
		s.log.Error("register check job failed", "spec", s.checkSpec, "error", err)
	}
	if _, err := c.AddFunc(s.sweepSpec, func() { s.runSweep(ctx) }); err != nil {
		s.log.Error("register sweep job failed", "spec", s.sweepSpec, "error", err)
	}
	if _, err := c.AddFunc(s.discoverSpec, func() { s.runDiscover(ctx) }); err != nil {
		s.log.Error("register discover job failed", "spec", s.discoverSpec, "error", err)
	}

	c.Start()
	s.cron = c
	s.log.Info("scheduler started",
		"check", s.checkSpec,
		"sweep", s.sweepSpec,
		"discover", s.discoverSpec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

func (s *scheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.cron = nil
	s.log.Info("scheduler stopped")
}

// runCheck fetches every active asset and then executes any queued
// migrations whose delay has elapsed.
func (s *scheduler) runCheck(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.checkRunning, 0, 1) {
		s.log.Warn("check cycle still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.checkRunning, 0)

	summary, err := s.monitor.CheckAll(ctx)
	if err != nil {
		s.log.Error("check cycle failed", "error", err)
	} else {
		s.log.Info("check cycle done",
			"checked", summary.Checked,
			"changed", summary.Changed,
			"baselines", summary.Baselines,
			"failed", summary.Failed)
	}

	stats, err := s.migrations.RunDue(ctx)
	if err != nil {
		s.log.Error("due migrations failed", "error", err)
		return
	}
	if stats.Successful+stats.Failed+stats.Deferred > 0 {
		s.log.Info("due migrations done",
			"successful", stats.Successful,
			"failed", stats.Failed,
			"deferred", stats.Deferred)
	}
}

// runSweep checks the failure ledger and triggers an out-of-cycle discovery
// scan when assets have crossed the failure threshold, on the theory that a
// dead locator often means the CDN moved to a new version.
func (s *scheduler) runSweep(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.sweepRunning, 0, 1) {
		s.log.Warn("failure sweep still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.sweepRunning, 0)

	dbc := dbctx.Context{Ctx: ctx}
	failing, err := s.failures.AssetsOverThreshold(dbc)
	if err != nil {
		s.log.Error("failure sweep query failed", "error", err)
		return
	}
	if len(failing) == 0 {
		s.log.Info("failure sweep clean")
		return
	}
	s.log.Warn("assets over failure threshold",
		"count", len(failing),
		"threshold", s.failures.Threshold())

	summary, err := s.discovery.Scan(ctx)
	if err != nil {
		s.log.Error("sweep discovery failed", "error", err)
		return
	}
	s.log.Info("sweep discovery done", "found", summary.Found, "new", summary.New)
}

// runDiscover performs the weekly discovery pass and immediately migrates
// whatever updates it surfaced.
func (s *scheduler) runDiscover(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.discoverRunning, 0, 1) {
		s.log.Warn("discovery cycle still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.discoverRunning, 0)

	summary, err := s.discovery.Scan(ctx)
	if err != nil {
		s.log.Error("discovery cycle failed", "error", err)
		return
	}
	s.log.Info("discovery cycle done",
		"pages", summary.Pages,
		"found", summary.Found,
		"recorded", summary.Recorded,
		"new", summary.New)

	dbc := dbctx.Context{Ctx: ctx}
	updates, err := s.finder.FindUpdates(dbc)
	if err != nil {
		s.log.Error("update cross-reference failed", "error", err)
		return
	}
	if len(updates) == 0 {
		return
	}
	stats, err := s.migrations.MigrateBatch(ctx, updates, types.MigrationTriggerAuto, false)
	if err != nil {
		s.log.Error("auto migration batch failed", "error", err)
		return
	}
	s.log.Info("auto migration batch done",
		"updates", len(updates),
		"successful", stats.Successful,
		"failed", stats.Failed,
		"deferred", stats.Deferred)
}
