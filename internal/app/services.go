package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/fetch"
	"github.com/yungbote/assetwatch-backend/internal/notify"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
	"github.com/yungbote/assetwatch-backend/internal/platform/watchlist"
	"github.com/yungbote/assetwatch-backend/internal/scheduler"
	"github.com/yungbote/assetwatch-backend/internal/services"
)

type Services struct {
	Fetcher   fetch.Fetcher
	Publisher notify.Publisher

	Notifier  services.Notifier
	Failures  services.FailureTracker
	Stats     services.StatsService
	Monitor   services.MonitorService
	Discovery services.DiscoveryService
	Finder    services.UpdateFinder
	Migration services.MigrationService
	Seeder    services.SeedService

	Scheduler scheduler.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	fetcher := fetch.NewFetcher(log)

	pub, err := notify.NewPublisher(log)
	if err != nil {
		return Services{}, err
	}
	notifier := services.NewNotifier(log, pub, r.Notifications, r.Changes, r.Migrations)

	failures := services.NewFailureTracker(db, log, r.Assets)
	stats := services.NewStatsService(db, log, r.Assets, r.Archives, r.Changes, r.Migrations, r.Metrics)
	monitor := services.NewMonitorService(db, log, fetcher, r.Assets, r.Changes, failures, notifier)

	// Discovery filters and entry pages come from the watchlist file; a
	// missing file just means discovery has nothing to scan until the
	// operator provides one.
	var pages, domains []string
	if wl, err := watchlist.Load(cfg.WatchlistPath); err != nil {
		log.Warn("watchlist not loaded, discovery starts idle",
			"path", cfg.WatchlistPath, "error", err)
	} else {
		pages = wl.Pages
		domains = wl.Domains
	}
	discovery := services.NewDiscoveryService(db, log, fetcher, r.Assets, r.Candidates, notifier, pages, domains)

	finder := services.NewUpdateFinder(db, log, r.Assets, r.Candidates)
	migration := services.NewMigrationService(db, log, fetcher, r.Assets, r.Archives, r.Candidates, r.Migrations, notifier, stats)
	seeder := services.NewSeedService(db, log, r.Assets)

	sched := scheduler.New(log, monitor, discovery, finder, migration, failures)

	return Services{
		Fetcher:   fetcher,
		Publisher: pub,
		Notifier:  notifier,
		Failures:  failures,
		Stats:     stats,
		Monitor:   monitor,
		Discovery: discovery,
		Finder:    finder,
		Migration: migration,
		Seeder:    seeder,
		Scheduler: sched,
	}, nil
}
