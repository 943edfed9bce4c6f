package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/db"
	"github.com/yungbote/assetwatch-backend/internal/observability"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	metrics *observability.Metrics
}

func New() (*App, error) {
	log, err := logger.New(envutil.Str("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	var metrics *observability.Metrics
	if observability.Enabled() {
		metrics = observability.Init(log)
	}

	handlerset := wireHandlers(log, reposet, serviceset)
	router := wireRouter(handlerset, log, metrics, cfg.OtelEnabled)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		metrics:  metrics,
	}, nil
}

// Run blocks until ctx is cancelled or the HTTP server fails. Background
// work (scheduler, metric collectors) is tied to ctx and winds down with it.
func (a *App) Run(ctx context.Context) error {
	otelShutdown := observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "assetwatch",
		Environment: a.Cfg.Env,
	})

	if a.Cfg.SeedOnStart {
		sum, err := a.Services.Seeder.SeedIfEmpty(ctx, a.Cfg.WatchlistPath)
		if err != nil {
			a.Log.Warn("watchlist seeding failed", "error", err)
		} else if sum.Created > 0 {
			a.Log.Info("watchlist seeded",
				"groups", sum.Groups,
				"created", sum.Created,
				"skipped", sum.Skipped)
		}
	}

	if a.metrics != nil {
		a.metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.metrics.StartMigrationQueueCollector(ctx, a.Log, a.DB)
		if a.Cfg.RedisAddr != "" {
			a.metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
		}
		a.metrics.StartSLOEvaluator(ctx, a.Log)
	}

	if a.Cfg.RunScheduler {
		a.Services.Scheduler.Start(ctx)
	}

	srv := &http.Server{
		Addr:              a.Cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.Log.Info("http server listening", "addr", a.Cfg.HTTPAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if otelShutdown != nil {
			_ = otelShutdown(shutdownCtx)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Stop()
	}
	if a.Services.Publisher != nil {
		_ = a.Services.Publisher.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
