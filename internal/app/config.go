package app

import (
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type Config struct {
	Env           string
	HTTPAddr      string
	MetricsAddr   string
	RedisAddr     string
	WatchlistPath string
	SeedOnStart   bool
	RunScheduler  bool
	OtelEnabled   bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:           envutil.Str("LOG_MODE", "development"),
		HTTPAddr:      envutil.Str("HTTP_ADDR", ":8080"),
		MetricsAddr:   envutil.Str("METRICS_ADDR", ":9090"),
		RedisAddr:     envutil.Str("REDIS_ADDR", ""),
		WatchlistPath: envutil.Str("WATCHLIST_PATH", "configs/watchlist.yaml"),
		SeedOnStart:   envutil.Bool("SEED_ON_START", true),
		RunScheduler:  envutil.Bool("RUN_SCHEDULER", true),
		OtelEnabled:   envutil.Bool("OTEL_ENABLED", false),
	}
	log.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"watchlist", cfg.WatchlistPath,
		"seed_on_start", cfg.SeedOnStart,
		"run_scheduler", cfg.RunScheduler)
	return cfg
}
