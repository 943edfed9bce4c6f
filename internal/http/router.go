package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/assetwatch-backend/internal/http/handlers"
	httpMW "github.com/yungbote/assetwatch-backend/internal/http/middleware"
	"github.com/yungbote/assetwatch-backend/internal/observability"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type RouterConfig struct {
	AssetHandler     *httpH.AssetHandler
	ChangeHandler    *httpH.ChangeHandler
	MigrationHandler *httpH.MigrationHandler
	CandidateHandler *httpH.CandidateHandler
	StatsHandler     *httpH.StatsHandler
	OpsHandler       *httpH.OpsHandler

	HealthHandler *httpH.HealthHandler

	Log     *logger.Logger
	Metrics *observability.Metrics
	Otel    bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Otel {
		r.Use(otelgin.Middleware("assetwatch"))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Tracked assets
		if cfg.AssetHandler != nil {
			api.GET("/assets", cfg.AssetHandler.ListAssets)
			api.GET("/assets/:base_name", cfg.AssetHandler.GetAssetHistory)
		}

		// Changes
		if cfg.ChangeHandler != nil {
			api.GET("/changes", cfg.ChangeHandler.ListChanges)
		}

		// Migrations
		if cfg.MigrationHandler != nil {
			api.GET("/migrations", cfg.MigrationHandler.ListMigrations)
			api.GET("/migrations/:id", cfg.MigrationHandler.GetMigration)
		}

		// Discovery candidates
		if cfg.CandidateHandler != nil {
			api.GET("/candidates", cfg.CandidateHandler.ListCandidates)
		}

		// Stats
		if cfg.StatsHandler != nil {
			api.GET("/stats", cfg.StatsHandler.GetStats)
		}

		// Operational triggers
		if cfg.OpsHandler != nil {
			api.POST("/ops/check", cfg.OpsHandler.RunCheck)
			api.POST("/ops/discover", cfg.OpsHandler.RunDiscovery)
			api.POST("/ops/migrate", cfg.OpsHandler.RunMigrations)
			api.POST("/ops/rollback", cfg.OpsHandler.RunRollback)
		}
	}

	return r
}
