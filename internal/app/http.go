package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/assetwatch-backend/internal/http"
	httpH "github.com/yungbote/assetwatch-backend/internal/http/handlers"
	"github.com/yungbote/assetwatch-backend/internal/observability"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Asset     *httpH.AssetHandler
	Change    *httpH.ChangeHandler
	Migration *httpH.MigrationHandler
	Candidate *httpH.CandidateHandler
	Stats     *httpH.StatsHandler
	Ops       *httpH.OpsHandler
}

func wireHandlers(log *logger.Logger, r Repos, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Asset:     httpH.NewAssetHandler(r.Assets, s.Stats),
		Change:    httpH.NewChangeHandler(r.Changes),
		Migration: httpH.NewMigrationHandler(r.Migrations),
		Candidate: httpH.NewCandidateHandler(r.Candidates),
		Stats:     httpH.NewStatsHandler(s.Stats),
		Ops:       httpH.NewOpsHandler(s.Monitor, s.Discovery, s.Finder, s.Migration),
	}
}

func wireRouter(handlers Handlers, log *logger.Logger, metrics *observability.Metrics, otel bool) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		HealthHandler:    handlers.Health,
		AssetHandler:     handlers.Asset,
		ChangeHandler:    handlers.Change,
		MigrationHandler: handlers.Migration,
		CandidateHandler: handlers.Candidate,
		StatsHandler:     handlers.Stats,
		OpsHandler:       handlers.Ops,
		Log:              log,
		Metrics:          metrics,
		Otel:             otel,
	})
}
