package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/assetwatch-backend/internal/http/response"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/services"
)

type StatsHandler struct {
	stats services.StatsService
}

func NewStatsHandler(stats services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GET /api/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	days := intQuery(c, "days", 7)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	summary, err := h.stats.Summary(dbc, days)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": summary})
}
