package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/http/response"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/services"
)

type AssetHandler struct {
	assets repos.TrackedAssetRepo
	stats  services.StatsService
}

func NewAssetHandler(assets repos.TrackedAssetRepo, stats services.StatsService) *AssetHandler {
	return &AssetHandler{assets: assets, stats: stats}
}

// GET /api/assets
func (h *AssetHandler) ListAssets(c *gin.Context) {
	category := c.Query("category")
	priority := c.Query("priority")

	var active *bool
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_active_filter", err)
			return
		}
		active = &v
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	assets, err := h.assets.List(dbc, category, priority, active, limit, offset)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_assets_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"assets": assets, "count": len(assets)})
}

// GET /api/assets/:base_name
func (h *AssetHandler) GetAssetHistory(c *gin.Context) {
	baseName := c.Param("base_name")

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	history, err := h.stats.VersionHistory(dbc, baseName)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "version_history_failed", err)
		return
	}
	if len(history) == 0 {
		response.RespondError(c, http.StatusNotFound, "asset_not_found", fmt.Errorf("no versions tracked for %q", baseName))
		return
	}
	response.RespondOK(c, gin.H{"base_name": baseName, "versions": history})
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
