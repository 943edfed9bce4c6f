package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/http/response"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/services"
)

// OpsHandler exposes the operational triggers the scheduler runs on its own
// cadence, so an operator can force a cycle without waiting for cron.
type OpsHandler struct {
	monitor    services.MonitorService
	discovery  services.DiscoveryService
	finder     services.UpdateFinder
	migrations services.MigrationService
}

func NewOpsHandler(monitor services.MonitorService, discovery services.DiscoveryService, finder services.UpdateFinder, migrations services.MigrationService) *OpsHandler {
	return &OpsHandler{
		monitor:    monitor,
		discovery:  discovery,
		finder:     finder,
		migrations: migrations,
	}
}

// POST /api/ops/check
func (h *OpsHandler) RunCheck(c *gin.Context) {
	summary, err := h.monitor.CheckAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "check_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}

// POST /api/ops/discover
func (h *OpsHandler) RunDiscovery(c *gin.Context) {
	summary, err := h.discovery.Scan(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "discovery_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}

type migrateReq struct {
	BaseName string `json:"base_name"`
	Force    bool   `json:"force"`
}

// POST /api/ops/migrate
func (h *OpsHandler) RunMigrations(c *gin.Context) {
	var req migrateReq
	_ = c.ShouldBindJSON(&req)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	updates, err := h.finder.FindUpdates(dbc)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "find_updates_failed", err)
		return
	}

	if req.BaseName != "" {
		for _, upd := range updates {
			if upd.BaseName != req.BaseName {
				continue
			}
			rec, err := h.migrations.Migrate(c.Request.Context(), upd, types.MigrationTriggerManual, req.Force)
			if err != nil {
				response.RespondError(c, http.StatusInternalServerError, "migrate_failed", err)
				return
			}
			response.RespondOK(c, gin.H{"migration": rec})
			return
		}
		response.RespondError(c, http.StatusNotFound, "no_update_available", fmt.Errorf("no pending update for %q", req.BaseName))
		return
	}

	stats, err := h.migrations.MigrateBatch(c.Request.Context(), updates, types.MigrationTriggerManual, req.Force)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "migrate_batch_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"updates": len(updates), "stats": stats})
}

type rollbackReq struct {
	BaseName string `json:"base_name"`
	Version  string `json:"version"`
}

// POST /api/ops/rollback
func (h *OpsHandler) RunRollback(c *gin.Context) {
	var req rollbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.BaseName == "" || req.Version == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("base_name and version are required"))
		return
	}
	rec, err := h.migrations.Rollback(c.Request.Context(), req.BaseName, req.Version)
	if err != nil {
		if storeerr.IsNotFound(err) {
			response.RespondError(c, http.StatusNotFound, "version_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "rollback_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"migration": rec})
}
