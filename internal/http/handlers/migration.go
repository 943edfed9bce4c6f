package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/http/response"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

type MigrationHandler struct {
	migrations repos.MigrationRecordRepo
}

func NewMigrationHandler(migrations repos.MigrationRecordRepo) *MigrationHandler {
	return &MigrationHandler{migrations: migrations}
}

// GET /api/migrations
func (h *MigrationHandler) ListMigrations(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	if baseName := c.Query("base_name"); baseName != "" {
		records, err := h.migrations.ListByBaseName(dbc, baseName, limit)
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "list_migrations_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"migrations": records, "count": len(records)})
		return
	}

	status := c.DefaultQuery("status", types.MigrationStatusPending)
	records, err := h.migrations.ListByStatus(dbc, status, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_migrations_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"migrations": records, "count": len(records)})
}

// GET /api/migrations/:id
func (h *MigrationHandler) GetMigration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_migration_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rec, err := h.migrations.GetByID(dbc, id)
	if err != nil {
		if storeerr.IsNotFound(err) {
			response.RespondError(c, http.StatusNotFound, "migration_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "get_migration_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"migration": rec})
}
