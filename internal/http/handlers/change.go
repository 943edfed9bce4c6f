package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	"github.com/yungbote/assetwatch-backend/internal/http/response"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

type ChangeHandler struct {
	changes repos.ChangeRepo
}

func NewChangeHandler(changes repos.ChangeRepo) *ChangeHandler {
	return &ChangeHandler{changes: changes}
}

// GET /api/changes
func (h *ChangeHandler) ListChanges(c *gin.Context) {
	severity := c.Query("severity")
	days := intQuery(c, "days", 7)
	limit := intQuery(c, "limit", 100)

	dbc := dbctx.Context{Ctx: c.Request.Context()}

	if baseName := c.Query("base_name"); baseName != "" {
		offset := intQuery(c, "offset", 0)
		changes, err := h.changes.ListByBaseName(dbc, baseName, limit, offset)
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "list_changes_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"changes": changes, "count": len(changes)})
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	changes, err := h.changes.ListSince(dbc, since, severity, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_changes_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"changes": changes, "count": len(changes)})
}
