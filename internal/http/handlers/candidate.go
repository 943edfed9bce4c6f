package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/assetwatch-backend/internal/data/repos"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/http/response"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
)

type CandidateHandler struct {
	candidates repos.CandidateAssetRepo
}

func NewCandidateHandler(candidates repos.CandidateAssetRepo) *CandidateHandler {
	return &CandidateHandler{candidates: candidates}
}

// GET /api/candidates
func (h *CandidateHandler) ListCandidates(c *gin.Context) {
	status := c.DefaultQuery("status", types.CandidateStatusNew)
	limit := intQuery(c, "limit", 100)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	candidates, err := h.candidates.ListByStatus(dbc, status, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_candidates_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"candidates": candidates, "count": len(candidates)})
}
