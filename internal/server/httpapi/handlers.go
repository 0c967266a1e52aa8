package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/papersson/code-bot/internal/api"
	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/logging"
)

// maxBodyBytes caps one /sync request.
const maxBodyBytes = 32 << 20

// Syncer serves one sync exchange for a user.
type Syncer interface {
	Sync(ctx context.Context, userID string, req *api.SyncRequest) (*api.SyncResponse, error)
}

type SyncHandler struct {
	svc Syncer
	log logging.Logger
}

func NewSyncHandler(svc Syncer, l logging.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, log: l.With("module", "sync_handler")}
}

// Sync handles POST /sync.
func (h *SyncHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req api.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed sync request: "+err.Error())
		return
	}

	resp, err := h.svc.Sync(ctx, UserIDFromContext(ctx), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, common.ErrorUnauthorized):
		respondError(c, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
	default:
		h.log.Error(ctx, "sync failed", "error", err)
		respondError(c, http.StatusInternalServerError, common.ErrorInternal.Error())
	}
}

// HealthCheck answers liveness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: msg})
}
