package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/dtos"
	"github.com/justsurfingit/applytrail/internal/services"
	"go.uber.org/zap"
)

// OnDemandSyncer runs a mailbox sync for one user.
type OnDemandSyncer interface {
	SyncNow(ctx context.Context, userID uuid.UUID) (*services.SyncResult, error)
}

type SyncHandler struct {
	syncer OnDemandSyncer
	logger *zap.Logger
}

func NewSyncHandler(syncer OnDemandSyncer, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{syncer: syncer, logger: logger}
}

// SyncJobs is POST /jobs/sync
func (h *SyncHandler) SyncJobs(c *gin.Context) {
	user := currentUser(c)
	result, err := h.syncer.SyncNow(c.Request.Context(), user.ID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoRefreshToken):
		c.JSON(http.StatusBadRequest, dtos.ErrorResponse{Error: "Google account not connected or refresh token is missing."})
		return
	case services.IsAuthError(err):
		h.logger.Warn("Manual sync needs re-authorization", zap.String("user_id", user.ID.String()), zap.Error(err))
		c.JSON(http.StatusBadRequest, dtos.ErrorResponse{Error: "Gmail access was revoked or expired. Please reconnect your Google account."})
		return
	case services.IsTransient(err):
		h.logger.Warn("Manual sync hit unavailable provider", zap.String("user_id", user.ID.String()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dtos.ErrorResponse{Error: "Gmail is temporarily unavailable. Please try again later."})
		return
	default:
		h.logger.Error("Manual sync error", zap.String("user_id", user.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dtos.ErrorResponse{Error: "Failed to sync jobs from Gmail."})
		return
	}

	resp := dtos.SyncResponse{NewRecordsCount: result.NewRecordsCount}
	if result.NewRecordsCount > 0 {
		resp.Message = fmt.Sprintf("Sync complete. Found and added %d new job(s).", result.NewRecordsCount)
	} else {
		resp.Message = "Sync complete. No new job applications were found."
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck is GET /health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
