package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/database"
	"github.com/justsurfingit/applytrail/internal/dtos"
	"github.com/justsurfingit/applytrail/internal/models"
	"go.uber.org/zap"
)

// UserHeader carries the caller's id. The gateway in front of this service
// authenticates the session and sets it.
const UserHeader = "X-User-ID"

const userContextKey = "user"

// UserLookup resolves the caller's account.
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireUser rejects requests without a known caller and stores the user in the context.
func RequireUser(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(UserHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dtos.ErrorResponse{Error: "missing or invalid " + UserHeader + " header"})
			return
		}
		user, err := users.Get(c.Request.Context(), id)
		if errors.Is(err, database.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dtos.ErrorResponse{Error: "unknown user"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, dtos.ErrorResponse{Error: "failed to load user"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userContextKey).(*models.User)
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
