package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/database"
	"github.com/justsurfingit/applytrail/internal/dtos"
	"github.com/justsurfingit/applytrail/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type JobHandler struct {
	JobService *services.JobService
	logger     *zap.Logger
}

// NewJobHandler creates the handler with dependencies
func NewJobHandler(j *services.JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		JobService: j,
		logger:     logger,
	}
}

// ListJobs is GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	user := currentUser(c)
	jobs, err := h.JobService.ListJobs(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dtos.ErrorResponse{Error: "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// CreateJob is POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.ErrorResponse{Error: "Invalid JSON format: " + err.Error()})
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		h.writeStoreError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// UpdateJob is PUT /jobs/:id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	var req dtos.JobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.ErrorResponse{Error: "Invalid JSON format: " + err.Error()})
		return
	}
	job, err := h.JobService.UpdateJob(c.Request.Context(), currentUser(c).ID, id, &req)
	if err != nil {
		h.writeStoreError(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob is DELETE /jobs/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	if err := h.JobService.DeleteJob(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.writeStoreError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job removed"})
}

func jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dtos.ErrorResponse{Error: "invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *JobHandler) writeStoreError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, database.ErrJobNotFound):
		c.JSON(http.StatusNotFound, dtos.ErrorResponse{Error: "Job not found or user not authorized"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, dtos.ErrorResponse{Error: "a job with this company and position already exists"})
	default:
		h.logger.Error("Job store failure", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dtos.ErrorResponse{Error: "Failed to " + op + " job"})
	}
}
