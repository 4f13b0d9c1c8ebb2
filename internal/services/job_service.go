package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/database"
	"github.com/justsurfingit/applytrail/internal/dtos"
	"github.com/justsurfingit/applytrail/internal/models"
)

// JobService is the manual record management used by the dashboard.
type JobService struct {
	Jobs  *database.JobStore
	clock Clock
}

func NewJobService(jobs *database.JobStore, clock Clock) *JobService {
	return &JobService{
		Jobs:  jobs,
		clock: clock,
	}
}

func (s *JobService) CreateJob(ctx context.Context, owner uuid.UUID, req *dtos.JobCreationRequest) (*models.JobApplication, error) {
	job := &models.JobApplication{
		UserID:   owner,
		Company:  req.Company,
		Position: req.Position,
		Status:   models.Status(req.Status),
		Source:   models.SourceManual,
		Notes:    req.Notes,
		Location: req.Location,
	}
	if req.AppliedDate != nil {
		job.AppliedDate = *req.AppliedDate
	} else {
		job.AppliedDate = s.clock.Now()
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) ListJobs(ctx context.Context, owner uuid.UUID) ([]models.JobApplication, error) {
	return s.Jobs.FindByOwner(ctx, owner)
}

func (s *JobService) UpdateJob(ctx context.Context, owner, id uuid.UUID, req *dtos.JobUpdateRequest) (*models.JobApplication, error) {
	fields := map[string]interface{}{}
	if req.Company != nil {
		fields["company"] = *req.Company
	}
	if req.Position != nil {
		fields["position"] = *req.Position
	}
	if req.AppliedDate != nil {
		fields["applied_date"] = *req.AppliedDate
	}
	if req.Status != nil {
		fields["status"] = models.Status(*req.Status)
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	return s.Jobs.UpdateByID(ctx, owner, id, fields)
}

func (s *JobService) DeleteJob(ctx context.Context, owner, id uuid.UUID) error {
	return s.Jobs.DeleteByID(ctx, owner, id)
}
