package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrJobNotFound is returned when a job does not exist or belongs to another user.
var ErrJobNotFound = errors.New("job not found")

// JobStore persists job applications.
type JobStore struct {
	DB *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{DB: db}
}

// InsertIfAbsent creates job unless a row with the same (user, company, position)
// already exists. It reports whether a row was inserted. Existing rows are never
// modified, and a lost race on the unique index counts as "already exists".
func (s *JobStore) InsertIfAbsent(ctx context.Context, job *models.JobApplication) (bool, error) {
	res := s.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "company"}, {Name: "position"}},
			DoNothing: true,
		}).
		Create(job)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("insert job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Create inserts a job unconditionally. A dedup-key collision is reported as gorm.ErrDuplicatedKey.
func (s *JobStore) Create(ctx context.Context, job *models.JobApplication) error {
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// FindByOwner returns every job of a user, most recently applied first.
func (s *JobStore) FindByOwner(ctx context.Context, userID uuid.UUID) ([]models.JobApplication, error) {
	var jobs []models.JobApplication
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("applied_date DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("find jobs: %w", err)
	}
	return jobs, nil
}

// FindByID returns one job owned by userID.
func (s *JobStore) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.JobApplication, error) {
	var job models.JobApplication
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return &job, nil
}

// UpdateByID applies fields to a job owned by userID and returns the updated row.
func (s *JobStore) UpdateByID(ctx context.Context, userID, id uuid.UUID, fields map[string]interface{}) (*models.JobApplication, error) {
	job, err := s.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return job, nil
	}
	if err := s.DB.WithContext(ctx).Model(job).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return s.FindByID(ctx, userID, id)
}

// DeleteByID removes a job owned by userID.
func (s *JobStore) DeleteByID(ctx context.Context, userID, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.JobApplication{})
	if res.Error != nil {
		return fmt.Errorf("delete job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}
