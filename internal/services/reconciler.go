package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/models"
)

// JobRepository is the record store as seen by the reconciler.
type JobRepository interface {
	// InsertIfAbsent atomically creates job unless (UserID, Company, Position) exists
	// and reports whether a row was created.
	InsertIfAbsent(ctx context.Context, job *models.JobApplication) (bool, error)
}

// Reconciler maps extraction results onto job application records.
type Reconciler struct {
	jobs JobRepository
}

func NewReconciler(jobs JobRepository) *Reconciler {
	return &Reconciler{jobs: jobs}
}

// Reconcile inserts a Gmail-sourced record for a complete extraction. Incomplete
// extractions are skipped without error. Existing records are never touched, even
// when appliedDate differs. It reports whether a new record was created.
func (r *Reconciler) Reconcile(ctx context.Context, owner uuid.UUID, ext Extraction, appliedDate time.Time) (bool, error) {
	if !ext.Complete() {
		return false, nil
	}
	return r.jobs.InsertIfAbsent(ctx, &models.JobApplication{
		UserID:      owner,
		Company:     ext.Company,
		Position:    ext.Position,
		AppliedDate: appliedDate,
		Status:      models.StatusApplied,
		Source:      models.SourceGmail,
	})
}
