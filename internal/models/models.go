package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle stage of a job application
type Status string

const (
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Source records how a job application entered the tracker
type Source string

const (
	SourceManual Source = "Manual"
	SourceGmail  Source = "Gmail"
)

// User is the account that owns job applications. The sync pipeline only reads it;
// a non-empty GoogleRefreshToken means the mailbox is connected.
type User struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name               string `gorm:"not null" json:"name"`
	Email              string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	GoogleRefreshToken string `gorm:"type:text" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasMailAccess reports whether the user connected a mailbox.
func (u *User) HasMailAccess() bool {
	return u.GoogleRefreshToken != ""
}

// JobApplication is the persisted application record. (UserID, Company, Position)
// is unique: a second discovery of the same pair for an owner never creates a row.
type JobApplication struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_jobs_owner_company_position,priority:1" json:"user_id"`
	User     User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Company  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_jobs_owner_company_position,priority:2" json:"company"`
	Position string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_jobs_owner_company_position,priority:3" json:"position"`

	AppliedDate time.Time `gorm:"not null;index" json:"applied_date"`
	Status      Status    `gorm:"type:varchar(16);not null;default:'Applied'" json:"status"`
	Source      Source    `gorm:"type:varchar(16);not null;default:'Manual'" json:"source"`
	Notes       string    `gorm:"type:text" json:"notes"`
	Location    string    `json:"location"`
}

func (JobApplication) TableName() string {
	return "jobs"
}

func (j *JobApplication) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusApplied
	}
	if j.Source == "" {
		j.Source = SourceManual
	}
	return nil
}
