package dtos

import "time"

type JobCreationRequest struct {
	Company  string `json:"company" binding:"required,max=255"`
	Position string `json:"position" binding:"required,max=255"`

	// Optional Fields
	AppliedDate *time.Time `json:"applied_date"`
	Status      string     `json:"status" binding:"omitempty,oneof=Applied Interview Offer Rejected"` // Defaults to "Applied" if empty
	Notes       string     `json:"notes"`
	Location    string     `json:"location"`
}

// JobUpdateRequest only changes the fields that are present.
type JobUpdateRequest struct {
	Company     *string    `json:"company" binding:"omitempty,min=1,max=255"`
	Position    *string    `json:"position" binding:"omitempty,min=1,max=255"`
	AppliedDate *time.Time `json:"applied_date"`
	Status      *string    `json:"status" binding:"omitempty,oneof=Applied Interview Offer Rejected"`
	Notes       *string    `json:"notes"`
	Location    *string    `json:"location"`
}

type SyncResponse struct {
	Message         string `json:"message"`
	NewRecordsCount int    `json:"newRecordsCount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
