package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by the stores when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by the stores when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate record")

type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusApproved   RequestStatus = "approved"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusRejected   RequestStatus = "rejected"
)

// Valid reports whether s is one of the known request statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusProcessing, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

type DonationRequest struct {
	ID            int           `json:"request_id" db:"request_id"`
	DonorID       int           `json:"donor_id" db:"donor_id"`
	WasteType     string        `json:"waste_type" db:"waste_type"`
	Description   string        `json:"description" db:"description"`
	ServiceArea   string        `json:"service_area" db:"service_area"`
	Status        RequestStatus `json:"status" db:"status"`
	DateSubmitted time.Time     `json:"date_submitted" db:"date_submitted"`
	DateResolved  *time.Time    `json:"date_resolved,omitempty" db:"date_resolved"`
}

// SubmitRequest is the body of POST /api/requests
type SubmitRequest struct {
	DonorID     int    `json:"donorId"`
	WasteType   string `json:"wasteType"`
	Description string `json:"description"`
	ServiceArea string `json:"serviceArea"`
}

type SubmitResponse struct {
	Message   string `json:"message"`
	RequestID int    `json:"requestId"`
}

// UpdateStatusRequest is the admin review body of PATCH /api/requests/{id}/status
type UpdateStatusRequest struct {
	Status RequestStatus `json:"status"`
}
