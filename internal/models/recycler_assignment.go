package models

import "time"

type RecyclerAssignment struct {
	ID            int        `json:"assignment_id" db:"assignment_id"`
	RequestID     int        `json:"request_id" db:"request_id"`
	RecyclerID    int        `json:"recycler_id" db:"recycler_id"`
	AssignedBy    int        `json:"assigned_by" db:"assigned_by"`
	AssignedDate  time.Time  `json:"assigned_date" db:"assigned_date"`
	CompletedDate *time.Time `json:"completed_date,omitempty" db:"completed_date"`
}

// AssignmentDetail joins an assignment with its request and donor for the recycler dashboard
type AssignmentDetail struct {
	AssignmentID  int           `json:"assignment_id"`
	RecyclerID    int           `json:"recycler_id"`
	AssignedDate  time.Time     `json:"assigned_date"`
	RequestID     int           `json:"request_id"`
	WasteType     string        `json:"waste_type"`
	Description   string        `json:"description"`
	ServiceArea   string        `json:"service_area"`
	Status        RequestStatus `json:"status"`
	DateSubmitted time.Time     `json:"date_submitted"`
	DateResolved  *time.Time    `json:"date_resolved,omitempty"`
	DonorName     string        `json:"donor_name"`
	DonorEmail    string        `json:"donor_email"`
	DonorPhone    *string       `json:"donor_phone,omitempty"`
}

type AssignRecyclerRequest struct {
	RequestID  int `json:"requestId"`
	RecyclerID int `json:"recyclerId"`
	AdminID    int `json:"adminId"`
}

type AssignRecyclerResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AssignmentID int    `json:"assignmentId"`
}

type CompleteAssignmentRequest struct {
	AssignmentID int `json:"assignmentId"`
	RequestID    int `json:"requestId"`
	// RecyclerID is optional on the wire; it defaults to the caller.
	RecyclerID int `json:"recyclerId,omitempty"`
}
