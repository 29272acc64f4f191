package models

import "time"

type VolunteerAssignment struct {
	ID           int       `json:"volunteer_assignment_id" db:"volunteer_assignment_id"`
	RequestID    int       `json:"request_id" db:"request_id"`
	VolunteerID  int       `json:"volunteer_id" db:"volunteer_id"`
	AssignedBy   int       `json:"assigned_by" db:"assigned_by"`
	AssignedDate time.Time `json:"assigned_date" db:"assigned_date"`
}

type AssignVolunteerRequest struct {
	RequestID   int `json:"requestId"`
	VolunteerID int `json:"volunteerId"`
	AdminID     int `json:"adminId"`
}
