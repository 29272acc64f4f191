package models

import "time"

// StatusHistoryEntry is one row of the append-only request_status_history log.
type StatusHistoryEntry struct {
	ID         int            `json:"history_id" db:"history_id"`
	RequestID  int            `json:"request_id" db:"request_id"`
	OldStatus  *RequestStatus `json:"old_status" db:"old_status"`
	NewStatus  RequestStatus  `json:"new_status" db:"new_status"`
	ChangeDate time.Time      `json:"change_date" db:"change_date"`
	ChangedBy  *int           `json:"changed_by,omitempty" db:"changed_by"`
}

// RequestSnapshot is a request together with its full history, used by exports.
type RequestSnapshot struct {
	Request DonationRequest      `json:"request"`
	History []StatusHistoryEntry `json:"history"`
}
