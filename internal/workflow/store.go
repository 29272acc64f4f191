package workflow

import (
	"context"
	"time"

	"ewaste-backend/internal/models"
)

// Store is the persistence boundary of the engine. Lookups that match no row
// return an error wrapping models.ErrNotFound; inserts that break a unique key
// return an error wrapping models.ErrDuplicate.
type Store interface {
	UserStore

	// WithinTx runs fn in one transaction. A non-nil error from fn rolls the
	// transaction back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetRequest(ctx context.Context, id int) (*models.DonationRequest, error)
	ListRequests(ctx context.Context) ([]models.DonationRequest, error)
	ListRequestsByDonor(ctx context.Context, donorID int) ([]models.DonationRequest, error)
	GetAssignmentByRequest(ctx context.Context, requestID int) (*models.RecyclerAssignment, error)
	ListAssignmentsByRecycler(ctx context.Context, recyclerID int) ([]models.AssignmentDetail, error)
	ListHistory(ctx context.Context, requestID int) ([]models.StatusHistoryEntry, error)
	ListVolunteerAssignments(ctx context.Context, requestID int) ([]models.VolunteerAssignment, error)
	// Snapshot returns every request with its history, read consistently.
	Snapshot(ctx context.Context) ([]models.RequestSnapshot, error)
	Ping(ctx context.Context) error
	Close()
}

// UserStore is the actor directory.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// Tx is the write side of the store, valid only inside WithinTx.
type Tx interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetRequest(ctx context.Context, id int) (*models.DonationRequest, error)
	InsertRequest(ctx context.Context, r *models.DonationRequest) error
	// UpdateRequestStatus moves the request from `from` to `to` only if its
	// status is still `from`. It reports whether a row was updated.
	UpdateRequestStatus(ctx context.Context, id int, from, to models.RequestStatus, resolvedAt *time.Time) (bool, error)
	InsertAssignment(ctx context.Context, a *models.RecyclerAssignment) error
	GetAssignment(ctx context.Context, id int) (*models.RecyclerAssignment, error)
	MarkAssignmentCompleted(ctx context.Context, id int, at time.Time) error
	AppendHistory(ctx context.Context, e *models.StatusHistoryEntry) error
	InsertVolunteerAssignment(ctx context.Context, v *models.VolunteerAssignment) error
}
