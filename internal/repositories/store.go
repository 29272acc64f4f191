package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
)

var (
	_ workflow.Store = (*Store)(nil)
	_ workflow.Tx    = (*txRepos)(nil)
)

// repos groups the repositories bound to one DBTX.
type repos struct {
	users      *UserRepository
	requests   *RequestRepository
	assigns    *AssignmentRepository
	history    *StatusHistoryRepository
	volunteers *VolunteerAssignmentRepository
}

func newRepos(db DBTX) repos {
	return repos{
		users:      NewUserRepository(db),
		requests:   NewRequestRepository(db),
		assigns:    NewAssignmentRepository(db),
		history:    NewStatusHistoryRepository(db),
		volunteers: NewVolunteerAssignmentRepository(db),
	}
}

// Store is the PostgreSQL workflow.Store.
type Store struct {
	pool *pgxpool.Pool
	repos
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: newRepos(pool)}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

// WithinTx runs fn in a READ COMMITTED transaction. Status changes rely on
// conditional updates rather than isolation level for race safety.
func (s *Store) WithinTx(ctx context.Context, fn func(tx workflow.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txRepos{newRepos(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Snapshot reads every request and its history from one REPEATABLE READ,
// read-only transaction.
func (s *Store) Snapshot(ctx context.Context) ([]models.RequestSnapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	r := newRepos(tx)
	requests, err := r.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.RequestSnapshot, 0, len(requests))
	for _, req := range requests {
		history, err := r.history.ListByRequest(ctx, req.ID)
		if err != nil {
			return nil, fmt.Errorf("history for request %d: %w", req.ID, err)
		}
		out = append(out, models.RequestSnapshot{Request: req, History: history})
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.users.Create(ctx, u)
}

func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.users.Get(ctx, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.users.ListByRole(ctx, role)
}

func (s *Store) GetRequest(ctx context.Context, id int) (*models.DonationRequest, error) {
	return s.requests.Get(ctx, id)
}

func (s *Store) ListRequests(ctx context.Context) ([]models.DonationRequest, error) {
	return s.requests.List(ctx)
}

func (s *Store) ListRequestsByDonor(ctx context.Context, donorID int) ([]models.DonationRequest, error) {
	return s.requests.ListByDonor(ctx, donorID)
}

func (s *Store) GetAssignmentByRequest(ctx context.Context, requestID int) (*models.RecyclerAssignment, error) {
	return s.assigns.GetByRequest(ctx, requestID)
}

func (s *Store) ListAssignmentsByRecycler(ctx context.Context, recyclerID int) ([]models.AssignmentDetail, error) {
	return s.assigns.ListByRecycler(ctx, recyclerID)
}

func (s *Store) ListHistory(ctx context.Context, requestID int) ([]models.StatusHistoryEntry, error) {
	return s.history.ListByRequest(ctx, requestID)
}

func (s *Store) ListVolunteerAssignments(ctx context.Context, requestID int) ([]models.VolunteerAssignment, error) {
	return s.volunteers.ListByRequest(ctx, requestID)
}

// txRepos is the workflow.Tx view of one pgx transaction.
type txRepos struct {
	repos
}

func (t *txRepos) GetUser(ctx context.Context, id int) (*models.User, error) {
	return t.users.Get(ctx, id)
}

func (t *txRepos) GetRequest(ctx context.Context, id int) (*models.DonationRequest, error) {
	return t.requests.Get(ctx, id)
}

func (t *txRepos) InsertRequest(ctx context.Context, r *models.DonationRequest) error {
	return t.requests.Create(ctx, r)
}

func (t *txRepos) UpdateRequestStatus(ctx context.Context, id int, from, to models.RequestStatus, resolvedAt *time.Time) (bool, error) {
	return t.requests.UpdateStatus(ctx, id, from, to, resolvedAt)
}

func (t *txRepos) InsertAssignment(ctx context.Context, a *models.RecyclerAssignment) error {
	return t.assigns.Create(ctx, a)
}

func (t *txRepos) GetAssignment(ctx context.Context, id int) (*models.RecyclerAssignment, error) {
	return t.assigns.Get(ctx, id)
}

func (t *txRepos) MarkAssignmentCompleted(ctx context.Context, id int, at time.Time) error {
	return t.assigns.MarkCompleted(ctx, id, at)
}

func (t *txRepos) AppendHistory(ctx context.Context, e *models.StatusHistoryEntry) error {
	return t.history.Append(ctx, e)
}

func (t *txRepos) InsertVolunteerAssignment(ctx context.Context, v *models.VolunteerAssignment) error {
	return t.volunteers.Create(ctx, v)
}
