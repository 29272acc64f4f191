package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ewaste-backend/internal/models"
)

type RequestRepository struct {
	DB DBTX
}

func NewRequestRepository(db DBTX) *RequestRepository {
	return &RequestRepository{DB: db}
}

const requestColumns = `request_id, donor_id, waste_type, description, service_area, status,
	date_submitted, date_resolved`

func scanRequest(row pgx.Row) (*models.DonationRequest, error) {
	var (
		req    models.DonationRequest
		status string
	)
	err := row.Scan(&req.ID, &req.DonorID, &req.WasteType, &req.Description, &req.ServiceArea,
		&status, &req.DateSubmitted, &req.DateResolved)
	if err != nil {
		return nil, classify(err)
	}
	req.Status = models.RequestStatus(status)
	return &req, nil
}

func (r *RequestRepository) Create(ctx context.Context, req *models.DonationRequest) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO requests(donor_id, waste_type, description, service_area, status, date_submitted, date_resolved)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING request_id`,
		req.DonorID, req.WasteType, req.Description, req.ServiceArea, string(req.Status),
		req.DateSubmitted, req.DateResolved,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("insert request: %w", classify(err))
	}
	return nil
}

func (r *RequestRepository) Get(ctx context.Context, id int) (*models.DonationRequest, error) {
	return scanRequest(r.DB.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE request_id=$1`, id))
}

// List returns every request, newest first
func (r *RequestRepository) List(ctx context.Context) ([]models.DonationRequest, error) {
	return r.list(ctx, ``)
}

func (r *RequestRepository) ListByDonor(ctx context.Context, donorID int) ([]models.DonationRequest, error) {
	return r.list(ctx, `WHERE donor_id=$1`, donorID)
}

func (r *RequestRepository) list(ctx context.Context, where string, args ...any) ([]models.DonationRequest, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+requestColumns+` FROM requests `+where+` ORDER BY date_submitted DESC, request_id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.DonationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// UpdateStatus moves a request from one status to another only if it is
// still in the expected status. Concurrent writers block on the row lock and
// re-check the WHERE clause once it is released, so only one of them updates.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int, from, to models.RequestStatus, resolvedAt *time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE requests SET status=$1, date_resolved=$2
		 WHERE request_id=$3 AND status=$4`,
		string(to), resolvedAt, id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
