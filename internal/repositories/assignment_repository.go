package repositories

import (
	"context"
	"fmt"
	"time"

	"ewaste-backend/internal/models"
)

type AssignmentRepository struct {
	DB DBTX
}

func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *models.RecyclerAssignment) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO recycler_assignments(request_id, recycler_id, assigned_by, assigned_date)
		 VALUES($1, $2, $3, $4)
		 RETURNING assignment_id`,
		a.RequestID, a.RecyclerID, a.AssignedBy, a.AssignedDate,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", classify(err))
	}
	return nil
}

func (r *AssignmentRepository) Get(ctx context.Context, id int) (*models.RecyclerAssignment, error) {
	return r.getBy(ctx, "assignment_id", id)
}

func (r *AssignmentRepository) GetByRequest(ctx context.Context, requestID int) (*models.RecyclerAssignment, error) {
	return r.getBy(ctx, "request_id", requestID)
}

func (r *AssignmentRepository) getBy(ctx context.Context, column string, id int) (*models.RecyclerAssignment, error) {
	var a models.RecyclerAssignment
	err := r.DB.QueryRow(ctx,
		`SELECT assignment_id, request_id, recycler_id, assigned_by, assigned_date, completed_date
		 FROM recycler_assignments WHERE `+column+`=$1`, id,
	).Scan(&a.ID, &a.RequestID, &a.RecyclerID, &a.AssignedBy, &a.AssignedDate, &a.CompletedDate)
	if err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

// ListByRecycler returns the recycler's assignments joined with request and donor details
func (r *AssignmentRepository) ListByRecycler(ctx context.Context, recyclerID int) ([]models.AssignmentDetail, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT ra.assignment_id, ra.recycler_id, ra.assigned_date,
		        r.request_id, r.waste_type, r.description, r.service_area, r.status,
		        r.date_submitted, r.date_resolved,
		        d.name, d.email, d.phone
		 FROM recycler_assignments ra
		 JOIN requests r ON r.request_id = ra.request_id
		 JOIN users d ON d.id = r.donor_id
		 WHERE ra.recycler_id = $1
		 ORDER BY r.date_submitted DESC, r.request_id DESC`, recyclerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []models.AssignmentDetail
	for rows.Next() {
		var (
			d      models.AssignmentDetail
			status string
		)
		err := rows.Scan(&d.AssignmentID, &d.RecyclerID, &d.AssignedDate,
			&d.RequestID, &d.WasteType, &d.Description, &d.ServiceArea, &status,
			&d.DateSubmitted, &d.DateResolved, &d.DonorName, &d.DonorEmail, &d.DonorPhone)
		if err != nil {
			return nil, err
		}
		d.Status = models.RequestStatus(status)
		details = append(details, d)
	}
	return details, rows.Err()
}

func (r *AssignmentRepository) MarkCompleted(ctx context.Context, id int, at time.Time) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE recycler_assignments SET completed_date=$1 WHERE assignment_id=$2`, at, id)
	if err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}
	return nil
}
