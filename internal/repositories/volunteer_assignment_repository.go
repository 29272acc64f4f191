package repositories

import (
	"context"
	"fmt"

	"ewaste-backend/internal/models"
)

type VolunteerAssignmentRepository struct {
	DB DBTX
}

func NewVolunteerAssignmentRepository(db DBTX) *VolunteerAssignmentRepository {
	return &VolunteerAssignmentRepository{DB: db}
}

func (r *VolunteerAssignmentRepository) Create(ctx context.Context, v *models.VolunteerAssignment) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO volunteer_assignments(request_id, volunteer_id, assigned_by, assigned_date)
		 VALUES($1, $2, $3, $4)
		 RETURNING volunteer_assignment_id`,
		v.RequestID, v.VolunteerID, v.AssignedBy, v.AssignedDate,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert volunteer assignment: %w", classify(err))
	}
	return nil
}

func (r *VolunteerAssignmentRepository) ListByRequest(ctx context.Context, requestID int) ([]models.VolunteerAssignment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT volunteer_assignment_id, request_id, volunteer_id, assigned_by, assigned_date
		 FROM volunteer_assignments WHERE request_id=$1 ORDER BY volunteer_assignment_id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VolunteerAssignment
	for rows.Next() {
		var v models.VolunteerAssignment
		if err := rows.Scan(&v.ID, &v.RequestID, &v.VolunteerID, &v.AssignedBy, &v.AssignedDate); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
