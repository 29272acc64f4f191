package sqlite

import (
	"context"
	"fmt"
	"time"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
)

var _ workflow.Tx = (*txStore)(nil)

// txStore binds the shared queries to one *sql.Tx.
type txStore struct {
	q queryer
}

func (t *txStore) GetUser(ctx context.Context, id int) (*models.User, error) {
	return getUser(ctx, t.q, "id = ?", id)
}

func (t *txStore) GetRequest(ctx context.Context, id int) (*models.DonationRequest, error) {
	return getRequest(ctx, t.q, id)
}

func (t *txStore) InsertRequest(ctx context.Context, r *models.DonationRequest) error {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO requests (donor_id, waste_type, description, service_area, status, date_submitted, date_resolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.DonorID, r.WasteType, r.Description, r.ServiceArea, string(r.Status),
		formatTime(r.DateSubmitted), formatTimePtr(r.DateResolved),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert request id: %w", err)
	}
	r.ID = int(id)
	return nil
}

func (t *txStore) UpdateRequestStatus(ctx context.Context, id int, from, to models.RequestStatus, resolvedAt *time.Time) (bool, error) {
	res, err := t.q.ExecContext(ctx,
		`UPDATE requests SET status = ?, date_resolved = ?
		 WHERE request_id = ? AND status = ?`,
		string(to), formatTimePtr(resolvedAt), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update request status rows: %w", err)
	}
	return n == 1, nil
}

func (t *txStore) InsertAssignment(ctx context.Context, a *models.RecyclerAssignment) error {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO recycler_assignments (request_id, recycler_id, assigned_by, assigned_date)
		 VALUES (?, ?, ?, ?)`,
		a.RequestID, a.RecyclerID, a.AssignedBy, formatTime(a.AssignedDate),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert assignment id: %w", err)
	}
	a.ID = int(id)
	return nil
}

func (t *txStore) GetAssignment(ctx context.Context, id int) (*models.RecyclerAssignment, error) {
	return getAssignment(ctx, t.q, "assignment_id = ?", id)
}

func (t *txStore) MarkAssignmentCompleted(ctx context.Context, id int, at time.Time) error {
	_, err := t.q.ExecContext(ctx,
		`UPDATE recycler_assignments SET completed_date = ? WHERE assignment_id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}
	return nil
}

func (t *txStore) AppendHistory(ctx context.Context, e *models.StatusHistoryEntry) error {
	var old *string
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		old = &s
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO request_status_history (request_id, old_status, new_status, change_date, changed_by)
		 VALUES (?, ?, ?, ?, ?)`,
		e.RequestID, nullable(old), string(e.NewStatus), formatTime(e.ChangeDate), nullable(e.ChangedBy),
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert status history id: %w", err)
	}
	e.ID = int(id)
	return nil
}

func (t *txStore) InsertVolunteerAssignment(ctx context.Context, v *models.VolunteerAssignment) error {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO volunteer_assignments (request_id, volunteer_id, assigned_by, assigned_date)
		 VALUES (?, ?, ?, ?)`,
		v.RequestID, v.VolunteerID, v.AssignedBy, formatTime(v.AssignedDate),
	)
	if err != nil {
		return fmt.Errorf("insert volunteer assignment: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert volunteer assignment id: %w", err)
	}
	v.ID = int(id)
	return nil
}
