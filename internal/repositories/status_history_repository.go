package repositories

import (
	"context"
	"fmt"

	"ewaste-backend/internal/models"
)

// StatusHistoryRepository writes and reads the append-only status log.
type StatusHistoryRepository struct {
	DB DBTX
}

func NewStatusHistoryRepository(db DBTX) *StatusHistoryRepository {
	return &StatusHistoryRepository{DB: db}
}

func (r *StatusHistoryRepository) Append(ctx context.Context, e *models.StatusHistoryEntry) error {
	var old *string
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		old = &s
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO request_status_history(request_id, old_status, new_status, change_date, changed_by)
		 VALUES($1, $2, $3, $4, $5)
		 RETURNING history_id`,
		e.RequestID, old, string(e.NewStatus), e.ChangeDate, e.ChangedBy,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// ListByRequest returns the request's history, most recent first
func (r *StatusHistoryRepository) ListByRequest(ctx context.Context, requestID int) ([]models.StatusHistoryEntry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT history_id, request_id, old_status, new_status, change_date, changed_by
		 FROM request_status_history
		 WHERE request_id=$1
		 ORDER BY change_date DESC, history_id DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var (
			e         models.StatusHistoryEntry
			old       *string
			newStatus string
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &old, &newStatus, &e.ChangeDate, &e.ChangedBy); err != nil {
			return nil, err
		}
		e.OldStatus = statusPtr(old)
		e.NewStatus = models.RequestStatus(newStatus)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
