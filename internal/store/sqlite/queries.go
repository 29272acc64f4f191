package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ewaste-backend/internal/models"
)

// timeLayout is fixed width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// nullable turns a nil pointer into SQL NULL and dereferences anything else.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// classify maps driver errors onto the store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", models.ErrDuplicate, err)
	}
	return err
}

const userColumns = `id, name, email, phone, address, service_area, donor_type, occupation,
	password_hash, role, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                                           models.User
		phone, address, area, donorType, occupation sql.NullString
		role, createdAt                             string
		active                                      int
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &phone, &address, &area, &donorType, &occupation,
		&u.PasswordHash, &role, &active, &createdAt); err != nil {
		return nil, classify(err)
	}
	u.Phone = nullString(phone)
	u.Address = nullString(address)
	u.ServiceArea = nullString(area)
	u.DonorType = nullString(donorType)
	u.Occupation = nullString(occupation)
	u.Role = models.Role(role)
	u.IsActive = active != 0
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

func insertUser(ctx context.Context, q queryer, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	active := 0
	if u.IsActive {
		active = 1
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, address, service_area, donor_type, occupation,
		                    password_hash, role, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, nullable(u.Phone), nullable(u.Address), nullable(u.ServiceArea),
		nullable(u.DonorType), nullable(u.Occupation),
		u.PasswordHash, string(u.Role), active, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user id: %w", err)
	}
	u.ID = int(id)
	return nil
}

func getUser(ctx context.Context, q queryer, where string, arg any) (*models.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	return scanUser(row)
}

func listUsersByRole(ctx context.Context, q queryer, role models.Role) ([]models.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? AND is_active = 1 ORDER BY name`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

const requestColumns = `request_id, donor_id, waste_type, description, service_area, status, date_submitted, date_resolved`

func scanRequest(row rowScanner) (*models.DonationRequest, error) {
	var (
		r         models.DonationRequest
		status    string
		submitted string
		resolved  sql.NullString
	)
	if err := row.Scan(&r.ID, &r.DonorID, &r.WasteType, &r.Description, &r.ServiceArea,
		&status, &submitted, &resolved); err != nil {
		return nil, classify(err)
	}
	r.Status = models.RequestStatus(status)
	t, err := parseTime(submitted)
	if err != nil {
		return nil, err
	}
	r.DateSubmitted = t
	if r.DateResolved, err = parseNullTime(resolved); err != nil {
		return nil, err
	}
	return &r, nil
}

func getRequest(ctx context.Context, q queryer, id int) (*models.DonationRequest, error) {
	row := q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE request_id = ?`, id)
	return scanRequest(row)
}

func listRequests(ctx context.Context, q queryer, where string, args []any) ([]models.DonationRequest, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests `+where+` ORDER BY date_submitted DESC, request_id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.DonationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func getAssignment(ctx context.Context, q queryer, where string, arg any) (*models.RecyclerAssignment, error) {
	var (
		a         models.RecyclerAssignment
		assigned  string
		completed sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT assignment_id, request_id, recycler_id, assigned_by, assigned_date, completed_date
		 FROM recycler_assignments WHERE `+where, arg,
	).Scan(&a.ID, &a.RequestID, &a.RecyclerID, &a.AssignedBy, &assigned, &completed)
	if err != nil {
		return nil, classify(err)
	}
	if a.AssignedDate, err = parseTime(assigned); err != nil {
		return nil, err
	}
	if a.CompletedDate, err = parseNullTime(completed); err != nil {
		return nil, err
	}
	return &a, nil
}

func listAssignmentsByRecycler(ctx context.Context, q queryer, recyclerID int) ([]models.AssignmentDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ra.assignment_id, ra.recycler_id, ra.assigned_date,
		        r.request_id, r.waste_type, r.description, r.service_area, r.status,
		        r.date_submitted, r.date_resolved,
		        d.name, d.email, d.phone
		 FROM recycler_assignments ra
		 JOIN requests r ON r.request_id = ra.request_id
		 JOIN users d ON d.id = r.donor_id
		 WHERE ra.recycler_id = ?
		 ORDER BY r.date_submitted DESC, r.request_id DESC`, recyclerID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []models.AssignmentDetail
	for rows.Next() {
		var (
			d                   models.AssignmentDetail
			assigned, submitted string
			status              string
			resolved, phone     sql.NullString
		)
		if err := rows.Scan(&d.AssignmentID, &d.RecyclerID, &assigned,
			&d.RequestID, &d.WasteType, &d.Description, &d.ServiceArea, &status,
			&submitted, &resolved, &d.DonorName, &d.DonorEmail, &phone); err != nil {
			return nil, err
		}
		d.Status = models.RequestStatus(status)
		d.DonorPhone = nullString(phone)
		if d.AssignedDate, err = parseTime(assigned); err != nil {
			return nil, err
		}
		if d.DateSubmitted, err = parseTime(submitted); err != nil {
			return nil, err
		}
		if d.DateResolved, err = parseNullTime(resolved); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func listHistory(ctx context.Context, q queryer, requestID int) ([]models.StatusHistoryEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT history_id, request_id, old_status, new_status, change_date, changed_by
		 FROM request_status_history
		 WHERE request_id = ?
		 ORDER BY change_date DESC, history_id DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var (
			e         models.StatusHistoryEntry
			old       sql.NullString
			newStatus string
			changed   string
			changedBy sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &old, &newStatus, &changed, &changedBy); err != nil {
			return nil, err
		}
		if old.Valid {
			s := models.RequestStatus(old.String)
			e.OldStatus = &s
		}
		e.NewStatus = models.RequestStatus(newStatus)
		if e.ChangeDate, err = parseTime(changed); err != nil {
			return nil, err
		}
		if changedBy.Valid {
			id := int(changedBy.Int64)
			e.ChangedBy = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func listVolunteerAssignments(ctx context.Context, q queryer, requestID int) ([]models.VolunteerAssignment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT volunteer_assignment_id, request_id, volunteer_id, assigned_by, assigned_date
		 FROM volunteer_assignments WHERE request_id = ? ORDER BY volunteer_assignment_id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list volunteer assignments: %w", err)
	}
	defer rows.Close()

	var out []models.VolunteerAssignment
	for rows.Next() {
		var (
			v        models.VolunteerAssignment
			assigned string
		)
		if err := rows.Scan(&v.ID, &v.RequestID, &v.VolunteerID, &v.AssignedBy, &assigned); err != nil {
			return nil, err
		}
		if v.AssignedDate, err = parseTime(assigned); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
