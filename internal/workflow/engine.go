package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"ewaste-backend/internal/models"
)

const defaultTxTimeout = 10 * time.Second

// Transition describes a committed status change.
type Transition struct {
	RequestID int
	From      *models.RequestStatus
	To        models.RequestStatus
	ActorID   *int
	At        time.Time
}

// Engine owns the request lifecycle. It holds no state of its own: every
// operation reads the current status inside a transaction and writes the new
// status with a conditional update, so concurrent callers race on the row and
// exactly one wins.
type Engine struct {
	store     Store
	now       func() time.Time
	txTimeout time.Duration
	observers []func(Transition)
}

type Option func(*Engine)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTxTimeout bounds how long a single transition may hold its transaction.
func WithTxTimeout(d time.Duration) Option {
	return func(e *Engine) { e.txTimeout = d }
}

// WithObserver registers fn to be called after every committed transition.
func WithObserver(fn func(Transition)) Option {
	return func(e *Engine) { e.observers = append(e.observers, fn) }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		txTimeout: defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store for read paths.
func (e *Engine) Store() Store { return e.store }

// run executes fn in a transaction that is detached from the caller's
// cancellation: once a transition starts it either commits or rolls back on
// its own. Committed transitions are handed to observers.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx, emit func(Transition)) error) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.txTimeout)
	defer cancel()

	var pending []Transition
	emit := func(t Transition) { pending = append(pending, t) }

	err := e.store.WithinTx(txCtx, func(tx Tx) error {
		pending = pending[:0]
		return fn(txCtx, tx, emit)
	})
	if err != nil {
		return storeFailure(op, err)
	}

	for _, t := range pending {
		for _, obs := range e.observers {
			obs(t)
		}
	}
	return nil
}

// transition moves req to `to` and appends the matching history entry.
func (e *Engine) transition(ctx context.Context, tx Tx, req *models.DonationRequest, to models.RequestStatus, actorID int, emit func(Transition)) error {
	from := req.Status
	if !CanTransition(from, to) {
		return invalidStatef("request %d cannot move from %s to %s", req.ID, from, to)
	}

	now := e.now()
	var resolvedAt *time.Time
	if to.Terminal() {
		resolvedAt = &now
	}

	ok, err := tx.UpdateRequestStatus(ctx, req.ID, from, to, resolvedAt)
	if err != nil {
		return storeFailure("update request status", err)
	}
	if !ok {
		// Another caller changed the status after we read it.
		return invalidStatef("request %d is no longer %s", req.ID, from)
	}

	changedBy := actorID
	entry := &models.StatusHistoryEntry{
		RequestID:  req.ID,
		OldStatus:  &from,
		NewStatus:  to,
		ChangeDate: now,
		ChangedBy:  &changedBy,
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return storeFailure("append status history", err)
	}

	req.Status = to
	req.DateResolved = resolvedAt
	emit(Transition{RequestID: req.ID, From: &from, To: to, ActorID: &changedBy, At: now})
	return nil
}

// loadUser fetches a user and checks its role.
func loadUser(ctx context.Context, tx Tx, id int, role models.Role) (*models.User, error) {
	u, err := tx.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, notFoundf("%s %d not found", role, id)
	}
	if err != nil {
		return nil, storeFailure("get user", err)
	}
	if u.Role != role {
		return nil, notFoundf("%s %d not found", role, id)
	}
	return u, nil
}

func loadRequest(ctx context.Context, tx Tx, id int) (*models.DonationRequest, error) {
	req, err := tx.GetRequest(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, notFoundf("request %d not found", id)
	}
	if err != nil {
		return nil, storeFailure("get request", err)
	}
	return req, nil
}

// Submit creates a pending request and its initial history entry.
func (e *Engine) Submit(ctx context.Context, donorID int, wasteType, description, serviceArea string) (*models.DonationRequest, error) {
	wasteType = strings.TrimSpace(wasteType)
	description = strings.TrimSpace(description)
	serviceArea = strings.TrimSpace(serviceArea)

	var missing []string
	if donorID <= 0 {
		missing = append(missing, "donorId")
	}
	if wasteType == "" {
		missing = append(missing, "wasteType")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if serviceArea == "" {
		missing = append(missing, "serviceArea")
	}
	if len(missing) > 0 {
		return nil, validationf("missing required fields: %s", strings.Join(missing, ", "))
	}

	var created *models.DonationRequest
	err := e.run(ctx, "submit request", func(ctx context.Context, tx Tx, emit func(Transition)) error {
		if _, err := loadUser(ctx, tx, donorID, models.RoleDonor); err != nil {
			return err
		}

		now := e.now()
		req := &models.DonationRequest{
			DonorID:       donorID,
			WasteType:     wasteType,
			Description:   description,
			ServiceArea:   serviceArea,
			Status:        models.StatusPending,
			DateSubmitted: now,
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return storeFailure("insert request", err)
		}

		entry := &models.StatusHistoryEntry{
			RequestID:  req.ID,
			NewStatus:  models.StatusPending,
			ChangeDate: now,
			ChangedBy:  &donorID,
		}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return storeFailure("append status history", err)
		}

		created = req
		emit(Transition{RequestID: req.ID, To: models.StatusPending, ActorID: &donorID, At: now})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AssignRecycler moves a pending request to processing and creates its
// assignment in the same transaction.
func (e *Engine) AssignRecycler(ctx context.Context, requestID, recyclerID, adminID int) (*models.RecyclerAssignment, error) {
	if requestID <= 0 || recyclerID <= 0 || adminID <= 0 {
		return nil, validationf("requestId, recyclerId and adminId are required")
	}

	var assignment *models.RecyclerAssignment
	err := e.run(ctx, "assign recycler", func(ctx context.Context, tx Tx, emit func(Transition)) error {
		req, err := loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.StatusPending {
			return invalidStatef("request %d is %s, not pending", requestID, req.Status)
		}
		if _, err := loadUser(ctx, tx, recyclerID, models.RoleRecycler); err != nil {
			return err
		}

		if err := e.transition(ctx, tx, req, models.StatusProcessing, adminID, emit); err != nil {
			return err
		}

		a := &models.RecyclerAssignment{
			RequestID:    requestID,
			RecyclerID:   recyclerID,
			AssignedBy:   adminID,
			AssignedDate: e.now(),
		}
		if err := tx.InsertAssignment(ctx, a); err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				return invalidStatef("request %d already has a recycler assigned", requestID)
			}
			return storeFailure("insert assignment", err)
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// CompleteAssignment marks an assigned request completed on behalf of the
// recycler that owns the assignment.
func (e *Engine) CompleteAssignment(ctx context.Context, assignmentID, requestID, recyclerID int) (*models.DonationRequest, error) {
	if assignmentID <= 0 || requestID <= 0 || recyclerID <= 0 {
		return nil, validationf("assignmentId, requestId and recyclerId are required")
	}

	var completed *models.DonationRequest
	err := e.run(ctx, "complete assignment", func(ctx context.Context, tx Tx, emit func(Transition)) error {
		a, err := tx.GetAssignment(ctx, assignmentID)
		if errors.Is(err, models.ErrNotFound) {
			return notFoundf("assignment %d not found", assignmentID)
		}
		if err != nil {
			return storeFailure("get assignment", err)
		}
		if a.RecyclerID != recyclerID {
			return unauthorizedf("assignment %d does not belong to recycler %d", assignmentID, recyclerID)
		}
		if a.RequestID != requestID {
			return validationf("assignment %d is not for request %d", assignmentID, requestID)
		}

		req, err := loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.StatusProcessing {
			return invalidStatef("request %d is %s, not processing", requestID, req.Status)
		}

		if err := e.transition(ctx, tx, req, models.StatusCompleted, recyclerID, emit); err != nil {
			return err
		}
		if err := tx.MarkAssignmentCompleted(ctx, assignmentID, *req.DateResolved); err != nil {
			return storeFailure("mark assignment completed", err)
		}
		completed = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// UpdateStatus applies an administrative review decision (approved or
// rejected).
func (e *Engine) UpdateStatus(ctx context.Context, requestID int, to models.RequestStatus, adminID int) (*models.DonationRequest, error) {
	if !to.Valid() {
		return nil, validationf("unknown status %q", to)
	}
	if !reviewTargets[to] {
		return nil, validationf("status %s can only be reached through its own operation", to)
	}

	var updated *models.DonationRequest
	err := e.run(ctx, "update status", func(ctx context.Context, tx Tx, emit func(Transition)) error {
		req, err := loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := e.transition(ctx, tx, req, to, adminID, emit); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignVolunteer links a volunteer to an open request. It does not change
// the request status.
func (e *Engine) AssignVolunteer(ctx context.Context, requestID, volunteerID, adminID int) (*models.VolunteerAssignment, error) {
	if requestID <= 0 || volunteerID <= 0 || adminID <= 0 {
		return nil, validationf("requestId, volunteerId and adminId are required")
	}

	var assignment *models.VolunteerAssignment
	err := e.run(ctx, "assign volunteer", func(ctx context.Context, tx Tx, _ func(Transition)) error {
		req, err := loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status.Terminal() {
			return invalidStatef("request %d is already %s", requestID, req.Status)
		}
		if _, err := loadUser(ctx, tx, volunteerID, models.RoleVolunteer); err != nil {
			return err
		}

		v := &models.VolunteerAssignment{
			RequestID:    requestID,
			VolunteerID:  volunteerID,
			AssignedBy:   adminID,
			AssignedDate: e.now(),
		}
		if err := tx.InsertVolunteerAssignment(ctx, v); err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				return invalidStatef("volunteer %d is already assigned to request %d", volunteerID, requestID)
			}
			return storeFailure("insert volunteer assignment", err)
		}
		assignment = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// History returns the status history of a request, most recent first. Entries
// sharing a timestamp are ordered by descending id.
func (e *Engine) History(ctx context.Context, requestID int) ([]models.StatusHistoryEntry, error) {
	if _, err := e.Request(ctx, requestID); err != nil {
		return nil, err
	}

	entries, err := e.store.ListHistory(ctx, requestID)
	if err != nil {
		return nil, storeFailure("list status history", err)
	}
	if len(entries) == 0 {
		log.Printf("[Workflow] request %d has no status history", requestID)
		return nil, fmt.Errorf("request %d has no status history", requestID)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ChangeDate.Equal(entries[j].ChangeDate) {
			return entries[i].ChangeDate.After(entries[j].ChangeDate)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

// Request returns a single request.
func (e *Engine) Request(ctx context.Context, requestID int) (*models.DonationRequest, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, notFoundf("request %d not found", requestID)
	}
	if err != nil {
		return nil, storeFailure("get request", err)
	}
	return req, nil
}
