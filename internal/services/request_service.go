package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"ewaste-backend/internal/cache"
	"ewaste-backend/internal/metrics"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
)

// RequestService is the actor-facing layer over the workflow engine. It checks
// who is calling and fills identity defaults, then delegates.
type RequestService struct {
	Engine *workflow.Engine
	Store  workflow.Store
}

func NewRequestService(engine *workflow.Engine) *RequestService {
	return &RequestService{Engine: engine, Store: engine.Store()}
}

// ObserveTransition keeps metrics and the read cache in step with committed
// transitions. Register it with workflow.WithObserver.
func ObserveTransition(t workflow.Transition) {
	from := "none"
	if t.From != nil {
		from = string(*t.From)
	}
	metrics.WorkflowTransitions.WithLabelValues(from, string(t.To)).Inc()
	cache.InvalidateRequest(context.Background(), t.RequestID)
}

func recordFailure(op string, err error) error {
	if err != nil {
		metrics.WorkflowFailures.WithLabelValues(op, workflow.KindLabel(err)).Inc()
	}
	return err
}

// Submit files a donation request. Donors submit for themselves; admins may
// submit on behalf of any donor.
func (s *RequestService) Submit(ctx context.Context, actor workflow.Actor, req *models.SubmitRequest) (*models.DonationRequest, error) {
	donorID := req.DonorID
	switch actor.Role {
	case models.RoleDonor:
		if donorID == 0 {
			donorID = actor.ID
		}
		if donorID != actor.ID {
			return nil, recordFailure("submit", workflow.Unauthorizedf("donors can only submit their own requests"))
		}
	case models.RoleAdmin:
	default:
		return nil, recordFailure("submit", workflow.Unauthorizedf("only donors and admins can submit requests"))
	}

	created, err := s.Engine.Submit(ctx, donorID, req.WasteType, req.Description, req.ServiceArea)
	return created, recordFailure("submit", err)
}

// adminID resolves the adminId field of an admin operation against the caller.
func adminID(actor workflow.Actor, claimed int) (int, error) {
	if !actor.Is(models.RoleAdmin) {
		return 0, workflow.Unauthorizedf("admin access required")
	}
	if claimed != 0 && claimed != actor.ID {
		return 0, workflow.Unauthorizedf("adminId does not match the signed-in admin")
	}
	return actor.ID, nil
}

func (s *RequestService) AssignRecycler(ctx context.Context, actor workflow.Actor, req *models.AssignRecyclerRequest) (*models.RecyclerAssignment, error) {
	admin, err := adminID(actor, req.AdminID)
	if err != nil {
		return nil, recordFailure("assign_recycler", err)
	}
	a, err := s.Engine.AssignRecycler(ctx, req.RequestID, req.RecyclerID, admin)
	return a, recordFailure("assign_recycler", err)
}

// CompleteAssignment is called by the recycler that owns the assignment.
func (s *RequestService) CompleteAssignment(ctx context.Context, actor workflow.Actor, req *models.CompleteAssignmentRequest) (*models.DonationRequest, error) {
	if !actor.Is(models.RoleRecycler) {
		return nil, recordFailure("complete_assignment", workflow.Unauthorizedf("only recyclers can complete assignments"))
	}
	recyclerID := req.RecyclerID
	if recyclerID == 0 {
		recyclerID = actor.ID
	}
	if recyclerID != actor.ID {
		return nil, recordFailure("complete_assignment", workflow.Unauthorizedf("recyclerId does not match the signed-in recycler"))
	}
	done, err := s.Engine.CompleteAssignment(ctx, req.AssignmentID, req.RequestID, recyclerID)
	return done, recordFailure("complete_assignment", err)
}

func (s *RequestService) UpdateStatus(ctx context.Context, actor workflow.Actor, requestID int, status models.RequestStatus) (*models.DonationRequest, error) {
	admin, err := adminID(actor, 0)
	if err != nil {
		return nil, recordFailure("update_status", err)
	}
	updated, err := s.Engine.UpdateStatus(ctx, requestID, status, admin)
	return updated, recordFailure("update_status", err)
}

func (s *RequestService) AssignVolunteer(ctx context.Context, actor workflow.Actor, req *models.AssignVolunteerRequest) (*models.VolunteerAssignment, error) {
	admin, err := adminID(actor, req.AdminID)
	if err != nil {
		return nil, recordFailure("assign_volunteer", err)
	}
	v, err := s.Engine.AssignVolunteer(ctx, req.RequestID, req.VolunteerID, admin)
	return v, recordFailure("assign_volunteer", err)
}

// GetRequest returns a request the actor is allowed to see.
func (s *RequestService) GetRequest(ctx context.Context, actor workflow.Actor, id int) (*models.DonationRequest, error) {
	req, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// History returns the status log of a request the actor is allowed to see,
// most recent first.
func (s *RequestService) History(ctx context.Context, actor workflow.Actor, id int) ([]models.StatusHistoryEntry, error) {
	req, err := s.GetRequest(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if data, ok := cache.GetCachedHistory(ctx, id); ok {
		var entries []models.StatusHistoryEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
	}

	entries, err := s.Engine.History(ctx, id)
	if err != nil {
		return nil, recordFailure("history", err)
	}
	if req.Status.Terminal() {
		if data, err := json.Marshal(entries); err == nil {
			cache.CacheHistory(ctx, id, data)
		}
	}
	return entries, nil
}

// loadRequest reads through the cache. Only terminal requests are cached;
// nothing can change them any more.
func (s *RequestService) loadRequest(ctx context.Context, id int) (*models.DonationRequest, error) {
	if data, ok := cache.GetCachedRequest(ctx, id); ok {
		var req models.DonationRequest
		if err := json.Unmarshal(data, &req); err == nil {
			return &req, nil
		}
		log.Printf("[Cache] dropping unreadable entry for request %d", id)
	}

	req, err := s.Engine.Request(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		if data, err := json.Marshal(req); err == nil {
			cache.CacheRequest(ctx, id, data)
		}
	}
	return req, nil
}

// checkVisible lets admins see everything, donors their own requests, and
// recyclers and volunteers the requests assigned to them.
func (s *RequestService) checkVisible(ctx context.Context, actor workflow.Actor, req *models.DonationRequest) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleDonor:
		if req.DonorID == actor.ID {
			return nil
		}
	case models.RoleRecycler:
		a, err := s.Store.GetAssignmentByRequest(ctx, req.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return workflow.KindError(workflow.ErrTransientStore, "get assignment", err)
		}
		if a != nil && a.RecyclerID == actor.ID {
			return nil
		}
	case models.RoleVolunteer:
		vs, err := s.Store.ListVolunteerAssignments(ctx, req.ID)
		if err != nil {
			return workflow.KindError(workflow.ErrTransientStore, "list volunteer assignments", err)
		}
		for _, v := range vs {
			if v.VolunteerID == actor.ID {
				return nil
			}
		}
	}
	return workflow.Unauthorizedf("request %d is not visible to this account", req.ID)
}

// ListRequests returns every request. Admin only.
func (s *RequestService) ListRequests(ctx context.Context, actor workflow.Actor) ([]models.DonationRequest, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, workflow.Unauthorizedf("admin access required")
	}
	return storeResult(s.Store.ListRequests(ctx))
}

func (s *RequestService) ListDonorRequests(ctx context.Context, actor workflow.Actor, donorID int) ([]models.DonationRequest, error) {
	if !actor.Is(models.RoleAdmin) && !(actor.Is(models.RoleDonor) && actor.ID == donorID) {
		return nil, workflow.Unauthorizedf("donors can only list their own requests")
	}
	return storeResult(s.Store.ListRequestsByDonor(ctx, donorID))
}

func (s *RequestService) ListRecyclerAssignments(ctx context.Context, actor workflow.Actor, recyclerID int) ([]models.AssignmentDetail, error) {
	if !actor.Is(models.RoleAdmin) && !(actor.Is(models.RoleRecycler) && actor.ID == recyclerID) {
		return nil, workflow.Unauthorizedf("recyclers can only list their own assignments")
	}
	return storeResult(s.Store.ListAssignmentsByRecycler(ctx, recyclerID))
}

// ListRecyclers is open to every signed-in account; donors use it to pick a
// service area.
func (s *RequestService) ListRecyclers(ctx context.Context, _ workflow.Actor) ([]models.User, error) {
	return storeResult(s.Store.ListUsersByRole(ctx, models.RoleRecycler))
}

func (s *RequestService) ListVolunteers(ctx context.Context, actor workflow.Actor) ([]models.User, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, workflow.Unauthorizedf("admin access required")
	}
	return storeResult(s.Store.ListUsersByRole(ctx, models.RoleVolunteer))
}

// storeResult normalises a store read: failures become TransientStoreError
// and an empty result is an empty slice rather than null.
func storeResult[T any](items []T, err error) ([]T, error) {
	if err != nil {
		return nil, workflow.KindError(workflow.ErrTransientStore, "store read", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
