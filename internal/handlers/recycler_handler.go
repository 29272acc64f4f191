package handlers

import (
	"net/http"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/services"
	"ewaste-backend/pkg/utils"
)

type RecyclerHandler struct {
	Service *services.RequestService
}

func NewRecyclerHandler(s *services.RequestService) *RecyclerHandler {
	return &RecyclerHandler{Service: s}
}

// CompleteAssignment handles POST /api/recycler/complete-assignment
func (h *RecyclerHandler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.CompleteAssignmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	done, err := h.Service.CompleteAssignment(r.Context(), a, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Assignment completed",
		"request": done,
	})
}

// ListAssignments handles GET /api/recycler/{id}/assignments
func (h *RecyclerHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recyclerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	assignments, err := h.Service.ListRecyclerAssignments(r.Context(), a, recyclerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, assignments)
}

// ListAll handles GET /api/recycler/all
func (h *RecyclerHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recyclers, err := h.Service.ListRecyclers(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, recyclers)
}

// ListVolunteers handles GET /api/volunteers
func (h *RecyclerHandler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	volunteers, err := h.Service.ListVolunteers(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, volunteers)
}
