package handlers

import (
	"fmt"
	"net/http"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/services"
	"ewaste-backend/internal/timeutil"
	"ewaste-backend/pkg/utils"
)

type RequestHandler struct {
	Service      *services.RequestService
	Certificates *services.CertificateService
}

func NewRequestHandler(s *services.RequestService, certs *services.CertificateService) *RequestHandler {
	return &RequestHandler{Service: s, Certificates: certs}
}

// Submit handles POST /api/requests
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.SubmitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.Service.Submit(r.Context(), a, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, models.SubmitResponse{
		Message:   "Request submitted",
		RequestID: created.ID,
	})
}

// List handles GET /api/requests
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requests, err := h.Service.ListRequests(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.Service.GetRequest(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, req)
}

// History handles GET /api/requests/{id}/history
func (h *RequestHandler) History(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.Service.History(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

// UpdateStatus handles PATCH /api/requests/{id}/status
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body models.UpdateStatusRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.Service.UpdateStatus(r.Context(), a, id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, updated)
}

// ListByDonor handles GET /api/requests/donor/{id}
func (h *RequestHandler) ListByDonor(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	donorID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	requests, err := h.Service.ListDonorRequests(r.Context(), a, donorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, requests)
}

// AssignRecycler handles POST /api/requests/assign-recycler
func (h *RequestHandler) AssignRecycler(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.AssignRecyclerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	assignment, err := h.Service.AssignRecycler(r.Context(), a, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.AssignRecyclerResponse{
		Success:      true,
		Message:      "Recycler assigned",
		AssignmentID: assignment.ID,
	})
}

// AssignVolunteer handles POST /api/requests/assign-volunteer
func (h *RequestHandler) AssignVolunteer(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.AssignVolunteerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	assignment, err := h.Service.AssignVolunteer(r.Context(), a, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, assignment)
}

// Certificate handles GET /api/requests/{id}/certificate
func (h *RequestHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	pdf, err := h.Certificates.Generate(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	filename := fmt.Sprintf("recycling_certificate_%d_%s.pdf", id, timeutil.FormatDisplay(timeutil.Now(), timeutil.DateLayout))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdf)
}
