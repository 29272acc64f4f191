package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"ewaste-backend/internal/middleware"
	"ewaste-backend/internal/services"
	"ewaste-backend/internal/workflow"
	"ewaste-backend/pkg/utils"
)

// writeError answers with the status code matching err's kind. Untyped errors
// are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, services.ErrAccountDisabled):
		utils.Error(w, http.StatusForbidden, err.Error())
		return
	}

	status := workflow.HTTPStatus(err)
	switch status {
	case http.StatusInternalServerError:
		log.Printf("[HTTP] %s %s (request %s): %v", r.Method, r.URL.Path, middleware.RequestIDFromContext(r.Context()), err)
		utils.Error(w, status, "Internal server error")
	case http.StatusServiceUnavailable:
		log.Printf("[HTTP] store unavailable on %s %s: %v", r.Method, r.URL.Path, err)
		utils.Error(w, status, "Service temporarily unavailable, please retry")
	default:
		msg := err.Error()
		var werr *workflow.Error
		if errors.As(err, &werr) {
			msg = werr.Msg
		}
		utils.Error(w, status, msg)
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return workflow.Validationf("Invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, workflow.Validationf("Invalid %s", name)
	}
	return id, nil
}

// actor is set by the auth middleware on every protected route.
func actor(r *http.Request) (workflow.Actor, error) {
	a, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return workflow.Actor{}, workflow.Unauthorizedf("authentication required")
	}
	return a, nil
}
