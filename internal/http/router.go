package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ewaste-backend/internal/handlers"
	"ewaste-backend/internal/middleware"
	"ewaste-backend/internal/models"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	requestHandler *handlers.RequestHandler,
	recyclerHandler *handlers.RecyclerHandler,
	exportHandler *handlers.ExportHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.Handle("/auth/me", authMiddleware.Authenticate(http.HandlerFunc(authHandler.Me))).Methods("GET")

	// Protected API routes - Donation requests
	requestsAPI := r.PathPrefix("/api/requests").Subrouter()
	requestsAPI.Use(authMiddleware.Authenticate)
	requestsAPI.HandleFunc("", requestHandler.Submit).Methods("POST")
	requestsAPI.HandleFunc("", requestHandler.List).Methods("GET")
	requestsAPI.HandleFunc("/assign-recycler", requestHandler.AssignRecycler).Methods("POST")
	requestsAPI.HandleFunc("/assign-volunteer", requestHandler.AssignVolunteer).Methods("POST")
	requestsAPI.HandleFunc("/donor/{id:[0-9]+}", requestHandler.ListByDonor).Methods("GET")
	requestsAPI.HandleFunc("/{id:[0-9]+}", requestHandler.Get).Methods("GET")
	requestsAPI.HandleFunc("/{id:[0-9]+}/history", requestHandler.History).Methods("GET")
	requestsAPI.HandleFunc("/{id:[0-9]+}/status", requestHandler.UpdateStatus).Methods("PATCH")
	requestsAPI.HandleFunc("/{id:[0-9]+}/certificate", requestHandler.Certificate).Methods("GET")

	// Protected API routes - Recyclers
	recyclerAPI := r.PathPrefix("/api/recycler").Subrouter()
	recyclerAPI.Use(authMiddleware.Authenticate)
	recyclerAPI.HandleFunc("/all", recyclerHandler.ListAll).Methods("GET")
	recyclerAPI.HandleFunc("/{id:[0-9]+}/assignments", recyclerHandler.ListAssignments).Methods("GET")
	recyclerAPI.Handle("/complete-assignment",
		authMiddleware.RequireRole(models.RoleRecycler)(http.HandlerFunc(recyclerHandler.CompleteAssignment))).Methods("POST")

	// Protected API routes - Volunteers (admin only)
	r.Handle("/api/volunteers",
		authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(recyclerHandler.ListVolunteers))).Methods("GET")

	// Protected API routes - Admin exports
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Use(authMiddleware.RequireRole(models.RoleAdmin))
	adminAPI.HandleFunc("/exports/history", exportHandler.ExportHistory).Methods("POST")

	// Health endpoints (no auth required - for load balancer checks)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
