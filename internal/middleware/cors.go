package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"ewaste-backend/internal/config"
)

// NewCORS allows the configured dashboard origins and exposes the request id
// and download filename headers. Credentials stay off: auth is a bearer header.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	})

	return c.Handler
}
