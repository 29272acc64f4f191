package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"ewaste-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Recovery] panic on %s %s (request %s): %v\n%s",
					r.Method, r.URL.Path, RequestIDFromContext(r.Context()), err, debug.Stack())
				utils.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
