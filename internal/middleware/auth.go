package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ewaste-backend/internal/auth"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
	"ewaste-backend/pkg/utils"
)

type contextKey string

const actorKey contextKey = "actor"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      workflow.UserStore
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users workflow.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate validates the bearer token and puts the caller's Actor in the
// request context. A request already carrying an Actor from an outer
// Authenticate passes straight through.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		actor, status, msg := m.identify(r)
		if status != 0 {
			utils.Error(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// identify resolves the request's token to an Actor. A non-zero status means
// the request must be refused with msg.
func (m *AuthMiddleware) identify(r *http.Request) (workflow.Actor, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return workflow.Actor{}, http.StatusUnauthorized, "Authorization header required"
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return workflow.Actor{}, http.StatusUnauthorized, "Invalid authorization format"
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return workflow.Actor{}, http.StatusUnauthorized, "Invalid or expired token"
	}

	// Role and active flag come from the database so suspensions apply at once
	user, err := m.users.GetUser(r.Context(), claims.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return workflow.Actor{}, http.StatusUnauthorized, "User not found"
	}
	if err != nil {
		return workflow.Actor{}, http.StatusServiceUnavailable, "Could not verify account"
	}
	if !user.IsActive {
		return workflow.Actor{}, http.StatusForbidden, "Account suspended. Please contact administrator."
	}

	return workflow.Actor{ID: user.ID, Role: user.Role}, 0, ""
}

// RequireRole authenticates the request and refuses callers outside roles.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := ActorFromContext(r.Context())
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, http.StatusForbidden, "Forbidden: Insufficient permissions")
		}))
	}
}

func WithActor(ctx context.Context, actor workflow.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the identity set by Authenticate.
func ActorFromContext(ctx context.Context) (workflow.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(workflow.Actor)
	return actor, ok
}
