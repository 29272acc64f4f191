package workflow

import "ewaste-backend/internal/models"

// Actor is a caller identity already verified by the auth layer.
type Actor struct {
	ID   int
	Role models.Role
}

func (a Actor) Is(role models.Role) bool { return a.Role == role }
