package models

import "time"

type Role string

const (
	RoleDonor     Role = "donor"
	RoleAdmin     Role = "admin"
	RoleRecycler  Role = "recycler"
	RoleVolunteer Role = "volunteer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleAdmin, RoleRecycler, RoleVolunteer:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	ServiceArea  *string   `json:"service_area,omitempty"`
	DonorType    *string   `json:"donor_type,omitempty"`
	Occupation   *string   `json:"occupation,omitempty"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DonorType   string `json:"donorType"`
	Occupation  string `json:"occupation"`
	ServiceArea string `json:"serviceArea"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type MeResponse struct {
	User *User `json:"user"`
}
