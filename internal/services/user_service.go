package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"ewaste-backend/internal/auth"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
)

// ErrInvalidCredentials is returned by Login for any unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAccountDisabled is returned by Login for deactivated users.
var ErrAccountDisabled = errors.New("account suspended, please contact an administrator")

type UserService struct {
	Users            workflow.UserStore
	JWTManager       *auth.JWTManager
	AllowAdminSignup bool
}

func NewUserService(users workflow.UserStore, jwtManager *auth.JWTManager, allowAdminSignup bool) *UserService {
	return &UserService{
		Users:            users,
		JWTManager:       jwtManager,
		AllowAdminSignup: allowAdminSignup,
	}
}

// Signup validates the role-specific fields, creates the user and signs them in.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	user, err := s.newUser(req)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *UserService) newUser(req *models.SignupRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" || req.Role == "" {
		return nil, workflow.Validationf("name, email, password and role are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, workflow.Validationf("invalid email address")
	}
	if err := auth.CheckPasswordPolicy(req.Password); err != nil {
		return nil, workflow.Validationf("%s", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Role:     req.Role,
		IsActive: true,
		Phone:    optional(req.Phone),
		Address:  optional(req.Address),
	}

	switch req.Role {
	case models.RoleDonor:
		if strings.TrimSpace(req.DonorType) == "" {
			return nil, workflow.Validationf("donor type is required")
		}
		user.DonorType = optional(req.DonorType)
	case models.RoleVolunteer:
		if strings.TrimSpace(req.Occupation) == "" {
			return nil, workflow.Validationf("occupation is required for volunteers")
		}
		user.Occupation = optional(req.Occupation)
	case models.RoleRecycler:
		if strings.TrimSpace(req.ServiceArea) == "" || strings.TrimSpace(req.Phone) == "" {
			return nil, workflow.Validationf("service area and phone number are required for recyclers")
		}
		user.ServiceArea = optional(req.ServiceArea)
	case models.RoleAdmin:
		if !s.AllowAdminSignup {
			return nil, workflow.Unauthorizedf("admin accounts cannot be created through signup")
		}
	default:
		return nil, workflow.Validationf("invalid role %q", req.Role)
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, user *models.User, password string) error {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hashedPassword

	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return workflow.Conflictf("user with this email already exists")
		}
		return err
	}
	return nil
}

// Login authenticates a user and returns a JWT token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, workflow.Validationf("email and password are required")
	}

	user, err := s.Users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

// Me returns the account behind an authenticated actor.
func (s *UserService) Me(ctx context.Context, actor workflow.Actor) (*models.User, error) {
	user, err := s.Users.GetUser(ctx, actor.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, workflow.NotFoundf("user %d not found", actor.ID)
	}
	if err != nil {
		return nil, workflow.KindError(workflow.ErrTransientStore, "get user", err)
	}
	return user, nil
}

// SeedAdmin creates an administrator. It backs the seed-admin command and
// bypasses the signup restriction on admins.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, workflow.Validationf("%s", err)
	}
	user := &models.User{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if user.Name == "" || user.Email == "" {
		return nil, workflow.Validationf("name and email are required")
	}
	if err := s.create(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
