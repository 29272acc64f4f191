package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ewaste-backend/internal/models"
)

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, name, email, phone, address, service_area, donor_type, occupation,
	password_hash, role, is_active, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user models.User
		role string
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Address, &user.ServiceArea,
		&user.DonorType, &user.Occupation, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(name, email, phone, address, service_area, donor_type, occupation,
		                   password_hash, role, is_active)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.Phone, u.Address, u.ServiceArea, u.DonorType, u.Occupation,
		u.PasswordHash, string(u.Role), u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

// ListByRole returns active users with the given role, by name
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role=$1 AND is_active ORDER BY name`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
