package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, display_name, bio, avatar_url, country,
	role, is_active, premium_until, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Bio,
		&u.AvatarURL, &u.Country, &u.Role, &u.IsActive, &u.PremiumUntil, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.QueryRow(`
		INSERT INTO users (username, email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.DisplayName, u.Role,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	return scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

func (r *UserRepository) UpdateProfile(u *models.User) error {
	_, err := r.db.Exec(`
		UPDATE users SET display_name=$1, bio=$2, avatar_url=$3, country=$4, updated_at=NOW()
		WHERE id=$5`,
		u.DisplayName, u.Bio, u.AvatarURL, u.Country, u.ID)
	return err
}

func (r *UserRepository) SetRole(id uuid.UUID, role models.UserRole) error {
	_, err := r.db.Exec(`UPDATE users SET role=$1, updated_at=NOW() WHERE id=$2`, role, id)
	return err
}

func (r *UserRepository) SetActive(id uuid.UUID, active bool) error {
	_, err := r.db.Exec(`UPDATE users SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	return err
}

func (r *UserRepository) SetPremiumUntil(id uuid.UUID, until interface{}) error {
	_, err := r.db.Exec(`UPDATE users SET premium_until=$1, updated_at=NOW() WHERE id=$2`, until, id)
	return err
}

func (r *UserRepository) List(limit, offset int) ([]models.User, error) {
	rows, err := r.db.Query(`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
