package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

var (
	ErrAccountNotFound = models.ErrAccountNotFound
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
)

const accountColumns = `id, name, username, phone, email, password_hash, role, leaf_points, status, created_at, updated_at`

// Repository handles account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an account repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Username, &a.Phone, &a.Email, &a.PasswordHash, &a.Role, &a.LeafPoints, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByID returns an account by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByEmail returns an account by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email))
}

// GetByLogin returns the account whose email or username matches login.
func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE lower(email) = lower($1) OR username = $1 LIMIT 1`, login))
}

// List returns all accounts ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.AccountPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.AccountPublic{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a.ToPublic())
	}
	return list, rows.Err()
}

// Create inserts a new account and fills generated fields.
func (r *Repository) Create(ctx context.Context, a *models.Account) error {
	const q = `INSERT INTO accounts (name, username, phone, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, leaf_points, created_at, updated_at`
	if a.Status == "" {
		a.Status = models.AccountActive
	}
	err := r.pool.QueryRow(ctx, q, a.Name, a.Username, a.Phone, a.Email, a.PasswordHash, a.Role, a.Status).
		Scan(&a.ID, &a.LeafPoints, &a.CreatedAt, &a.UpdatedAt)
	return mapUniqueErr(err)
}

// UpdateProfile changes the editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, name, username, phone string) error {
	const q = `UPDATE accounts SET name = $1, username = $2, phone = $3, updated_at = NOW() WHERE id = $4`
	tag, err := r.pool.Exec(ctx, q, name, username, phone, id)
	if err != nil {
		return mapUniqueErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetStatus enables or disables an account.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func mapUniqueErr(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, "accounts_email_key"):
		return ErrEmailTaken
	case database.IsUniqueViolation(err, "accounts_username_key"):
		return ErrUsernameTaken
	default:
		return fmt.Errorf("write account: %w", err)
	}
}
