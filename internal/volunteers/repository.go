package volunteers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

var (
	ErrVolunteerNotFound = errors.New("volunteer not found")
	ErrDuplicateEmail    = errors.New("email is already registered as a volunteer")
)

const volunteerColumns = `id, name, email, phone, interests, availability, created_at, updated_at`

// Repository handles volunteer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a volunteer repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVolunteer(row rowScanner) (*models.Volunteer, error) {
	var v models.Volunteer
	err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Interests, &v.Availability, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrVolunteerNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts v. The email is unique across volunteers.
func (r *Repository) Create(ctx context.Context, v *models.Volunteer) error {
	const q = `INSERT INTO volunteers (name, email, phone, interests, availability)
		VALUES ($1, lower($2), $3, $4, $5)
		RETURNING id, email, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, v.Name, v.Email, v.Phone, v.Interests, v.Availability).
		Scan(&v.ID, &v.Email, &v.CreatedAt, &v.UpdatedAt)
	if database.IsUniqueViolation(err, "volunteers_email_key") {
		return ErrDuplicateEmail
	}
	return err
}

// List returns volunteers by availability date.
func (r *Repository) List(ctx context.Context) ([]models.Volunteer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+volunteerColumns+` FROM volunteers ORDER BY availability, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Volunteer{}
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// Update overwrites v by id.
func (r *Repository) Update(ctx context.Context, v *models.Volunteer) error {
	const q = `UPDATE volunteers SET name = $1, email = lower($2), phone = $3, interests = $4, availability = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING email, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, v.Name, v.Email, v.Phone, v.Interests, v.Availability, v.ID).
		Scan(&v.Email, &v.CreatedAt, &v.UpdatedAt)
	switch {
	case database.IsNoRows(err):
		return ErrVolunteerNotFound
	case database.IsUniqueViolation(err, "volunteers_email_key"):
		return ErrDuplicateEmail
	}
	return err
}

// Delete removes a volunteer.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM volunteers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVolunteerNotFound
	}
	return nil
}
