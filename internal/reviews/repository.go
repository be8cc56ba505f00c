package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrEventNotFound  = errors.New("event not found")
)

const reviewColumns = `id, account_id, event_id, name, rating, comment, created_at, updated_at`

// Repository handles review persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a review repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(row rowScanner) (*models.Review, error) {
	var rv models.Review
	err := row.Scan(&rv.ID, &rv.AccountID, &rv.EventID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// Create inserts rv.
func (r *Repository) Create(ctx context.Context, rv *models.Review) error {
	const q = `INSERT INTO reviews (account_id, event_id, name, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, rv.AccountID, rv.EventID, rv.Name, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrEventNotFound
	}
	return err
}

// GetByID returns a review by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
}

// List returns reviews newest first, optionally only those of one event.
func (r *Repository) List(ctx context.Context, eventID *uuid.UUID) ([]models.Review, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reviewColumns+` FROM reviews
		WHERE ($1::uuid IS NULL OR event_id = $1) ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rv)
	}
	return list, rows.Err()
}

// Update overwrites the rating and comment of rv.
func (r *Repository) Update(ctx context.Context, rv *models.Review) error {
	err := r.pool.QueryRow(ctx, `UPDATE reviews SET rating = $1, comment = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at`,
		rv.Rating, rv.Comment, rv.ID).Scan(&rv.UpdatedAt)
	if database.IsNoRows(err) {
		return ErrReviewNotFound
	}
	return err
}

// Delete removes a review.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}
