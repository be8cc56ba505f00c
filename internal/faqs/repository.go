package faqs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

var ErrFAQNotFound = errors.New("faq not found")

// Repository handles FAQ persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a FAQ repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts f.
func (r *Repository) Create(ctx context.Context, f *models.FAQ) error {
	return r.pool.QueryRow(ctx, `INSERT INTO faqs (question, answer, sort_order) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, f.Question, f.Answer, f.SortOrder).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

// List returns FAQs in display order.
func (r *Repository) List(ctx context.Context) ([]models.FAQ, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, question, answer, sort_order, created_at, updated_at FROM faqs ORDER BY sort_order, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.FAQ{}
	for rows.Next() {
		var f models.FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// Update overwrites f by id.
func (r *Repository) Update(ctx context.Context, f *models.FAQ) error {
	err := r.pool.QueryRow(ctx, `UPDATE faqs SET question = $1, answer = $2, sort_order = $3, updated_at = NOW()
		WHERE id = $4 RETURNING created_at, updated_at`, f.Question, f.Answer, f.SortOrder, f.ID).Scan(&f.CreatedAt, &f.UpdatedAt)
	if database.IsNoRows(err) {
		return ErrFAQNotFound
	}
	return err
}

// Delete removes a FAQ.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFAQNotFound
	}
	return nil
}
