package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventInUse    = errors.New("event has bookings or payments and cannot be deleted")
)

const eventColumns = `id, name, description, category, location, start_date, end_date, time, status,
	amount_cents, leaf_points, organiser, picture_key, created_by, created_at, updated_at`

// Filter narrows List. Zero values match everything.
type Filter struct {
	Category models.EventCategory
	Status   models.EventStatus
}

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Category, &e.Location, &e.StartDate, &e.EndDate, &e.Time, &e.Status,
		&e.AmountCents, &e.LeafPoints, &e.Organiser, &e.PictureKey, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (name, description, category, location, start_date, end_date, time, status,
			amount_cents, leaf_points, organiser, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Name, e.Description, e.Category, e.Location, e.StartDate, e.EndDate, e.Time, e.Status,
		e.AmountCents, e.LeafPoints, e.Organiser, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// List returns events ordered by start date.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.pool.Query(ctx, q+" ORDER BY start_date, name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update overwrites the editable fields of e.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $1, description = $2, category = $3, location = $4, start_date = $5, end_date = $6,
			time = $7, status = $8, amount_cents = $9, leaf_points = $10, organiser = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.Name, e.Description, e.Category, e.Location, e.StartDate, e.EndDate,
		e.Time, e.Status, e.AmountCents, e.LeafPoints, e.Organiser, e.ID).Scan(&e.UpdatedAt)
	if database.IsNoRows(err) {
		return ErrEventNotFound
	}
	return err
}

// SetPicture stores the picture key and returns the previous one.
func (r *Repository) SetPicture(ctx context.Context, id uuid.UUID, key string) (string, error) {
	const q = `UPDATE events e SET picture_key = $1, updated_at = NOW()
		FROM (SELECT picture_key FROM events WHERE id = $2 FOR UPDATE) old
		WHERE e.id = $2
		RETURNING old.picture_key`
	var prev string
	err := r.pool.QueryRow(ctx, q, key, id).Scan(&prev)
	if database.IsNoRows(err) {
		return "", ErrEventNotFound
	}
	return prev, err
}

// Delete removes an event that nothing references.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrEventInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}
