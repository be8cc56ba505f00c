package emaillogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status    string
	Reference string
	Limit     int
}

// StatusCount is the number of logs in one delivery status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a pending log with id. Recording the same id again is a no-op, so retried jobs keep one row.
func (r *Repository) Record(ctx context.Context, id uuid.UUID, emailType, reference, recipient, subject string) error {
	const q = `INSERT INTO email_logs (id, email_type, reference, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, id, emailType, reference, recipient, subject)
	return err
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_logs SET status = 'sent', sent_at = NOW(), error_message = NULL WHERE id = $1`, id)
	return err
}

// MarkFailed records the last delivery error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_logs SET status = 'failed', error_message = $2 WHERE id = $1`, id, reason)
	return err
}

// List returns email logs, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]*models.EmailLog, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	const q = `SELECT id, email_type, reference, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR reference = $2)
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, q, f.Status, f.Reference, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.EmailLog{}
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.EmailType, &el.Reference, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}

// CountByStatus returns how many logs are in each status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM email_logs GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StatusCount{}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
