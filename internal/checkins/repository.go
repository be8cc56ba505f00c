package checkins

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/bookings"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

const returningColumns = `ci.id, ci.booking_id, ci.event_id, ci.account_id, ci.attendee_name, ci.attendee_email,
	ci.qr_code_text, ci.qr_code_url, ci.qr_code_checked, ci.qr_code_status, ci.check_in_time, ci.leaf_points, ci.created_at`

// Repository handles check-in persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-in repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Consume marks the row for token as checked and credits its leaf points to the attendee's account.
func (r *Repository) Consume(ctx context.Context, token string) (*models.CheckIn, error) {
	var out *models.CheckIn
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `UPDATE check_ins ci
			SET qr_code_checked = TRUE, qr_code_status = 'Checked', check_in_time = NOW()
			FROM bookings b
			WHERE ci.qr_code_text = $1 AND ci.qr_code_checked = FALSE
				AND b.id = ci.booking_id AND b.status = 'Active'
			RETURNING ` + returningColumns
		ci, err := bookings.ScanCheckIn(tx.QueryRow(ctx, q, token))
		if err != nil {
			if database.IsNoRows(err) {
				return classify(ctx, tx, token)
			}
			return err
		}
		if ci.AccountID != nil && ci.LeafPoints > 0 {
			_, err := tx.Exec(ctx, `UPDATE accounts SET leaf_points = leaf_points + $2, updated_at = NOW() WHERE id = $1`,
				*ci.AccountID, ci.LeafPoints)
			if err != nil {
				return fmt.Errorf("credit leaf points: %w", err)
			}
		}
		out = ci
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classify explains why no row was consumed.
func classify(ctx context.Context, tx pgx.Tx, token string) error {
	var checked bool
	var status models.BookingStatus
	err := tx.QueryRow(ctx, `SELECT ci.qr_code_checked, b.status
		FROM check_ins ci JOIN bookings b ON b.id = ci.booking_id
		WHERE ci.qr_code_text = $1`, token).Scan(&checked, &status)
	switch {
	case database.IsNoRows(err):
		return ErrTokenNotFound
	case err != nil:
		return err
	case checked:
		return ErrAlreadyCheckedIn
	case status != models.BookingActive:
		return ErrBookingCancelled
	default:
		// consumed by a concurrent scan between the update and this read
		return ErrAlreadyCheckedIn
	}
}

// Preview returns the check-in for token with its event name and booking status.
func (r *Repository) Preview(ctx context.Context, token string) (*Preview, error) {
	const q = `SELECT ` + returningColumns + `, e.name, b.status
		FROM check_ins ci
		JOIN bookings b ON b.id = ci.booking_id
		JOIN events e ON e.id = ci.event_id
		WHERE ci.qr_code_text = $1`
	var p Preview
	ci := &p.CheckIn
	err := r.pool.QueryRow(ctx, q, token).Scan(&ci.ID, &ci.BookingID, &ci.EventID, &ci.AccountID, &ci.AttendeeName,
		&ci.AttendeeEmail, &ci.QRCodeText, &ci.QRCodeURL, &ci.QRCodeChecked, &ci.QRCodeStatus, &ci.CheckInTime,
		&ci.LeafPoints, &ci.CreatedAt, &p.EventName, &p.BookingStatus)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByEvent returns the check-in rows of an event, checked ones first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.CheckIn, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookings.CheckInColumns+` FROM check_ins
		WHERE event_id = $1 ORDER BY qr_code_checked DESC, check_in_time DESC NULLS LAST, created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.CheckIn{}
	for rows.Next() {
		ci, err := bookings.ScanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *ci)
	}
	return list, rows.Err()
}
