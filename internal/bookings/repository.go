package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

const bookingColumns = `id, event_id, account_id, payment_id, name, phone, email, date, pax, pax_names, pax_emails,
	status, qr_code_text, qr_code_url, leaf_points, created_at, updated_at`

// CheckInColumns is the check-in column list matching ScanCheckIn.
const CheckInColumns = `id, booking_id, event_id, account_id, attendee_name, attendee_email, qr_code_text, qr_code_url,
	qr_code_checked, qr_code_status, check_in_time, leaf_points, created_at`

// Repository handles booking persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a booking repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.EventID, &b.AccountID, &b.PaymentID, &b.Name, &b.Phone, &b.Email, &b.Date, &b.Pax,
		&b.PaxNames, &b.PaxEmails, &b.Status, &b.QRCodeText, &b.QRCodeURL, &b.LeafPoints, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ScanCheckIn scans a row selected with the check-in column list.
func ScanCheckIn(row rowScanner) (*models.CheckIn, error) {
	var ci models.CheckIn
	err := row.Scan(&ci.ID, &ci.BookingID, &ci.EventID, &ci.AccountID, &ci.AttendeeName, &ci.AttendeeEmail, &ci.QRCodeText,
		&ci.QRCodeURL, &ci.QRCodeChecked, &ci.QRCodeStatus, &ci.CheckInTime, &ci.LeafPoints, &ci.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ci, nil
}

// Create persists b and its check-ins in one transaction.
func (r *Repository) Create(ctx context.Context, b *models.Booking) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return InsertTx(ctx, tx, b)
	})
}

// InsertTx inserts b and its check-ins inside tx. A duplicate QR token returns ErrTokenCollision.
// Pax check-ins are linked to the account registered with the attendee's email, if any.
func InsertTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	const qb = `INSERT INTO bookings (id, event_id, account_id, payment_id, name, phone, email, date, pax, pax_names, pax_emails,
			status, qr_code_text, qr_code_url, leaf_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`
	err := tx.QueryRow(ctx, qb, b.ID, b.EventID, b.AccountID, b.PaymentID, b.Name, b.Phone, b.Email, b.Date, b.Pax,
		b.PaxNames, b.PaxEmails, b.Status, b.QRCodeText, b.QRCodeURL, b.LeafPoints).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return mapTokenErr("insert booking", err)
	}

	const qc = `INSERT INTO check_ins (booking_id, event_id, account_id, attendee_name, attendee_email, qr_code_text, qr_code_url,
			qr_code_status, leaf_points)
		VALUES ($1, $2, COALESCE($3::uuid, (SELECT id FROM accounts WHERE lower(email) = lower($5) LIMIT 1)), $4, $5, $6, $7, $8, $9)
		RETURNING id, account_id, created_at`
	for i := range b.CheckIns {
		ci := &b.CheckIns[i]
		ci.BookingID = b.ID
		err := tx.QueryRow(ctx, qc, b.ID, ci.EventID, ci.AccountID, ci.AttendeeName, ci.AttendeeEmail, ci.QRCodeText, ci.QRCodeURL,
			ci.QRCodeStatus, ci.LeafPoints).Scan(&ci.ID, &ci.AccountID, &ci.CreatedAt)
		if err != nil {
			return mapTokenErr("insert check-in", err)
		}
	}
	return nil
}

func mapTokenErr(op string, err error) error {
	if database.IsUniqueViolation(err, "bookings_qr_code_text_key") || database.IsUniqueViolation(err, "check_ins_qr_code_text_key") {
		return ErrTokenCollision
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetByID returns a booking with its check-ins.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachCheckIns(ctx, []*models.Booking{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListByAccount returns the bookings made by accountID, newest first, with check-ins.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

// ListByEvent returns the bookings for eventID, oldest first, with check-ins.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE event_id = $1 ORDER BY created_at`, eventID)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachCheckIns(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Repository) attachCheckIns(ctx context.Context, list []*models.Booking) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*models.Booking, len(list))
	for i, b := range list {
		ids[i] = b.ID
		byID[b.ID] = b
	}
	rows, err := r.pool.Query(ctx, `SELECT `+CheckInColumns+` FROM check_ins WHERE booking_id = ANY($1) ORDER BY created_at, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		ci, err := ScanCheckIn(rows)
		if err != nil {
			return err
		}
		if b, ok := byID[ci.BookingID]; ok {
			b.CheckIns = append(b.CheckIns, *ci)
		}
	}
	return rows.Err()
}

// Cancel marks an Active booking Cancelled. Its unchecked tokens can no longer be consumed.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bookings SET status = 'Cancelled', updated_at = NOW() WHERE id = $1 AND status = 'Active'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrBookingNotFound
	}
	return ErrNotActive
}
