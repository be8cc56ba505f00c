package payments

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

const paymentColumns = `id, COALESCE(pending_id, ''), account_id, event_id, event_name, event_date, amount_cents, name, email, phone, address,
	postal_code, card_holder, card_last4, card_expiry, status, created_at, updated_at`

// Repository handles payment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.PendingID, &p.AccountID, &p.EventID, &p.EventName, &p.EventDate, &p.AmountCents, &p.Name, &p.Email, &p.Phone,
		&p.Address, &p.PostalCode, &p.CardHolder, &p.CardLast4, &p.CardExpiry, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateWithBooking inserts the payment and its booking in one transaction.
// A second payment for the same pending booking returns ErrAlreadyPaid.
func (r *Repository) CreateWithBooking(ctx context.Context, p *models.Payment, b *models.Booking) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO payments (id, pending_id, account_id, event_id, event_name, event_date, amount_cents, name, email,
				phone, address, postal_code, card_holder, card_last4, card_expiry, status)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING created_at, updated_at`
		err := tx.QueryRow(ctx, q, p.ID, p.PendingID, p.AccountID, p.EventID, p.EventName, p.EventDate, p.AmountCents, p.Name,
			p.Email, p.Phone, p.Address, p.PostalCode, p.CardHolder, p.CardLast4, p.CardExpiry, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err, "payments_pending_id_key") {
				return ErrAlreadyPaid
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		return bookings.InsertTx(ctx, tx, b)
	})
}

// GetByID returns a payment by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

// ListByAccount returns the payments of accountID, newest first.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

// List returns all payments, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC`)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}
