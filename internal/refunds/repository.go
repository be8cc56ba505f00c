package refunds

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database"
)

const refundColumns = `id, payment_id, account_id, name, email, method, reason, status, decided_by, decided_at, created_at, updated_at`

// Repository handles refund persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a refund repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRefund(row rowScanner) (*models.Refund, error) {
	var r models.Refund
	err := row.Scan(&r.ID, &r.PaymentID, &r.AccountID, &r.Name, &r.Email, &r.Method, &r.Reason, &r.Status,
		&r.DecidedBy, &r.DecidedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrRefundNotFound
		}
		return nil, err
	}
	return &r, nil
}

// GetPayment returns the payment a refund is requested for.
func (r *Repository) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.pool.QueryRow(ctx, `SELECT id, account_id, amount_cents, status FROM payments WHERE id = $1`, id).
		Scan(&p.ID, &p.AccountID, &p.AmountCents, &p.Status)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a Pending refund. A second open refund for the same payment returns ErrDuplicateRequest.
func (r *Repository) Create(ctx context.Context, rf *models.Refund) error {
	const q = `INSERT INTO refunds (payment_id, account_id, name, email, method, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, rf.PaymentID, rf.AccountID, rf.Name, rf.Email, rf.Method, rf.Reason, rf.Status).
		Scan(&rf.ID, &rf.CreatedAt, &rf.UpdatedAt)
	if database.IsUniqueViolation(err, "refunds_open_payment_key") {
		return ErrDuplicateRequest
	}
	return err
}

// Decide sets the status of a Pending refund. Approval also marks the payment Refunded and
// cancels its booking; all three changes commit together or not at all.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, status string, staffID uuid.UUID) (*models.Refund, error) {
	var out *models.Refund
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `UPDATE refunds SET status = $2, decided_by = $3, decided_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'Pending'
			RETURNING ` + refundColumns
		rf, err := scanRefund(tx.QueryRow(ctx, q, id, status, staffID))
		if err != nil {
			if errors.Is(err, ErrRefundNotFound) {
				var exists bool
				if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM refunds WHERE id = $1)`, id).Scan(&exists); err != nil {
					return err
				}
				if exists {
					return ErrNotPending
				}
			}
			return err
		}
		if status == models.RefundApproved {
			tag, err := tx.Exec(ctx, `UPDATE payments SET status = 'Refunded', updated_at = NOW() WHERE id = $1 AND status = 'Paid'`, rf.PaymentID)
			if err != nil {
				return fmt.Errorf("refund payment: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrPaymentNotPaid
			}
			if _, err := tx.Exec(ctx, `UPDATE bookings SET status = 'Cancelled', updated_at = NOW() WHERE payment_id = $1`, rf.PaymentID); err != nil {
				return fmt.Errorf("cancel booking: %w", err)
			}
		}
		out = rf
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns refunds newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string) ([]models.Refund, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+refundColumns+` FROM refunds ORDER BY created_at DESC`)
	}
	return r.list(ctx, `SELECT `+refundColumns+` FROM refunds WHERE status = $1 ORDER BY created_at DESC`, status)
}

// ListByAccount returns refunds for accountID's payments, newest first.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Refund, error) {
	return r.list(ctx, `SELECT `+refundColumns+` FROM refunds WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Refund, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Refund{}
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rf)
	}
	return list, rows.Err()
}
