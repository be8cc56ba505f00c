// Package dbtest connects repository tests to a real PostgreSQL database.
//
// Tests using it are skipped unless ECOHAVEN_TEST_DATABASE_URL is set. The database is
// migrated and emptied before each test, so it must be a throwaway one.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/pkg/database"
)

// EnvDSN names the variable holding the test database URL.
const EnvDSN = "ECOHAVEN_TEST_DATABASE_URL"

// lockKey serializes test packages sharing the database.
const lockKey = 0x6563_6f68

// Open returns a pool on a migrated, empty database. The pool is closed when t ends.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 8, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		conn.Release()
		t.Fatalf("advisory lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
		conn.Release()
	})

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_, err = pool.Exec(ctx, `TRUNCATE email_logs, faqs, reviews, volunteers, collect_informations, products, refunds,
		check_ins, bookings, payments, events, accounts CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

// Account inserts an active user holding points and returns its id.
func Account(t *testing.T, pool *pgxpool.Pool, email string, points int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `INSERT INTO accounts (name, username, email, password_hash, leaf_points)
		VALUES ($1, $1, $1, 'x', $2) RETURNING id`, email, points).Scan(&id)
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
	return id
}

// Event inserts an event running through July 2026 and returns its id.
// amountCents > 0 makes it a paid event.
func Event(t *testing.T, pool *pgxpool.Pool, amountCents, leafPoints int) uuid.UUID {
	t.Helper()
	status := "Free"
	if amountCents > 0 {
		status = "Paid"
	}
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `INSERT INTO events (name, category, location, start_date, end_date, status,
			amount_cents, leaf_points)
		VALUES ('Repair Cafe', 'workshop', 'Community Hub', $1, $2, $3, $4, $5) RETURNING id`,
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		status, amountCents, leafPoints).Scan(&id)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return id
}

// Booking inserts an active single-attendee booking whose check-in carries token and points,
// and returns the booking id. paymentID may be nil.
func Booking(t *testing.T, pool *pgxpool.Pool, eventID, accountID uuid.UUID, paymentID *uuid.UUID, token string, points int) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO bookings (id, event_id, account_id, payment_id, name, phone, email, date, pax,
			qr_code_text, qr_code_url, leaf_points)
		VALUES ($1, $2, $3, $4, 'Alice Tan', '91234567', 'alice@example.com', $5, 1, $6, '', $7)`,
		id, eventID, accountID, paymentID, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), token, points)
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	_, err = pool.Exec(ctx, `INSERT INTO check_ins (booking_id, event_id, account_id, attendee_name, attendee_email,
			qr_code_text, leaf_points)
		VALUES ($1, $2, $3, 'Alice Tan', 'alice@example.com', $4, $5)`, id, eventID, accountID, token, points)
	if err != nil {
		t.Fatalf("insert check-in: %v", err)
	}
	return id
}

// LeafPoints returns the balance of an account.
func LeafPoints(t *testing.T, pool *pgxpool.Pool, accountID uuid.UUID) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT leaf_points FROM accounts WHERE id = $1`, accountID).Scan(&n); err != nil {
		t.Fatalf("read leaf points: %v", err)
	}
	return n
}

// Payment inserts a Paid payment of amountCents and returns its id.
func Payment(t *testing.T, pool *pgxpool.Pool, accountID, eventID uuid.UUID, amountCents int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `INSERT INTO payments (account_id, event_id, event_name, event_date, amount_cents,
			name, email, phone, address, postal_code, card_holder, card_last4, card_expiry)
		VALUES ($1, $2, 'Repair Cafe', $3, $4, 'Alice Tan', 'alice@example.com', '91234567', '1 Eco Way', '123456',
			'Alice Tan', '1234', '09/28')
		RETURNING id`, accountID, eventID, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), amountCents).Scan(&id)
	if err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	return id
}
