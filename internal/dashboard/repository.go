package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Summary is the body of GET /dash/summary.
type Summary struct {
	Users              int `json:"users"`
	Staff              int `json:"staff"`
	Events             int `json:"events"`
	ActiveBookings     int `json:"active_bookings"`
	Attendees          int `json:"attendees"`
	CheckedIn          int `json:"checked_in"`
	RevenueCents       int `json:"revenue_cents"`
	RefundedCents      int `json:"refunded_cents"`
	PendingRefunds     int `json:"pending_refunds"`
	PendingCollections int `json:"pending_collections"`
	Volunteers         int `json:"volunteers"`
	LeafPointsIssued   int `json:"leaf_points_issued"`
}

// EventStats is one row of GET /dash/events.
type EventStats struct {
	EventID        uuid.UUID `json:"event_id"`
	Name           string    `json:"name"`
	StartDate      time.Time `json:"start_date"`
	Status         string    `json:"status"`
	Bookings       int       `json:"bookings"`
	Attendees      int       `json:"attendees"`
	CheckedIn      int       `json:"checked_in"`
	RevenueCents   int       `json:"revenue_cents"`
	AverageRating  *float64  `json:"average_rating,omitempty"`
	ConversionRate *float64  `json:"conversion_rate,omitempty"`
}

// RevenueMonth is one row of GET /dash/revenue.
type RevenueMonth struct {
	Month         string `json:"month"` // YYYY-MM
	Payments      int    `json:"payments"`
	PaidCents     int    `json:"paid_cents"`
	RefundedCents int    `json:"refunded_cents"`
}

// Repository runs the dashboard aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dashboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summary returns site-wide totals.
func (r *Repository) Summary(ctx context.Context) (*Summary, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM accounts WHERE role = 'user'),
		(SELECT COUNT(*) FROM accounts WHERE role IN ('staff', 'admin')),
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM bookings WHERE status = 'Active'),
		(SELECT COALESCE(SUM(pax), 0) FROM bookings WHERE status = 'Active'),
		(SELECT COUNT(*) FROM check_ins WHERE qr_code_checked),
		(SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'Paid'),
		(SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'Refunded'),
		(SELECT COUNT(*) FROM refunds WHERE status = 'Pending'),
		(SELECT COUNT(*) FROM collect_informations WHERE status = 'Pending'),
		(SELECT COUNT(*) FROM volunteers),
		(SELECT COALESCE(SUM(leaf_points), 0) FROM check_ins WHERE qr_code_checked)`
	var s Summary
	err := r.pool.QueryRow(ctx, q).Scan(&s.Users, &s.Staff, &s.Events, &s.ActiveBookings, &s.Attendees, &s.CheckedIn,
		&s.RevenueCents, &s.RefundedCents, &s.PendingRefunds, &s.PendingCollections, &s.Volunteers, &s.LeafPointsIssued)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Events returns per-event booking, attendance and revenue figures, newest events first.
func (r *Repository) Events(ctx context.Context) ([]EventStats, error) {
	const q = `SELECT e.id, e.name, e.start_date, e.status,
			COALESCE(b.bookings, 0), COALESCE(b.attendees, 0), COALESCE(ci.checked, 0),
			COALESCE(p.revenue, 0), rv.rating
		FROM events e
		LEFT JOIN (SELECT event_id, COUNT(*) AS bookings, SUM(pax) AS attendees
			FROM bookings WHERE status = 'Active' GROUP BY event_id) b ON b.event_id = e.id
		LEFT JOIN (SELECT event_id, COUNT(*) AS checked
			FROM check_ins WHERE qr_code_checked GROUP BY event_id) ci ON ci.event_id = e.id
		LEFT JOIN (SELECT event_id, SUM(amount_cents) AS revenue
			FROM payments WHERE status = 'Paid' GROUP BY event_id) p ON p.event_id = e.id
		LEFT JOIN (SELECT event_id, AVG(rating)::float8 AS rating
			FROM reviews WHERE event_id IS NOT NULL GROUP BY event_id) rv ON rv.event_id = e.id
		ORDER BY e.start_date DESC, e.name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []EventStats{}
	for rows.Next() {
		var s EventStats
		if err := rows.Scan(&s.EventID, &s.Name, &s.StartDate, &s.Status, &s.Bookings, &s.Attendees, &s.CheckedIn,
			&s.RevenueCents, &s.AverageRating); err != nil {
			return nil, err
		}
		if s.Attendees > 0 {
			conv := float64(s.CheckedIn) / float64(s.Attendees)
			s.ConversionRate = &conv
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Revenue returns payment totals per month for the last months months.
func (r *Repository) Revenue(ctx context.Context, months int) ([]RevenueMonth, error) {
	const q = `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
			COUNT(*),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'Paid'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'Refunded'), 0)
		FROM payments
		WHERE created_at >= date_trunc('month', NOW()) - make_interval(months => $1 - 1)
		GROUP BY 1
		ORDER BY 1`
	rows, err := r.pool.Query(ctx, q, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []RevenueMonth{}
	for rows.Next() {
		var m RevenueMonth
		if err := rows.Scan(&m.Month, &m.Payments, &m.PaidCents, &m.RefundedCents); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
