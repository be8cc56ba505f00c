package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/database/dbtest"
)

func paidBooking(eventID, accountID uuid.UUID, token string) *models.Booking {
	return &models.Booking{
		ID:         uuid.NewString(),
		EventID:    eventID,
		AccountID:  accountID,
		Name:       "Alice Tan",
		Phone:      "91234567",
		Email:      "alice@example.com",
		Date:       time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC),
		Pax:        1,
		PaxNames:   []string{},
		PaxEmails:  []string{},
		Status:     models.BookingActive,
		QRCodeText: token,
		CheckIns: []models.CheckIn{{
			EventID:       eventID,
			AccountID:     &accountID,
			AttendeeName:  "Alice Tan",
			AttendeeEmail: "alice@example.com",
			QRCodeText:    token,
			QRCodeStatus:  models.CheckInNotChecked,
		}},
	}
}

func TestRepositoryPendingBookingPaidOnce(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	account := dbtest.Account(t, pool, "alice@example.com", 0)
	event := dbtest.Event(t, pool, 2500, 0)
	repo := NewRepository(pool)
	pendingID := uuid.NewString()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &models.Payment{
				ID: uuid.New(), PendingID: pendingID, AccountID: account, EventID: event, EventName: "Repair Cafe",
				EventDate: time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), AmountCents: 2500, Name: "Alice Tan",
				Email: "alice@example.com", Phone: "91234567", Address: "1 Eco Way", PostalCode: "123456",
				CardHolder: "Alice Tan", CardLast4: "1234", CardExpiry: "09/28", Status: models.PaymentStatusPaid,
			}
			b := paidBooking(event, account, uuid.NewString())
			b.PaymentID = &p.ID
			errs[i] = repo.CreateWithBooking(ctx, p, b)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrAlreadyPaid):
			t.Errorf("CreateWithBooking() unexpected error = %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("payments recorded = %d; want 1", ok)
	}
	var paymentCount, bookingCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE pending_id = $1`, pendingID).Scan(&paymentCount); err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE event_id = $1`, event).Scan(&bookingCount); err != nil {
		t.Fatal(err)
	}
	if paymentCount != 1 || bookingCount != 1 {
		t.Errorf("payments = %d, bookings = %d; want 1 and 1", paymentCount, bookingCount)
	}

	list, err := repo.ListByAccount(ctx, account)
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	if len(list) != 1 || list[0].PendingID != pendingID {
		t.Errorf("ListByAccount() = %+v; want the one payment with its pending id", list)
	}
}
