package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/bookings"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/validation"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAlreadyPaid     = errors.New("booking has already been paid")
)

// Form is the payment form. Card number and CVV are validated but never stored.
type Form struct {
	PendingID   string `json:"pending_id" validate:"required"`
	AmountCents int    `json:"amount_cents" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,digits8"`
	Address     string `json:"address" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required,digits6"`
	CardNumber  string `json:"card_number" validate:"required,digits16"`
	Expiry      string `json:"expiry" validate:"required,mmyy"`
	CVV         string `json:"cvv" validate:"required,digits3"`
	CardHolder  string `json:"card_holder" validate:"required,alphaspace"`
}

func (f *Form) normalize() {
	f.CardNumber = strings.ReplaceAll(f.CardNumber, " ", "")
	f.CardHolder = strings.TrimSpace(f.CardHolder)
	f.Email = strings.TrimSpace(f.Email)
}

// PendingIssuer finalises pending bookings once paid.
type PendingIssuer interface {
	Pending(ctx context.Context, id string) (*bookings.PendingBooking, error)
	Complete(ctx context.Context, p *bookings.PendingBooking, paymentID uuid.UUID, persist bookings.PersistFunc) (*models.Booking, error)
}

// Store persists payments. CreateWithBooking must return ErrAlreadyPaid when a payment
// for the same pending booking already exists.
type Store interface {
	CreateWithBooking(ctx context.Context, p *models.Payment, b *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Payment, error)
	List(ctx context.Context) ([]models.Payment, error)
}

// Result is a successful payment and the booking it paid for.
type Result struct {
	Payment *models.Payment `json:"payment"`
	Booking *models.Booking `json:"booking"`
}

// Processor validates payment forms and records paid bookings.
type Processor struct {
	issuer PendingIssuer
	store  Store
	logger *zap.Logger
}

// NewProcessor creates a payment processor.
func NewProcessor(issuer PendingIssuer, store Store, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{issuer: issuer, store: store, logger: logger}
}

// Pay validates form and, in one transaction, stores the Paid payment and the booking that was
// pending on it. Validation failures return validation.Errors and persist nothing.
// Paying a pending booking twice returns ErrAlreadyPaid.
func (p *Processor) Pay(ctx context.Context, accountID uuid.UUID, form Form) (*Result, error) {
	form.normalize()
	if err := validation.Struct(&form); err != nil {
		return nil, err
	}
	pending, err := p.issuer.Pending(ctx, form.PendingID)
	if err != nil {
		return nil, err
	}
	if pending.Request.AccountID != accountID {
		return nil, bookings.ErrPendingNotFound
	}
	if form.AmountCents != pending.AmountCents {
		return nil, validation.Errors{"amount_cents": fmt.Sprintf("must equal the amount due (%d)", pending.AmountCents)}
	}

	payment := &models.Payment{
		ID:          uuid.New(),
		PendingID:   pending.ID,
		AccountID:   accountID,
		EventID:     pending.Request.EventID,
		EventName:   pending.EventName,
		EventDate:   pending.EventDate,
		AmountCents: pending.AmountCents,
		Name:        form.Name,
		Email:       form.Email,
		Phone:       form.Phone,
		Address:     form.Address,
		PostalCode:  form.PostalCode,
		CardHolder:  form.CardHolder,
		CardLast4:   form.CardNumber[len(form.CardNumber)-4:],
		CardExpiry:  form.Expiry,
		Status:      models.PaymentStatusPaid,
	}
	booking, err := p.issuer.Complete(ctx, pending, payment.ID, func(ctx context.Context, b *models.Booking) error {
		return p.store.CreateWithBooking(ctx, payment, b)
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	p.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID),
		zap.Int("amount_cents", payment.AmountCents))
	return &Result{Payment: payment, Booking: booking}, nil
}
