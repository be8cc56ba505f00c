package refunds

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/queue"
)

var (
	ErrRefundNotFound   = errors.New("refund not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrPaymentNotPaid   = errors.New("payment is not in Paid status")
	ErrNotOwner         = errors.New("payment belongs to another account")
	ErrDuplicateRequest = errors.New("a refund for this payment is already pending or approved")
	ErrNotPending       = errors.New("refund has already been decided")
)

// Store persists refunds. Decide must apply the refund status, and on approval the payment
// and booking changes, in a single transaction.
type Store interface {
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Create(ctx context.Context, r *models.Refund) error
	Decide(ctx context.Context, id uuid.UUID, status string, staffID uuid.UUID) (*models.Refund, error)
	List(ctx context.Context, status string) ([]models.Refund, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Refund, error)
}

// EmailQueue enqueues transactional emails.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// RequestInput is a refund request for a payment.
type RequestInput struct {
	PaymentID uuid.UUID
	Name      string
	Email     string
	Method    string
	Reason    string
}

// Service records refund requests and applies staff decisions.
type Service struct {
	store  Store
	emails EmailQueue
	logger *zap.Logger
}

// NewService creates a refund service.
func NewService(store Store, emails EmailQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, emails: emails, logger: logger}
}

// Request files a Pending refund. Only the payer may request unless staff is true.
func (s *Service) Request(ctx context.Context, requester uuid.UUID, staff bool, in RequestInput) (*models.Refund, error) {
	p, err := s.store.GetPayment(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != requester && !staff {
		return nil, ErrNotOwner
	}
	if p.Status != models.PaymentStatusPaid {
		return nil, ErrPaymentNotPaid
	}
	r := &models.Refund{
		PaymentID: p.ID,
		AccountID: p.AccountID,
		Name:      in.Name,
		Email:     in.Email,
		Method:    in.Method,
		Reason:    in.Reason,
		Status:    models.RefundPending,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("refund requested", zap.String("refund_id", r.ID.String()), zap.String("payment_id", p.ID.String()))
	return r, nil
}

// Decide moves a Pending refund to Approved or Rejected and emails the requester.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, approve bool, staffID uuid.UUID) (*models.Refund, error) {
	status := models.RefundRejected
	if approve {
		status = models.RefundApproved
	}
	r, err := s.store.Decide(ctx, id, status, staffID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("refund decided", zap.String("refund_id", r.ID.String()), zap.String("status", r.Status), zap.String("by", staffID.String()))

	body := fmt.Sprintf("<p>Hi %s,</p><p>Your refund request for payment %s has been <strong>%s</strong>.</p>",
		html.EscapeString(r.Name), r.PaymentID, r.Status)
	if err := s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeRefundDecision,
		Reference:      r.ID.String(),
		RecipientEmail: r.Email,
		Subject:        "Your EcoHaven refund request was " + r.Status,
		BodyHTML:       body,
	}); err != nil {
		s.logger.Warn("enqueue refund email failed", zap.String("refund_id", r.ID.String()), zap.Error(err))
	}
	return r, nil
}

// List returns refunds, optionally only those with status.
func (s *Service) List(ctx context.Context, status string) ([]models.Refund, error) {
	return s.store.List(ctx, status)
}

// ListByAccount returns the refunds filed for accountID's payments.
func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Refund, error) {
	return s.store.ListByAccount(ctx, accountID)
}
