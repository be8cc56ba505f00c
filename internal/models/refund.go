package models

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus values.
const (
	RefundPending  = "Pending"
	RefundApproved = "Approved"
	RefundRejected = "Rejected"
)

// Refund is a request to refund a Payment.
type Refund struct {
	ID        uuid.UUID  `json:"id"`
	PaymentID uuid.UUID  `json:"payment_id"`
	AccountID uuid.UUID  `json:"account_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Method    string     `json:"method"`
	Reason    string     `json:"reason"`
	Status    string     `json:"status"`
	DecidedBy *uuid.UUID `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
