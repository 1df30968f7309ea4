package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification request statuses. A request starts pending and transitions
// exactly once to approved or rejected; both states are terminal.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

type VerificationRequest struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Amount          int64      `json:"amount"`
	Category        string     `json:"category"`
	Evidence        string     `json:"evidence"`
	Status          string     `json:"status"`
	AuditorID       *uuid.UUID `json:"auditor_id,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
