package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/models"
	"github.com/carbocredit/backend/internal/notary"
)

var (
	// ErrNotFound is returned when the request does not exist.
	ErrNotFound = errors.New("verification request not found")
	// ErrAlreadyDecided is returned when a decision is attempted on a
	// request that has already left pending. Decisions are terminal.
	ErrAlreadyDecided = errors.New("verification request already decided")
	// ErrInvalidAmount is returned for non-positive claim amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// RequestStore is the repository subset the service needs.
type RequestStore interface {
	Create(ctx context.Context, v *models.VerificationRequest) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.VerificationRequest, error)
	MarkDecided(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, auditorID uuid.UUID, reason *string, decidedAt time.Time) error
}

// MintRecorder appends the minted ledger row and credits the requester.
type MintRecorder interface {
	RecordMint(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, externalRef *string) (*models.CreditTransaction, error)
}

type Service struct {
	store   RequestStore
	ledger  MintRecorder
	enqueue notary.EnqueueFunc
}

func NewService(store RequestStore, ledger MintRecorder, enqueue notary.EnqueueFunc) *Service {
	return &Service{store: store, ledger: ledger, enqueue: enqueue}
}

// Submit creates a claim in the pending state.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, amount int64, category, evidence string) (*models.VerificationRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	req := &models.VerificationRequest{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   amount,
		Category: category,
		Evidence: evidence,
		Status:   models.VerificationPending,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Approve transitions a pending request to approved and mints the claimed
// credits for the requester. The status transition, the ledger append, the
// balance update, and the notary job all ride the caller's transaction: a
// concurrent double-approval loses the row lock race and gets
// ErrAlreadyDecided with nothing minted.
func (s *Service) Approve(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID) (*models.VerificationRequest, error) {
	req, err := s.lockPending(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.store.MarkDecided(ctx, tx, requestID, models.VerificationApproved, auditorID, nil, now); err != nil {
		return nil, err
	}

	minted, err := s.ledger.RecordMint(ctx, tx, req.UserID, req.Amount, nil)
	if err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, tx, notary.MirrorJobArgs{
		Event:       notary.EventCreditsMinted,
		ReferenceID: minted.ID,
		UserID:      req.UserID,
		Amount:      float64(req.Amount),
		Category:    req.Category,
	}); err != nil {
		return nil, err
	}

	req.Status = models.VerificationApproved
	req.AuditorID = &auditorID
	req.DecidedAt = &now
	return req, nil
}

// Reject transitions a pending request to rejected, recording the auditor
// and reason. No ledger side effect.
func (s *Service) Reject(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID, reason string) (*models.VerificationRequest, error) {
	req, err := s.lockPending(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.store.MarkDecided(ctx, tx, requestID, models.VerificationRejected, auditorID, reasonPtr, now); err != nil {
		return nil, err
	}

	req.Status = models.VerificationRejected
	req.AuditorID = &auditorID
	req.DecidedAt = &now
	req.RejectionReason = reasonPtr
	return req, nil
}

func (s *Service) lockPending(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (*models.VerificationRequest, error) {
	req, err := s.store.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.Status != models.VerificationPending {
		return nil, ErrAlreadyDecided
	}
	return req, nil
}
