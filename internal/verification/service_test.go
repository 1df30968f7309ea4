package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/models"
	"github.com/carbocredit/backend/internal/notary"
)

// ---------------------------------------------------------------------------
// In-memory mocks for RequestStore and MintRecorder.
// ---------------------------------------------------------------------------

type mockRequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.VerificationRequest
}

func newMockRequestStore(reqs ...*models.VerificationRequest) *mockRequestStore {
	m := &mockRequestStore{requests: make(map[uuid.UUID]*models.VerificationRequest)}
	for _, r := range reqs {
		cp := *r
		m.requests[r.ID] = &cp
	}
	return m
}

func (m *mockRequestStore) Create(_ context.Context, v *models.VerificationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.requests[v.ID] = &cp
	return nil
}

func (m *mockRequestStore) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockRequestStore) MarkDecided(_ context.Context, _ pgx.Tx, id uuid.UUID, status string, auditorID uuid.UUID, reason *string, decidedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.requests[id]
	r.Status = status
	r.AuditorID = &auditorID
	r.RejectionReason = reason
	r.DecidedAt = &decidedAt
	return nil
}

// ---

type mockMinter struct {
	mu    sync.Mutex
	mints []int64
}

func (m *mockMinter) RecordMint(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int64, _ *string) (*models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mints = append(m.mints, amount)
	return &models.CreditTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: models.TxMinted,
	}, nil
}

func (m *mockMinter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mints)
}

// ---

type mirrorRecorder struct {
	mu   sync.Mutex
	jobs []notary.MirrorJobArgs
}

func (m *mirrorRecorder) enqueue(_ context.Context, _ pgx.Tx, args notary.MirrorJobArgs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, args)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func pendingRequest(userID uuid.UUID, amount int64) *models.VerificationRequest {
	return &models.VerificationRequest{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   amount,
		Category: models.CategoryEnergy,
		Status:   models.VerificationPending,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestApprove_MintsOnce(t *testing.T) {
	user := uuid.New()
	auditor := uuid.New()
	req := pendingRequest(user, 75)

	store := newMockRequestStore(req)
	minter := &mockMinter{}
	mirror := &mirrorRecorder{}
	svc := NewService(store, minter, mirror.enqueue)

	ctx := context.Background()
	decided, err := svc.Approve(ctx, nil, req.ID, auditor)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if decided.Status != models.VerificationApproved {
		t.Errorf("status: got %q, want %q", decided.Status, models.VerificationApproved)
	}
	if decided.AuditorID == nil || *decided.AuditorID != auditor {
		t.Error("decided request should record the auditor")
	}
	if minter.count() != 1 {
		t.Fatalf("mints: got %d, want 1", minter.count())
	}
	if minter.mints[0] != 75 {
		t.Errorf("minted amount: got %d, want 75", minter.mints[0])
	}

	// A notary mirror job should ride the same transaction.
	if len(mirror.jobs) != 1 {
		t.Fatalf("mirror jobs: got %d, want 1", len(mirror.jobs))
	}
	if mirror.jobs[0].Event != notary.EventCreditsMinted {
		t.Errorf("mirror event: got %q, want %q", mirror.jobs[0].Event, notary.EventCreditsMinted)
	}
}

func TestApprove_AlreadyDecided(t *testing.T) {
	user := uuid.New()
	auditor := uuid.New()
	req := pendingRequest(user, 75)

	store := newMockRequestStore(req)
	minter := &mockMinter{}
	svc := NewService(store, minter, (&mirrorRecorder{}).enqueue)

	ctx := context.Background()
	if _, err := svc.Approve(ctx, nil, req.ID, auditor); err != nil {
		t.Fatalf("first Approve: %v", err)
	}

	// Second decision, either kind, must fail without minting again.
	if _, err := svc.Approve(ctx, nil, req.ID, auditor); err != ErrAlreadyDecided {
		t.Errorf("second approve: expected ErrAlreadyDecided, got %v", err)
	}
	if _, err := svc.Reject(ctx, nil, req.ID, auditor, "late"); err != ErrAlreadyDecided {
		t.Errorf("reject after approve: expected ErrAlreadyDecided, got %v", err)
	}
	if minter.count() != 1 {
		t.Errorf("mints after double decision: got %d, want 1", minter.count())
	}
}

func TestReject(t *testing.T) {
	user := uuid.New()
	auditor := uuid.New()
	req := pendingRequest(user, 20)

	store := newMockRequestStore(req)
	minter := &mockMinter{}
	svc := NewService(store, minter, (&mirrorRecorder{}).enqueue)

	decided, err := svc.Reject(context.Background(), nil, req.ID, auditor, "evidence unreadable")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if decided.Status != models.VerificationRejected {
		t.Errorf("status: got %q, want %q", decided.Status, models.VerificationRejected)
	}
	if decided.RejectionReason == nil || *decided.RejectionReason != "evidence unreadable" {
		t.Error("rejection reason not recorded")
	}
	if minter.count() != 0 {
		t.Errorf("mints after reject: got %d, want 0", minter.count())
	}
}

func TestApprove_NotFound(t *testing.T) {
	svc := NewService(newMockRequestStore(), &mockMinter{}, (&mirrorRecorder{}).enqueue)
	if _, err := svc.Approve(context.Background(), nil, uuid.New(), uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmit_InvalidAmount(t *testing.T) {
	svc := NewService(newMockRequestStore(), &mockMinter{}, (&mirrorRecorder{}).enqueue)
	if _, err := svc.Submit(context.Background(), uuid.New(), 0, models.CategoryFood, ""); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}
