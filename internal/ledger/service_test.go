package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for BalanceStore and TransactionStore.
// These let us test the real Service logic without a database.
// ---------------------------------------------------------------------------

type mockBalances struct {
	mu       sync.Mutex
	balance  map[uuid.UUID]int64
	reserved map[uuid.UUID]int64
}

func newMockBalances() *mockBalances {
	return &mockBalances{
		balance:  make(map[uuid.UUID]int64),
		reserved: make(map[uuid.UUID]int64),
	}
}

func (m *mockBalances) AddCredits(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance[id] += amount
	return m.balance[id], nil
}

func (m *mockBalances) ReserveCredits(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balance[id] < amount {
		return ErrInsufficientCredits
	}
	m.balance[id] -= amount
	m.reserved[id] += amount
	return nil
}

func (m *mockBalances) ReleaseReserved(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserved[id] < amount {
		return fmt.Errorf("reserved underflow for %s", id)
	}
	m.reserved[id] -= amount
	m.balance[id] += amount
	return nil
}

func (m *mockBalances) ConsumeReserved(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserved[id] < amount {
		return ErrInsufficientCredits
	}
	m.reserved[id] -= amount
	return nil
}

func (m *mockBalances) total(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance[id] + m.reserved[id]
}

// ---

type mockLedger struct {
	mu   sync.Mutex
	rows []*models.CreditTransaction
}

func (m *mockLedger) AppendTx(_ context.Context, _ pgx.Tx, c *models.CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockLedger) byType(txType string) []*models.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CreditTransaction
	for _, r := range m.rows {
		if r.TransactionType == txType {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockLedger) all() []*models.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.CreditTransaction, len(m.rows))
	copy(out, m.rows)
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRecordMint(t *testing.T) {
	user := uuid.New()
	balances := newMockBalances()
	rows := &mockLedger{}
	svc := NewService(balances, rows)

	ctx := context.Background()
	minted, err := svc.RecordMint(ctx, nil, user, 50, nil)
	if err != nil {
		t.Fatalf("RecordMint: %v", err)
	}
	if minted.TransactionType != models.TxMinted {
		t.Errorf("transaction type: got %q, want %q", minted.TransactionType, models.TxMinted)
	}
	if got := balances.total(user); got != 50 {
		t.Errorf("balance after mint: got %d, want 50", got)
	}
	if n := len(rows.byType(models.TxMinted)); n != 1 {
		t.Errorf("minted rows: got %d, want 1", n)
	}
}

func TestRecordMint_InvalidAmount(t *testing.T) {
	svc := NewService(newMockBalances(), &mockLedger{})
	for _, amount := range []int64{0, -5} {
		if _, err := svc.RecordMint(context.Background(), nil, uuid.New(), amount, nil); err != ErrInvalidAmount {
			t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRecordSell_WithoutReservation(t *testing.T) {
	user := uuid.New()
	balances := newMockBalances()
	rows := &mockLedger{}
	svc := NewService(balances, rows)

	ctx := context.Background()
	// Mint spendable credits but never reserve them.
	if _, err := svc.RecordMint(ctx, nil, user, 100, nil); err != nil {
		t.Fatalf("RecordMint: %v", err)
	}

	if _, err := svc.RecordSell(ctx, nil, user, 30, nil); err != ErrInsufficientCredits {
		t.Fatalf("expected ErrInsufficientCredits selling unreserved credits, got %v", err)
	}
	// No sold row should have been appended.
	if n := len(rows.byType(models.TxSold)); n != 0 {
		t.Errorf("sold rows after failed sell: got %d, want 0", n)
	}
}

// TestLedgerIntegrity runs a full mint -> reserve -> sell/buy cycle and
// asserts that for every user, spendable + reserved equals the signed sum of
// their ledger rows.
func TestLedgerIntegrity(t *testing.T) {
	seller := uuid.New()
	buyer := uuid.New()

	balances := newMockBalances()
	rows := &mockLedger{}
	svc := NewService(balances, rows)
	ctx := context.Background()

	if _, err := svc.RecordMint(ctx, nil, seller, 100, nil); err != nil {
		t.Fatalf("RecordMint: %v", err)
	}
	if err := balances.ReserveCredits(ctx, nil, seller, 60); err != nil {
		t.Fatalf("ReserveCredits: %v", err)
	}

	ref := "listing:" + uuid.NewString()
	if _, err := svc.RecordSell(ctx, nil, seller, 40, &ref); err != nil {
		t.Fatalf("RecordSell: %v", err)
	}
	if _, err := svc.RecordBuy(ctx, nil, buyer, 40, &ref); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}

	sums := map[uuid.UUID]int64{}
	for _, row := range rows.all() {
		sums[row.UserID] += row.SignedAmount()
	}
	for _, user := range []uuid.UUID{seller, buyer} {
		if got := balances.total(user); got != sums[user] {
			t.Errorf("user %s: balance+reserved = %d, ledger sum = %d", user, got, sums[user])
		}
	}

	// Seller: 100 minted, 40 sold from the 60 reserved. 40 spendable + 20 reserved.
	if got := balances.total(seller); got != 60 {
		t.Errorf("seller total: got %d, want 60", got)
	}
	if got := balances.total(buyer); got != 40 {
		t.Errorf("buyer total: got %d, want 40", got)
	}
}
