package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/models"
)

// ErrInvalidAmount is returned for non-positive transaction amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrInsufficientCredits is returned when a balance guard rejects a deduction.
var ErrInsufficientCredits = errInsufficientCredits

// BalanceStore mutates the cached per-user balances.
type BalanceStore interface {
	AddCredits(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error)
	ConsumeReserved(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
}

// TransactionStore appends immutable ledger rows.
type TransactionStore interface {
	AppendTx(ctx context.Context, tx pgx.Tx, c *models.CreditTransaction) error
}

// Service keeps the invariant that a user's spendable plus reserved balance
// equals the signed sum of their ledger rows: every append and its balance
// adjustment happen in the caller's single transaction.
type Service struct {
	balances BalanceStore
	ledger   TransactionStore
}

func NewService(balances BalanceStore, ledger TransactionStore) *Service {
	return &Service{balances: balances, ledger: ledger}
}

// RecordMint appends a minted row and credits the user's balance.
func (s *Service) RecordMint(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, externalRef *string) (*models.CreditTransaction, error) {
	return s.recordAddition(ctx, tx, userID, amount, models.TxMinted, externalRef)
}

// RecordBuy appends a bought row and credits the buyer's balance.
func (s *Service) RecordBuy(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, counterpartyRef *string) (*models.CreditTransaction, error) {
	return s.recordAddition(ctx, tx, userID, amount, models.TxBought, counterpartyRef)
}

// RecordSell appends a sold row and burns the amount from the seller's
// reserved bucket, where it was escrowed at listing time.
func (s *Service) RecordSell(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, counterpartyRef *string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.balances.ConsumeReserved(ctx, tx, userID, amount); err != nil {
		return nil, err
	}
	row := &models.CreditTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: models.TxSold,
		ExternalTxID:    counterpartyRef,
	}
	if err := s.ledger.AppendTx(ctx, tx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) recordAddition(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, txType string, externalRef *string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.balances.AddCredits(ctx, tx, userID, amount); err != nil {
		return nil, err
	}
	row := &models.CreditTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: txType,
		ExternalTxID:    externalRef,
	}
	if err := s.ledger.AppendTx(ctx, tx, row); err != nil {
		return nil, err
	}
	return row, nil
}
