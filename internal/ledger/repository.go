package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carbocredit/backend/internal/models"
)

var errInsufficientCredits = errors.New("insufficient credits")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AddCredits adds amount to the user's spendable balance and returns the new
// balance. Call within a transaction alongside the matching ledger append.
func (r *Repository) AddCredits(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING credit_balance
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.New("user not found")
	}
	return newBalance, err
}

// ReserveCredits moves amount from the user's spendable balance into the
// reserved bucket, guarding against overdraw in the same statement.
func (r *Repository) ReserveCredits(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE users
		SET credit_balance = credit_balance - $1, reserved_credits = reserved_credits + $1, updated_at = now()
		WHERE id = $2 AND credit_balance >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errInsufficientCredits
	}
	return nil
}

// ReleaseReserved returns amount from the reserved bucket to the spendable
// balance (listing cancelled).
func (r *Repository) ReleaseReserved(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE users
		SET credit_balance = credit_balance + $1, reserved_credits = reserved_credits - $1, updated_at = now()
		WHERE id = $2 AND reserved_credits >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errInsufficientCredits
	}
	return nil
}

// ConsumeReserved burns amount out of the reserved bucket (credits sold).
func (r *Repository) ConsumeReserved(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE users
		SET reserved_credits = reserved_credits - $1, updated_at = now()
		WHERE id = $2 AND reserved_credits >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errInsufficientCredits
	}
	return nil
}

// AppendTx inserts an immutable ledger row inside the given transaction.
func (r *Repository) AppendTx(ctx context.Context, tx pgx.Tx, c *models.CreditTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credits (id, user_id, amount, transaction_type, external_tx_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.UserID, c.Amount, c.TransactionType, c.ExternalTxID).Scan(&c.CreatedAt)
}

// Balances returns the user's spendable and reserved credit balances.
func (r *Repository) Balances(ctx context.Context, userID uuid.UUID) (balance, reserved int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT credit_balance, reserved_credits FROM users WHERE id = $1
	`, userID).Scan(&balance, &reserved)
	return balance, reserved, err
}

// ListByUser returns the user's ledger history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, transaction_type, external_tx_id, created_at
		FROM credits WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CreditTransaction
	for rows.Next() {
		var c models.CreditTransaction
		if err := rows.Scan(&c.ID, &c.UserID, &c.Amount, &c.TransactionType, &c.ExternalTxID, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// RecentByUser returns the user's most recent ledger rows.
func (r *Repository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, transaction_type, external_tx_id, created_at
		FROM credits WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CreditTransaction
	for rows.Next() {
		var c models.CreditTransaction
		if err := rows.Scan(&c.ID, &c.UserID, &c.Amount, &c.TransactionType, &c.ExternalTxID, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
