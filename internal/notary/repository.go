package notary

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stamps notary receipts back onto mirrored rows.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) StampEmission(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE emissions SET ledger_timestamp = $2 WHERE id = $1
	`, id, at)
	return err
}

func (r *Repository) StampCreditTransaction(ctx context.Context, id uuid.UUID, receipt string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE credits SET external_tx_id = $2 WHERE id = $1
	`, id, receipt)
	return err
}
