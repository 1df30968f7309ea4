package marketplace

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carbocredit/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const listingColumns = "id, seller_id, amount, remaining_amount, price, status, created_at, updated_at"

// CreateTx inserts a listing inside the given transaction, alongside the
// seller's escrow move.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, l *models.MarketplaceListing) error {
	return tx.QueryRow(ctx, `
		INSERT INTO marketplace_listings (id, seller_id, amount, remaining_amount, price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, l.ID, l.SellerID, l.Amount, l.RemainingAmount, l.Price, l.Status).Scan(&l.CreatedAt, &l.UpdatedAt)
}

// GetByIDForUpdate locks the listing row for update. Call within a transaction.
func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MarketplaceListing, error) {
	var l models.MarketplaceListing
	err := tx.QueryRow(ctx, `
		SELECT `+listingColumns+` FROM marketplace_listings WHERE id = $1 FOR UPDATE
	`, id).Scan(&l.ID, &l.SellerID, &l.Amount, &l.RemainingAmount, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ApplyFill reduces the remaining amount and closes the listing when fully
// consumed. Call after GetByIDForUpdate in the same transaction.
func (r *Repository) ApplyFill(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE marketplace_listings
		SET remaining_amount = remaining_amount - $2,
		    status = CASE WHEN remaining_amount - $2 = 0 THEN 'completed' ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`, id, amount)
	return err
}

// MarkCancelled sets the terminal cancelled status.
func (r *Repository) MarkCancelled(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE marketplace_listings SET status = 'cancelled', updated_at = now() WHERE id = $1
	`, id)
	return err
}

// ListActive returns all active listings, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.MarketplaceListing, error) {
	return r.query(ctx, `
		SELECT `+listingColumns+` FROM marketplace_listings
		WHERE status = 'active' ORDER BY created_at DESC
	`)
}

// RecentBySeller returns the seller's most recent listings in any status.
func (r *Repository) RecentBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.MarketplaceListing, error) {
	return r.query(ctx, `
		SELECT `+listingColumns+` FROM marketplace_listings
		WHERE seller_id = $1 ORDER BY created_at DESC LIMIT $2
	`, sellerID, limit)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]models.MarketplaceListing, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MarketplaceListing
	for rows.Next() {
		var l models.MarketplaceListing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Amount, &l.RemainingAmount, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
