package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carbocredit/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = "id, wallet_address, username, role, credit_balance, reserved_credits, created_at, updated_at"

// Create inserts a new user record. The wallet address carries a unique
// constraint; concurrent first logins surface as a pg unique violation.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, wallet_address, username, role)
		VALUES ($1, $2, $3, $4)
		RETURNING credit_balance, reserved_credits, created_at, updated_at
	`, u.ID, u.WalletAddress, u.Username, u.Role).Scan(&u.CreditBalance, &u.ReservedCredits, &u.CreatedAt, &u.UpdatedAt)
}

func (r *Repository) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE wallet_address = $1
	`, walletAddress).Scan(&u.ID, &u.WalletAddress, &u.Username, &u.Role, &u.CreditBalance, &u.ReservedCredits, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.WalletAddress, &u.Username, &u.Role, &u.CreditBalance, &u.ReservedCredits, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
