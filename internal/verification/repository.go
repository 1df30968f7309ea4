package verification

import (
	"context"
	"time"

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

const requestColumns = "id, user_id, amount, category, evidence, status, auditor_id, decided_at, rejection_reason, created_at"

func (r *Repository) Create(ctx context.Context, v *models.VerificationRequest) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO verification_requests (id, user_id, amount, category, evidence, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, v.ID, v.UserID, v.Amount, v.Category, v.Evidence, v.Status).Scan(&v.CreatedAt)
}

func (r *Repository) List(ctx context.Context) ([]models.VerificationRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM verification_requests ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// QueueItem is a verification request joined with requester and auditor
// usernames for the auditor queue views.
type QueueItem struct {
	models.VerificationRequest
	Username        string  `json:"username"`
	AuditorUsername *string `json:"auditor_username,omitempty"`
}

// ListByStatus returns requests in the given status with usernames attached,
// newest decision (or submission) first.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id, v.user_id, v.amount, v.category, v.evidence, v.status,
		       v.auditor_id, v.decided_at, v.rejection_reason, v.created_at,
		       u.username, a.username
		FROM verification_requests v
		JOIN users u ON u.id = v.user_id
		LEFT JOIN users a ON a.id = v.auditor_id
		WHERE v.status = $1
		ORDER BY COALESCE(v.decided_at, v.created_at) DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []QueueItem
	for rows.Next() {
		var item QueueItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Amount, &item.Category, &item.Evidence, &item.Status,
			&item.AuditorID, &item.DecidedAt, &item.RejectionReason, &item.CreatedAt,
			&item.Username, &item.AuditorUsername); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// GetByIDForUpdate locks the request row for update. Call within a transaction.
func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.VerificationRequest, error) {
	var v models.VerificationRequest
	err := tx.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM verification_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&v.ID, &v.UserID, &v.Amount, &v.Category, &v.Evidence, &v.Status, &v.AuditorID, &v.DecidedAt, &v.RejectionReason, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkDecided records the terminal decision. Call after GetByIDForUpdate in
// the same transaction.
func (r *Repository) MarkDecided(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, auditorID uuid.UUID, reason *string, decidedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE verification_requests
		SET status = $2, auditor_id = $3, rejection_reason = $4, decided_at = $5
		WHERE id = $1
	`, id, status, auditorID, reason, decidedAt)
	return err
}

func scanRequests(rows pgx.Rows) ([]models.VerificationRequest, error) {
	var list []models.VerificationRequest
	for rows.Next() {
		var v models.VerificationRequest
		if err := rows.Scan(&v.ID, &v.UserID, &v.Amount, &v.Category, &v.Evidence, &v.Status, &v.AuditorID, &v.DecidedAt, &v.RejectionReason, &v.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
