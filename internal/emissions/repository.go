package emissions

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

// CreateTx inserts a report inside the given transaction, so the notary
// mirror job enqueued alongside it commits atomically with the row.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, e *models.EmissionReport) error {
	return tx.QueryRow(ctx, `
		INSERT INTO emissions (id, user_id, amount, category, description, reported_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING reported_at, created_at
	`, e.ID, e.UserID, e.Amount, e.Category, e.Description).Scan(&e.ReportedAt, &e.CreatedAt)
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EmissionReport, error) {
	return r.query(ctx, `
		SELECT id, user_id, amount, category, description, reported_at, ledger_timestamp, created_at
		FROM emissions WHERE user_id = $1 ORDER BY reported_at DESC
	`, userID)
}

// RecentByUser returns the user's most recent reports, newest first.
func (r *Repository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.EmissionReport, error) {
	return r.query(ctx, `
		SELECT id, user_id, amount, category, description, reported_at, ledger_timestamp, created_at
		FROM emissions WHERE user_id = $1 ORDER BY reported_at DESC LIMIT $2
	`, userID, limit)
}

// TotalByUser returns the sum of the user's reported amounts.
func (r *Repository) TotalByUser(ctx context.Context, userID uuid.UUID) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM emissions WHERE user_id = $1
	`, userID).Scan(&total)
	return total, err
}

// MonthlyTotal is one month of aggregated tonnage for the trend chart.
type MonthlyTotal struct {
	Month time.Time
	Total float64
}

// MonthlyTotalsByUser returns per-month sums over the trailing window,
// oldest month first.
func (r *Repository) MonthlyTotalsByUser(ctx context.Context, userID uuid.UUID, months int) ([]MonthlyTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('month', reported_at) AS month, COALESCE(SUM(amount), 0)
		FROM emissions
		WHERE user_id = $1 AND reported_at >= now() - make_interval(months => $2)
		GROUP BY month
		ORDER BY month
	`, userID, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []MonthlyTotal
	for rows.Next() {
		var m MonthlyTotal
		if err := rows.Scan(&m.Month, &m.Total); err != nil {
			return nil, err
		}
		totals = append(totals, m)
	}
	return totals, rows.Err()
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]models.EmissionReport, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EmissionReport
	for rows.Next() {
		var e models.EmissionReport
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &e.ReportedAt, &e.LedgerTimestamp, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
