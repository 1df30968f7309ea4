package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EmissionTotalsByCategory aggregates reported tonnage across all users.
func (r *Repository) EmissionTotalsByCategory(ctx context.Context) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0)
		FROM emissions
		GROUP BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := map[string]float64{}
	for rows.Next() {
		var category string
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, err
		}
		totals[category] = total
	}
	return totals, rows.Err()
}

// CreditTotalsByType aggregates ledger volume per transaction type.
func (r *Repository) CreditTotalsByType(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT transaction_type, COALESCE(SUM(amount), 0)
		FROM credits
		GROUP BY transaction_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := map[string]int64{}
	for rows.Next() {
		var txType string
		var total int64
		if err := rows.Scan(&txType, &total); err != nil {
			return nil, err
		}
		totals[txType] = total
	}
	return totals, rows.Err()
}

// MarketSummary describes open marketplace supply.
type MarketSummary struct {
	ActiveListings int64   `json:"active_listings"`
	CreditsForSale int64   `json:"credits_for_sale"`
	TotalValue     float64 `json:"total_value"`
	AveragePrice   float64 `json:"average_price"`
}

// MarketOverview aggregates the active side of the marketplace.
func (r *Repository) MarketOverview(ctx context.Context) (*MarketSummary, error) {
	var s MarketSummary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(remaining_amount), 0),
		       COALESCE(SUM(remaining_amount * price), 0),
		       COALESCE(AVG(price), 0)
		FROM marketplace_listings
		WHERE status = 'active'
	`).Scan(&s.ActiveListings, &s.CreditsForSale, &s.TotalValue, &s.AveragePrice)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
