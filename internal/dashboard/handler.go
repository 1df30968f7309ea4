package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/carbocredit/backend/internal/emissions"
	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/models"
)

// EmissionSource feeds the recent-activity and trend sections.
type EmissionSource interface {
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.EmissionReport, error)
	TotalByUser(ctx context.Context, userID uuid.UUID) (float64, error)
	MonthlyTotalsByUser(ctx context.Context, userID uuid.UUID, months int) ([]emissions.MonthlyTotal, error)
}

// LedgerSource feeds the recent credit transactions section.
type LedgerSource interface {
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
}

// ListingSource feeds the recent listings section.
type ListingSource interface {
	RecentBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.MarketplaceListing, error)
}

type Handler struct {
	Emissions EmissionSource
	Ledger    LedgerSource
	Listings  ListingSource
	Log       *slog.Logger
}

func NewHandler(em EmissionSource, lg LedgerSource, ls ListingSource, log *slog.Logger) *Handler {
	return &Handler{Emissions: em, Ledger: lg, Listings: ls, Log: log}
}

// TrendPoint is one month of the emission trend chart.
type TrendPoint struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// Summary handles GET /api/dashboard. It collates the caller's profile,
// recent activity across all three domains, and the monthly emission trend
// into a single response for the landing page.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	recentEmissions, err := h.Emissions.RecentByUser(r.Context(), user.ID, 6)
	if err != nil {
		h.fail(w, "recent emissions", err)
		return
	}
	totalEmissions, err := h.Emissions.TotalByUser(r.Context(), user.ID)
	if err != nil {
		h.fail(w, "total emissions", err)
		return
	}
	monthly, err := h.Emissions.MonthlyTotalsByUser(r.Context(), user.ID, 6)
	if err != nil {
		h.fail(w, "monthly emissions", err)
		return
	}
	recentCredits, err := h.Ledger.RecentByUser(r.Context(), user.ID, 5)
	if err != nil {
		h.fail(w, "recent credits", err)
		return
	}
	recentListings, err := h.Listings.RecentBySeller(r.Context(), user.ID, 3)
	if err != nil {
		h.fail(w, "recent listings", err)
		return
	}

	trend := make([]TrendPoint, 0, len(monthly))
	for _, m := range monthly {
		trend = append(trend, TrendPoint{Month: m.Month.Month().String(), Total: m.Total})
	}
	if recentEmissions == nil {
		recentEmissions = []models.EmissionReport{}
	}
	if recentCredits == nil {
		recentCredits = []models.CreditTransaction{}
	}
	if recentListings == nil {
		recentListings = []models.MarketplaceListing{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user":             user,
		"recent_emissions": recentEmissions,
		"recent_credits":   recentCredits,
		"recent_listings":  recentListings,
		"total_emissions":  totalEmissions,
		"monthly_trend":    trend,
	})
}

func (h *Handler) fail(w http.ResponseWriter, section string, err error) {
	h.Log.Error("dashboard "+section, "error", err)
	http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
}
