package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Source is the aggregate-query surface the handler reads from.
type Source interface {
	EmissionTotalsByCategory(ctx context.Context) (map[string]float64, error)
	CreditTotalsByType(ctx context.Context) (map[string]int64, error)
	MarketOverview(ctx context.Context) (*MarketSummary, error)
}

type Handler struct {
	Store Source
	Log   *slog.Logger
}

func NewHandler(store Source, log *slog.Logger) *Handler {
	return &Handler{Store: store, Log: log}
}

// Emissions handles GET /api/analytics/emissions.
func (h *Handler) Emissions(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Store.EmissionTotalsByCategory(r.Context())
	if err != nil {
		h.Log.Error("emission analytics", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"totals_by_category": totals})
}

// Credits handles GET /api/analytics/credits.
func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Store.CreditTotalsByType(r.Context())
	if err != nil {
		h.Log.Error("credit analytics", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"totals_by_type": totals})
}

// Market handles GET /api/analytics/market.
func (h *Handler) Market(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Store.MarketOverview(r.Context())
	if err != nil {
		h.Log.Error("market analytics", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
