package insights

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carbocredit/backend/internal/middleware"
)

// Advisor is the subset of the insights service the handler needs.
type Advisor interface {
	Predictions(ctx context.Context, userID uuid.UUID, now time.Time) (*Prediction, error)
	Recommendations(ctx context.Context, userID uuid.UUID) ([]string, error)
	Anomalies(ctx context.Context, userID uuid.UUID) (*AnomalyReport, error)
}

type Handler struct {
	Svc Advisor
	Log *slog.Logger
}

func NewHandler(svc Advisor, log *slog.Logger) *Handler {
	return &Handler{Svc: svc, Log: log}
}

// Predictions handles GET /api/ai/predictions.
func (h *Handler) Predictions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	prediction, err := h.Svc.Predictions(r.Context(), user.ID, time.Now())
	if err != nil {
		h.Log.Error("emission predictions", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, prediction)
}

// Recommendations handles GET /api/ai/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	tips, err := h.Svc.Recommendations(r.Context(), user.ID)
	if err != nil {
		h.Log.Error("emission recommendations", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"recommendations": tips})
}

// Anomalies handles GET /api/ai/anomalies.
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	report, err := h.Svc.Anomalies(r.Context(), user.ID)
	if err != nil {
		h.Log.Error("emission anomalies", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
