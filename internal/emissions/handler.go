package emissions

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/models"
	"github.com/carbocredit/backend/internal/notary"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReportStore is the subset of the repository the handler writes through.
type ReportStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.EmissionReport) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EmissionReport, error)
	TotalByUser(ctx context.Context, userID uuid.UUID) (float64, error)
}

// Handler serves the /api/emissions endpoints.
type Handler struct {
	Pool    TxBeginner
	Store   ReportStore
	Enqueue notary.EnqueueFunc
	Log     *slog.Logger
}

func NewHandler(pool TxBeginner, store ReportStore, enqueue notary.EnqueueFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Pool: pool, Store: store, Enqueue: enqueue, Log: log}
}

type reportRequest struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// Report handles POST /api/emissions/report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		http.Error(w, `{"error":"category is required"}`, http.StatusBadRequest)
		return
	}

	report := &models.EmissionReport{
		ID:          uuid.New(),
		UserID:      user.ID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin report tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	if err := h.Store.CreateTx(r.Context(), tx, report); err != nil {
		h.Log.Error("create emission report", "error", err)
		http.Error(w, `{"error":"failed to report emission"}`, http.StatusInternalServerError)
		return
	}

	if err := h.Enqueue(r.Context(), tx, notary.MirrorJobArgs{
		Event:       notary.EventEmissionReported,
		ReferenceID: report.ID,
		UserID:      user.ID,
		Amount:      report.Amount,
		Category:    report.Category,
	}); err != nil {
		h.Log.Error("enqueue emission mirror", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit report tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(report)
}

// History handles GET /api/emissions/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	list, err := h.Store.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.Log.Error("list emissions", "error", err)
		http.Error(w, `{"error":"failed to get emission history"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// Total handles GET /api/emissions/total.
func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	total, err := h.Store.TotalByUser(r.Context(), user.ID)
	if err != nil {
		h.Log.Error("total emissions", "error", err)
		http.Error(w, `{"error":"failed to get total emissions"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]float64{"total": total})
}
