package verification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DecisionService is the service subset the handler drives.
type DecisionService interface {
	Submit(ctx context.Context, userID uuid.UUID, amount int64, category, evidence string) (*models.VerificationRequest, error)
	Approve(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID) (*models.VerificationRequest, error)
	Reject(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID, reason string) (*models.VerificationRequest, error)
}

// QueueStore serves the read-side queue views.
type QueueStore interface {
	List(ctx context.Context) ([]models.VerificationRequest, error)
	ListByStatus(ctx context.Context, status string) ([]QueueItem, error)
}

// Handler serves the /api/verification and /api/auditor endpoints.
type Handler struct {
	Pool  TxBeginner
	Svc   DecisionService
	Store QueueStore
	Log   *slog.Logger
}

func NewHandler(pool TxBeginner, svc DecisionService, store QueueStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Pool: pool, Svc: svc, Store: store, Log: log}
}

type submitRequest struct {
	Amount   int64  `json:"amount"`
	Category string `json:"category"`
	Evidence string `json:"evidence"`
}

// Submit handles POST /api/verification/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	created, err := h.Svc.Submit(r.Context(), user.ID, req.Amount, req.Category, req.Evidence)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
			return
		}
		h.Log.Error("submit verification request", "error", err)
		http.Error(w, `{"error":"failed to submit verification request"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

// List handles GET /api/verification/requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context())
	if err != nil {
		h.Log.Error("list verification requests", "error", err)
		http.Error(w, `{"error":"failed to get verification requests"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// PendingQueue handles GET /api/auditor/pending (auditor only).
func (h *Handler) PendingQueue(w http.ResponseWriter, r *http.Request) {
	h.queueByStatus(w, r, models.VerificationPending)
}

// ApprovedQueue handles GET /api/auditor/approved (auditor only).
func (h *Handler) ApprovedQueue(w http.ResponseWriter, r *http.Request) {
	h.queueByStatus(w, r, models.VerificationApproved)
}

func (h *Handler) queueByStatus(w http.ResponseWriter, r *http.Request, status string) {
	list, err := h.Store.ListByStatus(r.Context(), status)
	if err != nil {
		h.Log.Error("list verification queue", "status", status, "error", err)
		http.Error(w, `{"error":"failed to fetch verifications"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// Approve handles POST /api/auditor/approve/{requestId} (auditor only).
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID) (*models.VerificationRequest, error) {
		return h.Svc.Approve(ctx, tx, requestID, auditorID)
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/auditor/reject/{requestId} (auditor only).
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if r.Body != nil {
		// A missing or empty body means no reason was given.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.decide(w, r, func(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID) (*models.VerificationRequest, error) {
		return h.Svc.Reject(ctx, tx, requestID, auditorID, req.Reason)
	})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, tx pgx.Tx, requestID, auditorID uuid.UUID) (*models.VerificationRequest, error)) {

	auditor := middleware.UserFromCtx(r.Context())
	if auditor == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	requestID, err := uuid.Parse(r.PathValue("requestId"))
	if err != nil {
		http.Error(w, `{"error":"invalid request id"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin decision tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	decided, err := op(r.Context(), tx, requestID, auditor.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, `{"error":"verification request not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrAlreadyDecided):
			http.Error(w, `{"error":"verification request already decided"}`, http.StatusConflict)
		default:
			h.Log.Error("apply verification decision", "request_id", requestID, "error", err)
			http.Error(w, `{"error":"failed to apply decision"}`, http.StatusInternalServerError)
		}
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit decision tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(decided)
}
