package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/notary"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Handler serves the /api/credits endpoints.
type Handler struct {
	Pool    TxBeginner
	Svc     *Service
	Repo    *Repository
	Enqueue notary.EnqueueFunc
	Log     *slog.Logger
}

func NewHandler(pool TxBeginner, svc *Service, repo *Repository, enqueue notary.EnqueueFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Pool: pool, Svc: svc, Repo: repo, Enqueue: enqueue, Log: log}
}

type mintRequest struct {
	Amount int64 `json:"amount"`
}

// Mint handles POST /api/credits/mint.
func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin mint tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	row, err := h.Svc.RecordMint(r.Context(), tx, user.ID, req.Amount, nil)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
			return
		}
		h.Log.Error("record mint", "error", err)
		http.Error(w, `{"error":"failed to mint credits"}`, http.StatusInternalServerError)
		return
	}

	if err := h.Enqueue(r.Context(), tx, notary.MirrorJobArgs{
		Event:       notary.EventCreditsMinted,
		ReferenceID: row.ID,
		UserID:      user.ID,
		Amount:      float64(req.Amount),
	}); err != nil {
		h.Log.Error("enqueue mint mirror", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit mint tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(row)
}

// Balance handles GET /api/credits/balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	balance, reserved, err := h.Repo.Balances(r.Context(), user.ID)
	if err != nil {
		h.Log.Error("get balance", "error", err)
		http.Error(w, `{"error":"failed to get credit balance"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"balance": balance, "reserved": reserved})
}

// History handles GET /api/credits/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	list, err := h.Repo.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.Log.Error("list credit history", "error", err)
		http.Error(w, `{"error":"failed to get transaction history"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
