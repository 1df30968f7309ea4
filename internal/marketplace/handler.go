package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/ledger"
	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/models"
)

// TxBeginner abstracts pgxpool.Pool for transaction boundaries.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TradeService is the subset of the marketplace service the handler needs.
type TradeService interface {
	CreateListing(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount int64, price float64) (*models.MarketplaceListing, error)
	Buy(ctx context.Context, tx pgx.Tx, listingID, buyerID uuid.UUID, amount int64) (*models.MarketplaceListing, error)
	Cancel(ctx context.Context, tx pgx.Tx, listingID, callerID uuid.UUID) (*models.MarketplaceListing, error)
}

// ListingReader serves the read-only listing endpoints.
type ListingReader interface {
	ListActive(ctx context.Context) ([]models.MarketplaceListing, error)
}

type Handler struct {
	Pool  TxBeginner
	Svc   TradeService
	Store ListingReader
	Log   *slog.Logger
}

func NewHandler(pool TxBeginner, svc TradeService, store ListingReader, log *slog.Logger) *Handler {
	return &Handler{Pool: pool, Svc: svc, Store: store, Log: log}
}

type CreateListingRequest struct {
	Amount int64   `json:"amount"`
	Price  float64 `json:"price"`
}

// CreateListing handles POST /api/marketplace/create-listing, which escrows
// the credits being offered.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin transaction", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	listing, err := h.Svc.CreateListing(r.Context(), tx, user.ID, req.Amount, req.Price)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit listing", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(listing)
}

// Listings handles GET /api/marketplace/listings.
func (h *Handler) Listings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Store.ListActive(r.Context())
	if err != nil {
		h.Log.Error("list active listings", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []models.MarketplaceListing{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}

type BuyRequest struct {
	ListingID uuid.UUID `json:"listingId"`
	Amount    int64     `json:"amount"`
}

// Buy handles POST /api/marketplace/buy.
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.ListingID == uuid.Nil {
		http.Error(w, `{"error":"listingId is required"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin transaction", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	listing, err := h.Svc.Buy(r.Context(), tx, req.ListingID, user.ID, req.Amount)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit buy", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

// Cancel handles POST /api/marketplace/cancel/{listingId}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	listingID, err := uuid.Parse(r.PathValue("listingId"))
	if err != nil {
		http.Error(w, `{"error":"invalid listing id"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin transaction", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	listing, err := h.Svc.Cancel(r.Context(), tx, listingID, user.ID)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit cancel", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

func (h *Handler) writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrExceedsRemaining):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	case errors.Is(err, ErrListingNotFound):
		http.Error(w, `{"error":"listing not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrListingNotActive):
		http.Error(w, `{"error":"listing is not active"}`, http.StatusConflict)
	case errors.Is(err, ErrOwnListing), errors.Is(err, ErrNotOwner):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusForbidden)
	case errors.Is(err, ledger.ErrInsufficientCredits):
		http.Error(w, `{"error":"insufficient credits"}`, http.StatusBadRequest)
	default:
		h.Log.Error("marketplace operation", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
	}
}
