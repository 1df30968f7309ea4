package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carbocredit/backend/internal/models"
)

var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrListingNotActive = errors.New("listing is not active")
	ErrNotOwner         = errors.New("listing belongs to another user")
	ErrOwnListing       = errors.New("cannot buy from own listing")
	ErrExceedsRemaining = errors.New("amount exceeds remaining credits")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidPrice     = errors.New("price must be positive")
)

// ListingStore is the subset of the marketplace repository the service needs.
type ListingStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, l *models.MarketplaceListing) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MarketplaceListing, error)
	ApplyFill(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error
	MarkCancelled(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// EscrowStore moves credits between a user's spendable balance and the
// reserved bucket backing their active listings.
type EscrowStore interface {
	ReserveCredits(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
	ReleaseReserved(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
}

// TradeRecorder appends ledger rows for the two sides of a fill.
type TradeRecorder interface {
	RecordBuy(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, counterpartyRef *string) (*models.CreditTransaction, error)
	RecordSell(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, counterpartyRef *string) (*models.CreditTransaction, error)
}

type Service struct {
	store  ListingStore
	escrow EscrowStore
	trades TradeRecorder
}

func NewService(store ListingStore, escrow EscrowStore, trades TradeRecorder) *Service {
	return &Service{store: store, escrow: escrow, trades: trades}
}

// CreateListing escrows the seller's credits and opens the listing in one
// transaction. The escrow reservation fails with ledger.ErrInsufficientCredits
// when the seller's spendable balance cannot cover the listing.
func (s *Service) CreateListing(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount int64, price float64) (*models.MarketplaceListing, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if err := s.escrow.ReserveCredits(ctx, tx, sellerID, amount); err != nil {
		return nil, err
	}
	listing := &models.MarketplaceListing{
		ID:              uuid.New(),
		SellerID:        sellerID,
		Amount:          amount,
		RemainingAmount: amount,
		Price:           price,
		Status:          models.ListingActive,
	}
	if err := s.store.CreateTx(ctx, tx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Buy fills up to the listing's remaining amount. The seller's side consumes
// escrowed credits, the buyer's side is credited, and both sides get a ledger
// row referencing the listing.
func (s *Service) Buy(ctx context.Context, tx pgx.Tx, listingID, buyerID uuid.UUID, amount int64) (*models.MarketplaceListing, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	listing, err := s.lockActive(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, ErrOwnListing
	}
	if amount > listing.RemainingAmount {
		return nil, ErrExceedsRemaining
	}

	ref := listingRef(listing.ID)
	if _, err := s.trades.RecordSell(ctx, tx, listing.SellerID, amount, &ref); err != nil {
		return nil, err
	}
	if _, err := s.trades.RecordBuy(ctx, tx, buyerID, amount, &ref); err != nil {
		return nil, err
	}
	if err := s.store.ApplyFill(ctx, tx, listing.ID, amount); err != nil {
		return nil, err
	}

	listing.RemainingAmount -= amount
	if listing.RemainingAmount == 0 {
		listing.Status = models.ListingCompleted
	}
	return listing, nil
}

// Cancel closes the caller's own active listing and releases the escrowed
// remainder back to their spendable balance.
func (s *Service) Cancel(ctx context.Context, tx pgx.Tx, listingID, callerID uuid.UUID) (*models.MarketplaceListing, error) {
	listing, err := s.lockActive(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != callerID {
		return nil, ErrNotOwner
	}
	if err := s.escrow.ReleaseReserved(ctx, tx, listing.SellerID, listing.RemainingAmount); err != nil {
		return nil, err
	}
	if err := s.store.MarkCancelled(ctx, tx, listing.ID); err != nil {
		return nil, err
	}
	listing.Status = models.ListingCancelled
	return listing, nil
}

func (s *Service) lockActive(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MarketplaceListing, error) {
	listing, err := s.store.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if listing.Status != models.ListingActive {
		return nil, ErrListingNotActive
	}
	return listing, nil
}

func listingRef(id uuid.UUID) string {
	return fmt.Sprintf("listing:%s", id)
}
