package models

import (
	"time"

	"github.com/google/uuid"
)

// Marketplace listing statuses. Completed and cancelled are terminal.
const (
	ListingActive    = "active"
	ListingCompleted = "completed"
	ListingCancelled = "cancelled"
)

// MarketplaceListing is an offer to sell RemainingAmount credits at Price
// per credit. The listed amount is escrowed from the seller's spendable
// balance for the life of the listing.
type MarketplaceListing struct {
	ID              uuid.UUID `json:"id"`
	SellerID        uuid.UUID `json:"seller_id"`
	Amount          int64     `json:"amount"`
	RemainingAmount int64     `json:"remaining_amount"`
	Price           float64   `json:"price"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
