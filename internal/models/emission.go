package models

import (
	"time"

	"github.com/google/uuid"
)

// Emission categories reported by users.
const (
	CategoryTransport = "transport"
	CategoryEnergy    = "energy"
	CategoryFood      = "food"
	CategoryIndustry  = "industry"
	CategoryOther     = "other"
)

// EmissionReport is a user's self-declared carbon output, in tons CO2.
// Reports are immutable once created; only LedgerTimestamp is filled in
// later, when the chain notary confirms the mirror write.
type EmissionReport struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Amount          float64    `json:"amount"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	ReportedAt      time.Time  `json:"reported_at"`
	LedgerTimestamp *time.Time `json:"ledger_timestamp,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
