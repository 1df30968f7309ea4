package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction types.
const (
	TxMinted = "minted"
	TxBought = "bought"
	TxSold   = "sold"
)

// CreditTransaction is one append-only row in the credits ledger.
// Amount is always positive; the transaction type carries the sign.
type CreditTransaction struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Amount          int64     `json:"amount"`
	TransactionType string    `json:"transaction_type"`
	// ExternalTxID holds the chain notary receipt for minted rows, or the
	// counterparty listing reference for bought/sold rows.
	ExternalTxID *string   `json:"external_tx_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SignedAmount returns the delta this row applies to the owner's total
// holdings: mints and buys add, sells subtract.
func (t *CreditTransaction) SignedAmount() int64 {
	if t.TransactionType == TxSold {
		return -t.Amount
	}
	return t.Amount
}
