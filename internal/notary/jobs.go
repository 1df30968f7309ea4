package notary

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// Mirror events.
const (
	EventEmissionReported = "emission_reported"
	EventCreditsMinted    = "credits_minted"
)

// MirrorJobArgs describes one state transition to mirror onto the public
// ledger. ReferenceID is the emission report or credit transaction row the
// receipt is stamped back onto.
type MirrorJobArgs struct {
	Event       string    `json:"event"`
	ReferenceID uuid.UUID `json:"reference_id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category,omitempty"`
}

func (MirrorJobArgs) Kind() string { return "chain_mirror" }

// Mirroring is best-effort: a handful of retries, then the job is dropped.
func (MirrorJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 5}
}

// EnqueueFunc inserts a mirror job inside the caller's transaction, so the
// job becomes visible only if the domain write commits.
type EnqueueFunc func(ctx context.Context, tx pgx.Tx, args MirrorJobArgs) error
