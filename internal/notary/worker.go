package notary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// MirrorStore records a confirmed mirror write on the originating row.
type MirrorStore interface {
	StampEmission(ctx context.Context, id uuid.UUID, at time.Time) error
	StampCreditTransaction(ctx context.Context, id uuid.UUID, receipt string) error
}

// MirrorWorker submits queued state transitions to the chain notary.
// With a nil client, mirroring is disabled and jobs complete as no-ops.
type MirrorWorker struct {
	river.WorkerDefaults[MirrorJobArgs]
	client Client
	store  MirrorStore
	log    *slog.Logger
}

func NewMirrorWorker(client Client, store MirrorStore, log *slog.Logger) *MirrorWorker {
	if log == nil {
		log = slog.Default()
	}
	return &MirrorWorker{client: client, store: store, log: log}
}

func (w *MirrorWorker) Work(ctx context.Context, job *river.Job[MirrorJobArgs]) error {
	args := job.Args
	if w.client == nil {
		return nil
	}

	receipt, err := w.client.SubmitRecord(ctx, Record{
		Event:       args.Event,
		ReferenceID: args.ReferenceID,
		UserID:      args.UserID,
		Amount:      args.Amount,
		Category:    args.Category,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		// Returning the error lets river retry; after MaxAttempts the job
		// is discarded, which is the intended best-effort behavior.
		w.log.Warn("chain mirror submission failed",
			"event", args.Event, "reference_id", args.ReferenceID, "attempt", job.Attempt, "error", err)
		return err
	}

	switch args.Event {
	case EventEmissionReported:
		err = w.store.StampEmission(ctx, args.ReferenceID, time.Now().UTC())
	case EventCreditsMinted:
		err = w.store.StampCreditTransaction(ctx, args.ReferenceID, receipt)
	default:
		return fmt.Errorf("unknown mirror event %q", args.Event)
	}
	if err != nil {
		return fmt.Errorf("failed to stamp mirrored row: %w", err)
	}

	w.log.Info("state transition mirrored", "event", args.Event, "reference_id", args.ReferenceID, "receipt", receipt)
	return nil
}
