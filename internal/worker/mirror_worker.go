package worker

import (
	"context"
	"fmt"
	"log/slog"

	"organify/internal/amqp"
)

// Mirror is the part of the mirror processor the worker drives.
type Mirror interface {
	MirrorOne(ctx context.Context, id string) error
	RemoveOne(ctx context.Context, id string) error
	ProcessBatch(ctx context.Context) (int, error)
}

// MirrorWorker applies ledger events to the spreadsheet mirror.
type MirrorWorker struct {
	mirror Mirror
}

func NewMirrorWorker(mirror Mirror) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleLedgerEvent processes a single ledger event from AMQP. A returned
// error makes the broker redeliver the message.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", e.Kind,
		"id", e.EntityID,
		"month", e.Month)

	switch e.Kind {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		if err := w.mirror.MirrorOne(ctx, e.EntityID); err != nil {
			return fmt.Errorf("mirror transaction %s: %w", e.EntityID, err)
		}
	case amqp.TransactionDeleted:
		if err := w.mirror.RemoveOne(ctx, e.EntityID); err != nil {
			return fmt.Errorf("remove transaction %s: %w", e.EntityID, err)
		}
	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "kind", e.Kind)
	}
	return nil
}

// StartupSyncCheck mirrors rows left pending while the worker was down.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for {
		n, err := w.mirror.ProcessBatch(ctx)
		if err != nil {
			return fmt.Errorf("startup mirror sweep: %w", err)
		}
		total += n
		if n == 0 {
			break
		}
	}
	if total == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup mirror completed", "synced", total)
	return nil
}
