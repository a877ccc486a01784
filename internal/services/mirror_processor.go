package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"organify/internal/core"
	"organify/internal/sheets"
)

// MirrorStore is the bookkeeping the spreadsheet mirror needs.
type MirrorStore interface {
	PendingMirror(ctx context.Context, limit int) ([]string, error)
	TransactionForMirror(ctx context.Context, id string) (core.Transaction, int64, error)
	MarkMirrored(ctx context.Context, id, ref string, version int64) (bool, error)
	MarkMirrorError(ctx context.Context, id string) error
}

// MirrorProcessorConfig holds configuration for the mirror processor
type MirrorProcessorConfig struct {
	// PollInterval is how often to sweep for pending rows (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows handled per sweep (default: 50)
	BatchSize int
}

// DefaultMirrorProcessorConfig returns sensible defaults
func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
	}
}

// MirrorProcessor copies transactions into the spreadsheet mirror. Ledger
// events drive it directly; the poll loop catches anything they missed.
type MirrorProcessor struct {
	store  MirrorStore
	mirror sheets.TransactionMirror
	config MirrorProcessorConfig

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once
}

func NewMirrorProcessor(store MirrorStore, mirror sheets.TransactionMirror, config MirrorProcessorConfig) *MirrorProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultMirrorProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultMirrorProcessorConfig().BatchSize
	}
	return &MirrorProcessor{store: store, mirror: mirror, config: config}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.stopOnce = &sync.Once{}
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the current sweep to finish.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh, once := p.stopCh, p.doneCh, p.stopOnce
	p.mu.Unlock()

	once.Do(func() { close(stopCh) })

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	if _, err := p.ProcessBatch(ctx); err != nil {
		slog.ErrorContext(ctx, "Mirror sweep failed", "error", err)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "Mirror sweep failed", "error", err)
			}
		}
	}
}

// ProcessBatch mirrors up to BatchSize pending transactions and returns how
// many succeeded. Rows that fail are flagged and left for a later edit.
func (p *MirrorProcessor) ProcessBatch(ctx context.Context) (int, error) {
	ids, err := p.store.PendingMirror(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending mirror rows: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Processing mirror batch", "count", len(ids))

	synced := 0
	for _, id := range ids {
		select {
		case <-p.stopCh:
			return synced, nil
		case <-ctx.Done():
			return synced, ctx.Err()
		default:
		}

		marked, err := p.mirrorOne(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "Mirror failed", "id", id, "error", err)
			continue
		}
		if marked {
			synced++
		}
	}

	slog.InfoContext(ctx, "Mirror batch completed", "total", len(ids), "synced", synced)
	return synced, nil
}

// MirrorOne writes a single transaction to the sheet and records the row.
// A transaction deleted meanwhile is not an error.
func (p *MirrorProcessor) MirrorOne(ctx context.Context, id string) error {
	_, err := p.mirrorOne(ctx, id)
	return err
}

// mirrorOne reports whether the row left the pending queue. A row edited
// while the sheet was written stays pending for the next sweep.
func (p *MirrorProcessor) mirrorOne(ctx context.Context, id string) (bool, error) {
	t, version, err := p.store.TransactionForMirror(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Transaction gone before mirroring", "id", id)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load transaction %s: %w", id, err)
	}

	ref, err := p.mirror.Upsert(ctx, t)
	if err != nil {
		if markErr := p.store.MarkMirrorError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to flag mirror error", "id", id, "error", markErr)
		}
		return false, fmt.Errorf("upsert row: %w", err)
	}

	marked, err := p.store.MarkMirrored(ctx, id, ref, version)
	if err != nil {
		return false, fmt.Errorf("record mirror ref: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored transaction", "id", id, "ref", ref)
	return marked, nil
}

// RemoveOne deletes the mirrored row of a deleted transaction.
func (p *MirrorProcessor) RemoveOne(ctx context.Context, id string) error {
	if err := p.mirror.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	slog.InfoContext(ctx, "Removed mirrored transaction", "id", id)
	return nil
}
