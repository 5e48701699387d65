package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"strafen/internal/sheets"
	"strafen/internal/storage"
)

// ErrBatchNotFound is returned when a sync message names an unknown batch.
var ErrBatchNotFound = errors.New("ledger batch not found")

// BatchStore is the local side of the ledger sync.
type BatchStore interface {
	GetBatch(ctx context.Context, batchID string) ([]storage.LedgerEntry, error)
	GetPendingBatches(ctx context.Context, limit int) ([]storage.PendingBatch, error)
	MarkSynced(ctx context.Context, batchID string) (int64, error)
	MarkSyncError(ctx context.Context, batchID string) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to sweep for pending batches (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of batches pushed per sweep (default: 10)
	BatchSize int

	// LedgerRange is the Sheets range rows are appended to
	LedgerRange string
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		LedgerRange:  "Einträge!A:G",
	}
}

// SyncProcessor pushes locally stored ledger batches to Google Sheets.
// Each batch is written with a single append.
type SyncProcessor struct {
	storage BatchStore
	sheets  sheets.RowAppender
	config  SyncProcessorConfig
	now     func() time.Time

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	// appended holds batches already in Sheets whose MarkSynced failed.
	// They are only re-marked, never appended again.
	appended map[string]struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(storage BatchStore, appender sheets.RowAppender, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		storage:  storage,
		sheets:   appender,
		config:   config,
		now:      time.Now,
		inflight: make(map[string]struct{}),
		appended: make(map[string]struct{}),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	p.stopCh = stopCh
	p.doneCh = doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	// stopCh is closed once per run; a repeated Stop after a timeout only
	// waits again.
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Sweep immediately on startup
	p.sweep(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	if _, err := p.SyncPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
	}
}

// SyncPending pushes up to BatchSize pending batches, oldest first, and
// returns how many were written. Batches go out one after the other so
// the sheet keeps the local insertion order.
func (p *SyncProcessor) SyncPending(ctx context.Context) (int, error) {
	pending, err := p.storage.GetPendingBatches(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending batches: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Processing pending batches", "count", len(pending))

	synced := 0
	for _, batch := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		pushed, err := p.SyncBatch(ctx, batch.BatchID)
		if err != nil {
			// Stop here so later batches cannot overtake this one.
			return synced, err
		}
		if pushed {
			synced++
		}
	}
	return synced, nil
}

// SyncBatch appends one batch to Sheets and marks it synced. It reports
// false without error when the batch was already synced or is being
// pushed by another caller.
func (p *SyncProcessor) SyncBatch(ctx context.Context, batchID string) (bool, error) {
	if !p.acquire(batchID) {
		slog.DebugContext(ctx, "Batch sync already in flight", "batch_id", batchID)
		return false, nil
	}
	defer p.release(batchID)

	if p.wasAppended(batchID) {
		p.remark(ctx, batchID)
		return false, nil
	}

	entries, err := p.storage.GetBatch(ctx, batchID)
	if err != nil {
		return false, fmt.Errorf("get batch %s: %w", batchID, err)
	}
	if len(entries) == 0 {
		return false, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if allSynced(entries) {
		slog.InfoContext(ctx, "Batch already synced, skipping", "batch_id", batchID)
		return false, nil
	}

	values := make([][]string, len(entries))
	for i, e := range entries {
		values[i] = e.Row().Values()
	}

	if err := p.sheets.AppendRows(ctx, p.config.LedgerRange, values); err != nil {
		if markErr := p.storage.MarkSyncError(ctx, batchID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark batch sync error",
				"batch_id", batchID, "error", markErr)
		}
		return false, fmt.Errorf("append batch %s to sheets: %w", batchID, err)
	}

	if _, err := p.storage.MarkSynced(ctx, batchID); err != nil {
		// The rows are in Sheets. Later calls retry MarkSynced alone.
		p.setAppended(batchID, true)
		slog.ErrorContext(ctx, "Failed to mark batch as synced after append",
			"batch_id", batchID, "error", err)
		return true, nil
	}

	slog.InfoContext(ctx, "Synced ledger batch to Google Sheets",
		"batch_id", batchID,
		"rows", len(entries),
		"age", entries[0].Age(p.now()))

	return true, nil
}

// remark retries MarkSynced for a batch whose rows are already in Sheets.
// A failure is logged and left for the next call so the sweep moves on.
func (p *SyncProcessor) remark(ctx context.Context, batchID string) {
	if _, err := p.storage.MarkSynced(ctx, batchID); err != nil {
		slog.WarnContext(ctx, "Batch already appended, mark synced still failing",
			"batch_id", batchID, "error", err)
		return
	}
	p.setAppended(batchID, false)
	slog.InfoContext(ctx, "Marked appended batch as synced", "batch_id", batchID)
}

func (p *SyncProcessor) wasAppended(batchID string) bool {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	_, ok := p.appended[batchID]
	return ok
}

func (p *SyncProcessor) setAppended(batchID string, appended bool) {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	if appended {
		p.appended[batchID] = struct{}{}
	} else {
		delete(p.appended, batchID)
	}
}

func (p *SyncProcessor) acquire(batchID string) bool {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	if _, busy := p.inflight[batchID]; busy {
		return false
	}
	p.inflight[batchID] = struct{}{}
	return true
}

func (p *SyncProcessor) release(batchID string) {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	delete(p.inflight, batchID)
}

func allSynced(entries []storage.LedgerEntry) bool {
	for _, e := range entries {
		if !e.Synced() {
			return false
		}
	}
	return true
}
