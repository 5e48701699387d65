package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"strafen/internal/amqp"
	"strafen/internal/core"
	"strafen/internal/services"
)

// BatchSyncer pushes stored ledger batches to Google Sheets.
type BatchSyncer interface {
	SyncBatch(ctx context.Context, batchID string) (bool, error)
	SyncPending(ctx context.Context) (int, error)
}

// CatalogSource reads the penalty catalog from Google Sheets.
type CatalogSource interface {
	Load(ctx context.Context) (core.Catalog, error)
}

// CatalogMirror stores the local copy of the catalog.
type CatalogMirror interface {
	ReplaceCatalog(ctx context.Context, catalog core.Catalog) error
}

// Consumer delivers sync messages from the broker.
type Consumer interface {
	ConsumeEntrySync(ctx context.Context, handler func(context.Context, *amqp.EntrySyncMessage) error) error
}

// Sweeper runs the periodic pending sweep in the background.
type Sweeper interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// startupRounds bounds the catch-up sweep at startup.
const startupRounds = 5

// SyncWorker moves ledger rows from SQLite to Google Sheets and keeps the
// local catalog mirror fresh.
type SyncWorker struct {
	syncer  BatchSyncer
	catalog CatalogSource
	mirror  CatalogMirror
}

func NewSyncWorker(syncer BatchSyncer, catalog CatalogSource, mirror CatalogMirror) *SyncWorker {
	return &SyncWorker{
		syncer:  syncer,
		catalog: catalog,
		mirror:  mirror,
	}
}

// HandleSyncMessage processes a single batch sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"batch_id", msg.BatchID,
		"rows", msg.Rows)

	if _, err := w.syncer.SyncBatch(ctx, msg.BatchID); err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			// Nothing to retry; the message is dropped.
			slog.WarnContext(ctx, "Sync message for unknown batch", "batch_id", msg.BatchID)
			return nil
		}
		return fmt.Errorf("sync batch to sheets: %w", err)
	}
	return nil
}

// ProcessPending pushes batches that were never announced or whose
// message was lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	n, err := w.syncer.SyncPending(ctx)
	if n > 0 {
		slog.InfoContext(ctx, "Processed pending batches", "count", n)
	}
	return err
}

// StartupSyncCheck drains the pending backlog left by worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for round := 0; round < startupRounds; round++ {
		n, err := w.syncer.SyncPending(ctx)
		total += n
		if err != nil {
			return fmt.Errorf("startup sync check: %w", err)
		}
		if n == 0 {
			break
		}
	}

	if total == 0 {
		slog.InfoContext(ctx, "No pending batches found on startup")
	} else {
		slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	}
	return nil
}

// MirrorCatalog copies the catalog from Google Sheets into SQLite.
func (w *SyncWorker) MirrorCatalog(ctx context.Context) error {
	catalog, err := w.catalog.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog from Google Sheets: %w", err)
	}
	if catalog.Len() == 0 {
		slog.WarnContext(ctx, "Catalog in Google Sheets is empty")
	}
	if err := w.mirror.ReplaceCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("mirror catalog: %w", err)
	}
	return nil
}

// RunConfig holds the worker loop intervals. SyncInterval is used only
// when no Sweeper is given.
type RunConfig struct {
	SyncInterval           time.Duration
	CatalogRefreshInterval time.Duration
}

// Run consumes sync messages, sweeps pending batches and refreshes the
// catalog mirror until ctx is cancelled. consumer may be nil, leaving the
// sweep as the only sync path. A nil sweeper is replaced by a ticker
// calling ProcessPending. Loop errors are logged; only a consumer failure
// ends Run early.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, sweeper Sweeper, cfg RunConfig) error {
	g, ctx := errgroup.WithContext(ctx)

	if sweeper != nil {
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sweeper.Stop(stopCtx); err != nil {
				slog.Warn("Sweeper did not stop cleanly", "error", err)
			}
		}()
	} else {
		g.Go(func() error {
			every(ctx, cfg.SyncInterval, func() {
				if err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
				}
			})
			return nil
		})
	}

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeEntrySync(ctx, w.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("message consumption failed: %w", err)
			}
			return nil
		})
	} else {
		slog.InfoContext(ctx, "Skipping AMQP message consumption - no consumer available")
	}

	g.Go(func() error {
		every(ctx, cfg.CatalogRefreshInterval, func() {
			if err := w.MirrorCatalog(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic catalog refresh failed", "error", err)
			}
		})
		return nil
	})

	return g.Wait()
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
