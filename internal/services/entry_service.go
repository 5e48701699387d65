package services

import (
	"context"
	"fmt"
	"log/slog"

	"strafen/internal/core"
)

// LedgerStore persists recorded ledger rows locally.
type LedgerStore interface {
	AppendLedger(ctx context.Context, rows []core.LedgerRow) (string, error)
	Close() error
}

// SyncPublisher announces a stored batch to the sync worker.
type SyncPublisher interface {
	PublishEntrySync(ctx context.Context, batchID string, rows int) error
	Close() error
}

// EntryService orchestrates ledger writes across SQLite and AMQP
type EntryService struct {
	storage   LedgerStore
	publisher SyncPublisher
}

// NewEntryService builds the service. publisher may be nil, in which case
// the worker's pending sweep picks the batch up.
func NewEntryService(storage LedgerStore, publisher SyncPublisher) *EntryService {
	return &EntryService{
		storage:   storage,
		publisher: publisher,
	}
}

// Record saves rows locally as one batch and publishes a sync message.
func (s *EntryService) Record(ctx context.Context, rows []core.LedgerRow) (string, error) {
	// Save to SQLite first (fast, reliable)
	batchID, err := s.storage.AppendLedger(ctx, rows)
	if err != nil {
		return "", fmt.Errorf("save ledger rows: %w", err)
	}

	if err := s.publishSyncMessage(ctx, batchID, len(rows)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"batch_id", batchID, "error", err)
		// Don't fail the request - rows are saved locally
	}

	return batchID, nil
}

func (s *EntryService) publishSyncMessage(ctx context.Context, batchID string, rows int) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.publisher.PublishEntrySync(ctx, batchID, rows)
}

// Close closes both storage and AMQP connections
func (s *EntryService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %v", errs)
	}

	return nil
}
