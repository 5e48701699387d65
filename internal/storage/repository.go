package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"strafen/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps batch inserts from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// PendingBatch is a recorded submission whose rows are not yet in Sheets.
type PendingBatch struct {
	BatchID  string
	FirstID  int64
	RowCount int
}

// ListCatalog returns the mirrored catalog in sheet order.
func (r *SQLiteRepository) ListCatalog(ctx context.Context) (core.Catalog, error) {
	entries, err := r.queries.ListCatalogEntries(ctx)
	if err != nil {
		return core.Catalog{}, fmt.Errorf("list catalog entries: %w", err)
	}
	catalog := core.NewCatalog()
	for _, e := range entries {
		catalog.Add(e.Label, e.Cost)
	}
	return catalog, nil
}

// ReplaceCatalog swaps the mirrored catalog for catalog in one transaction.
func (r *SQLiteRepository) ReplaceCatalog(ctx context.Context, catalog core.Catalog) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteCatalogEntries(ctx); err != nil {
			return fmt.Errorf("delete catalog entries: %w", err)
		}
		for i, label := range catalog.Keys() {
			cost, _ := catalog.Lookup(label)
			if err := q.UpsertCatalogEntry(ctx, UpsertCatalogEntryParams{
				Position: int64(i),
				Label:    label,
				Cost:     cost,
			}); err != nil {
				return fmt.Errorf("upsert catalog entry %q: %w", label, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Catalog mirrored to SQLite", "entries", catalog.Len())
	return nil
}

// AppendLedger stores rows as one batch and returns its ID.
func (r *SQLiteRepository) AppendLedger(ctx context.Context, rows []core.LedgerRow) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("no rows to append")
	}
	batchID := uuid.NewString()
	err := r.inTx(ctx, func(q *Queries) error {
		for _, row := range rows {
			if _, err := q.CreateLedgerEntry(ctx, CreateLedgerEntryParams{
				BatchID:    batchID,
				EntryDate:  row.Date,
				Name:       row.Name,
				Infraction: row.Infraction,
				AutoCost:   row.AutoCost,
				ManualCost: row.ManualCost,
				FinalCost:  row.FinalCost,
				Remark:     row.Remark,
			}); err != nil {
				return fmt.Errorf("create ledger entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Ledger rows saved to SQLite",
		"batch_id", batchID,
		"rows", len(rows))
	return batchID, nil
}

// ListLedger returns every ledger row in insertion order.
func (r *SQLiteRepository) ListLedger(ctx context.Context) ([]core.LedgerRow, error) {
	entries, err := r.queries.ListLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return toLedgerRows(entries), nil
}

// GetBatch returns the rows of one batch together with their sync state.
func (r *SQLiteRepository) GetBatch(ctx context.Context, batchID string) ([]LedgerEntry, error) {
	entries, err := r.queries.GetLedgerBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get ledger batch %s: %w", batchID, err)
	}
	return entries, nil
}

// GetPendingBatches returns up to limit batches not yet synced, oldest first.
func (r *SQLiteRepository) GetPendingBatches(ctx context.Context, limit int) ([]PendingBatch, error) {
	rows, err := r.queries.GetPendingBatches(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending batches: %w", err)
	}
	out := make([]PendingBatch, len(rows))
	for i, row := range rows {
		out[i] = PendingBatch{BatchID: row.BatchID, FirstID: row.FirstID, RowCount: int(row.RowCount)}
	}
	return out, nil
}

// MarkSynced marks a batch as pushed and reports how many rows changed.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, batchID string) (int64, error) {
	n, err := r.queries.MarkBatchSynced(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("mark batch synced: %w", err)
	}
	slog.InfoContext(ctx, "Ledger batch marked as synced", "batch_id", batchID, "rows", n)
	return n, nil
}

// MarkSyncError flags a batch for the next pending sweep.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, batchID string) error {
	if err := r.queries.MarkBatchSyncError(ctx, batchID); err != nil {
		return fmt.Errorf("mark batch sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger batch marked with sync error", "batch_id", batchID)
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func toLedgerRows(entries []LedgerEntry) []core.LedgerRow {
	out := make([]core.LedgerRow, len(entries))
	for i, e := range entries {
		out[i] = e.Row()
	}
	return out
}

// Row converts the entry into its ledger columns.
func (e LedgerEntry) Row() core.LedgerRow {
	return core.LedgerRow{
		Date:       e.EntryDate,
		Name:       e.Name,
		Infraction: e.Infraction,
		AutoCost:   e.AutoCost,
		ManualCost: e.ManualCost,
		FinalCost:  e.FinalCost,
		Remark:     e.Remark,
	}
}

// Synced reports whether the entry already reached Sheets.
func (e LedgerEntry) Synced() bool {
	return e.SyncStatus == "synced"
}

// Age is the time since the entry was created.
func (e LedgerEntry) Age(now time.Time) time.Duration {
	if !e.CreatedAt.Valid {
		return 0
	}
	return now.Sub(e.CreatedAt.Time)
}
