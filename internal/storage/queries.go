package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type CatalogEntry struct {
	ID        int64
	Position  int64
	Label     string
	Cost      string
	UpdatedAt sql.NullTime
}

type LedgerEntry struct {
	ID         int64
	BatchID    string
	EntryDate  string
	Name       string
	Infraction string
	AutoCost   string
	ManualCost string
	FinalCost  string
	Remark     string
	CreatedAt  sql.NullTime
	SyncStatus string
	SyncedAt   sql.NullTime
}

const listCatalogEntries = `-- name: ListCatalogEntries :many
SELECT id, position, label, cost, updated_at FROM catalog_entries ORDER BY position, id
`

func (q *Queries) ListCatalogEntries(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := q.db.QueryContext(ctx, listCatalogEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogEntry
	for rows.Next() {
		var i CatalogEntry
		if err := rows.Scan(&i.ID, &i.Position, &i.Label, &i.Cost, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCatalogEntries = `-- name: DeleteCatalogEntries :exec
DELETE FROM catalog_entries
`

func (q *Queries) DeleteCatalogEntries(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCatalogEntries)
	return err
}

const upsertCatalogEntry = `-- name: UpsertCatalogEntry :exec
INSERT INTO catalog_entries (position, label, cost) VALUES (?, ?, ?)
ON CONFLICT (label) DO UPDATE SET cost = excluded.cost, updated_at = CURRENT_TIMESTAMP
`

type UpsertCatalogEntryParams struct {
	Position int64
	Label    string
	Cost     string
}

func (q *Queries) UpsertCatalogEntry(ctx context.Context, arg UpsertCatalogEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertCatalogEntry, arg.Position, arg.Label, arg.Cost)
	return err
}

const createLedgerEntry = `-- name: CreateLedgerEntry :one
INSERT INTO ledger_entries (batch_id, entry_date, name, infraction, auto_cost, manual_cost, final_cost, remark)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateLedgerEntryParams struct {
	BatchID    string
	EntryDate  string
	Name       string
	Infraction string
	AutoCost   string
	ManualCost string
	FinalCost  string
	Remark     string
}

func (q *Queries) CreateLedgerEntry(ctx context.Context, arg CreateLedgerEntryParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createLedgerEntry,
		arg.BatchID,
		arg.EntryDate,
		arg.Name,
		arg.Infraction,
		arg.AutoCost,
		arg.ManualCost,
		arg.FinalCost,
		arg.Remark,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const ledgerColumns = `id, batch_id, entry_date, name, infraction, auto_cost, manual_cost, final_cost, remark, created_at, sync_status, synced_at`

const listLedgerEntries = `-- name: ListLedgerEntries :many
SELECT ` + ledgerColumns + ` FROM ledger_entries ORDER BY id
`

func (q *Queries) ListLedgerEntries(ctx context.Context) ([]LedgerEntry, error) {
	return q.queryLedger(ctx, listLedgerEntries)
}

const getLedgerBatch = `-- name: GetLedgerBatch :many
SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE batch_id = ? ORDER BY id
`

func (q *Queries) GetLedgerBatch(ctx context.Context, batchID string) ([]LedgerEntry, error) {
	return q.queryLedger(ctx, getLedgerBatch, batchID)
}

func (q *Queries) queryLedger(ctx context.Context, query string, args ...interface{}) ([]LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.BatchID,
			&i.EntryDate,
			&i.Name,
			&i.Infraction,
			&i.AutoCost,
			&i.ManualCost,
			&i.FinalCost,
			&i.Remark,
			&i.CreatedAt,
			&i.SyncStatus,
			&i.SyncedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPendingBatches = `-- name: GetPendingBatches :many
SELECT batch_id, MIN(id) AS first_id, COUNT(*) AS row_count, MIN(created_at) AS created_at
FROM ledger_entries
WHERE sync_status != 'synced'
GROUP BY batch_id
ORDER BY first_id
LIMIT ?
`

type GetPendingBatchesRow struct {
	BatchID   string
	FirstID   int64
	RowCount  int64
	CreatedAt sql.NullString
}

func (q *Queries) GetPendingBatches(ctx context.Context, limit int64) ([]GetPendingBatchesRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingBatches, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPendingBatchesRow
	for rows.Next() {
		var i GetPendingBatchesRow
		if err := rows.Scan(&i.BatchID, &i.FirstID, &i.RowCount, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markBatchSynced = `-- name: MarkBatchSynced :execrows
UPDATE ledger_entries SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
WHERE batch_id = ? AND sync_status != 'synced'
`

func (q *Queries) MarkBatchSynced(ctx context.Context, batchID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markBatchSynced, batchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markBatchSyncError = `-- name: MarkBatchSyncError :exec
UPDATE ledger_entries SET sync_status = 'error' WHERE batch_id = ? AND sync_status != 'synced'
`

func (q *Queries) MarkBatchSyncError(ctx context.Context, batchID string) error {
	_, err := q.db.ExecContext(ctx, markBatchSyncError, batchID)
	return err
}
