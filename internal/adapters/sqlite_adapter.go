package adapters

import (
	"context"
	"errors"
	"fmt"

	"strafen/internal/core"
	"strafen/internal/sheets"
)

var _ sheets.Table = (*SQLiteAdapter)(nil)

// ErrReadOnlyRange is returned for appends outside the ledger range.
var ErrReadOnlyRange = errors.New("range is read-only")

// LocalStore is the read side of the SQLite repository.
type LocalStore interface {
	ListCatalog(ctx context.Context) (core.Catalog, error)
	ListLedger(ctx context.Context) ([]core.LedgerRow, error)
}

// Recorder stores and announces one batch of ledger rows.
type Recorder interface {
	Record(ctx context.Context, rows []core.LedgerRow) (string, error)
}

// SQLiteAdapter exposes the SQLite repository and EntryService as a
// sheets.Table, so the ledger engine runs unchanged on the sqlite
// backend. The catalog is the local mirror kept fresh by the worker.
type SQLiteAdapter struct {
	storage      LocalStore
	service      Recorder
	catalogRange string
	ledgerRange  string
}

func NewSQLiteAdapter(storage LocalStore, service Recorder, catalogRange, ledgerRange string) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage:      storage,
		service:      service,
		catalogRange: catalogRange,
		ledgerRange:  ledgerRange,
	}
}

// GetRows implements sheets.RowReader. Row 0 is the table header.
func (a *SQLiteAdapter) GetRows(ctx context.Context, rng string) ([][]string, error) {
	switch {
	case sheets.SameSheet(rng, a.catalogRange):
		catalog, err := a.storage.ListCatalog(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([][]string, 0, catalog.Len()+1)
		rows = append(rows, append([]string(nil), core.CatalogHeader...))
		for _, label := range catalog.Keys() {
			cost, _ := catalog.Lookup(label)
			rows = append(rows, []string{label, cost})
		}
		return rows, nil

	case sheets.SameSheet(rng, a.ledgerRange):
		entries, err := a.storage.ListLedger(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([][]string, 0, len(entries)+1)
		rows = append(rows, append([]string(nil), core.LedgerHeader...))
		return append(rows, core.LedgerValues(entries)...), nil

	default:
		return nil, fmt.Errorf("unknown range %q", rng)
	}
}

// AppendRows implements sheets.RowAppender. All rows become one batch.
func (a *SQLiteAdapter) AppendRows(ctx context.Context, rng string, rows [][]string) error {
	if !sheets.SameSheet(rng, a.ledgerRange) {
		return fmt.Errorf("%w: %q", ErrReadOnlyRange, rng)
	}
	if len(rows) == 0 {
		return nil
	}
	ledger := make([]core.LedgerRow, len(rows))
	for i, cols := range rows {
		ledger[i], _ = core.LedgerRowFromValues(cols)
	}
	_, err := a.service.Record(ctx, ledger)
	return err
}
