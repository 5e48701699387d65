// Package ledger turns infraction reports into ledger rows and folds ledger
// rows back into member balances.
//
// The engine holds no state between calls: the catalog and the ledger are
// read from the store on every operation and nothing is cached. The only
// suspension points are the store calls themselves, which are not retried.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"strafen/internal/core"
	"strafen/internal/sheets"
)

// Result is the outcome of recording one submission.
type Result struct {
	Kind  Kind
	Rule  string
	Rows  []core.LedgerRow
	Label string
	Cost  core.CostValue
}

// Engine records submissions and computes balances against a Table.
type Engine struct {
	table       sheets.Table
	catalog     *CatalogLoader
	ledgerRange string
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to date new rows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(table sheets.Table, catalogRange, ledgerRange string, opts ...Option) *Engine {
	e := &Engine{
		table:       table,
		catalog:     NewCatalogLoader(table, catalogRange),
		ledgerRange: ledgerRange,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Record classifies and resolves sub and appends the resulting rows in a
// single store call.
func (e *Engine) Record(ctx context.Context, sub core.Submission) (Result, error) {
	cls, err := Classify(sub)
	if err != nil {
		return Result{}, err
	}
	catalog, err := e.catalog.Load(ctx)
	if err != nil {
		return Result{}, err
	}

	matched := Match(sub.Infraction, catalog)
	cost, label := Resolve(cls, sub, matched, catalog)

	date := strings.TrimSpace(sub.Date)
	if date == "" {
		date = e.now().Format(core.DateLayout)
	}
	rows := Expand(sub, cls, label, cost, date)

	if err := e.table.AppendRows(ctx, e.ledgerRange, core.LedgerValues(rows)); err != nil {
		return Result{}, fmt.Errorf("%w: append %s: %w", core.ErrStoreUnavailable, e.ledgerRange, err)
	}

	slog.DebugContext(ctx, "Ledger rows recorded",
		"member", strings.TrimSpace(sub.Name),
		"infraction", sub.Infraction,
		"matched", matched,
		"kind", cls.Kind(),
		"rule", cls.Rule,
		"final_cost", cost.String(),
		"rows", len(rows))

	return Result{Kind: cls.Kind(), Rule: cls.Rule, Rows: rows, Label: label, Cost: cost}, nil
}

// Balance aggregates the member's ledger rows and returns them alongside.
func (e *Engine) Balance(ctx context.Context, member string) (core.BalanceSummary, []core.LedgerRow, error) {
	rows, err := e.readLedger(ctx)
	if err != nil {
		return core.BalanceSummary{}, nil, err
	}
	return Aggregate(rows, member), FilterMember(rows, member), nil
}

// Entries returns the member's ledger rows in store order.
func (e *Engine) Entries(ctx context.Context, member string) ([]core.LedgerRow, error) {
	rows, err := e.readLedger(ctx)
	if err != nil {
		return nil, err
	}
	return FilterMember(rows, member), nil
}

// Catalog returns the current catalog.
func (e *Engine) Catalog(ctx context.Context) (core.Catalog, error) {
	return e.catalog.Load(ctx)
}

func (e *Engine) readLedger(ctx context.Context) ([]core.LedgerRow, error) {
	values, err := e.table.GetRows(ctx, e.ledgerRange)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrStoreUnavailable, e.ledgerRange, err)
	}
	if len(values) <= 1 {
		return nil, nil
	}
	rows := make([]core.LedgerRow, 0, len(values)-1)
	short := 0
	for _, cols := range values[1:] {
		row, complete := core.LedgerRowFromValues(cols)
		if !complete {
			short++
		}
		rows = append(rows, row)
	}
	if short > 0 {
		slog.DebugContext(ctx, "Short ledger rows padded", "range", e.ledgerRange, "count", short, "error", core.ErrMalformedRow)
	}
	return rows, nil
}
