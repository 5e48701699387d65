package ledger

import (
	"context"
	"fmt"
	"strings"

	"strafen/internal/core"
	"strafen/internal/sheets"
)

// CatalogLoader builds the infraction catalog from a catalog range.
type CatalogLoader struct {
	rows sheets.RowReader
	rng  string
}

func NewCatalogLoader(rows sheets.RowReader, rng string) *CatalogLoader {
	return &CatalogLoader{rows: rows, rng: rng}
}

// Load reads the whole range on every call. Row 0 is the header; rows with
// fewer than two columns are skipped.
func (l *CatalogLoader) Load(ctx context.Context) (core.Catalog, error) {
	rows, err := l.rows.GetRows(ctx, l.rng)
	if err != nil {
		return core.Catalog{}, fmt.Errorf("%w: read catalog %s: %w", core.ErrStoreUnavailable, l.rng, err)
	}
	return BuildCatalog(rows), nil
}

// BuildCatalog converts a catalog cell matrix, header included.
func BuildCatalog(rows [][]string) core.Catalog {
	catalog := core.NewCatalog()
	for i, row := range rows {
		if i == 0 || len(row) < core.CatalogColumns {
			continue
		}
		catalog.Add(strings.TrimSpace(row[0]), strings.TrimSpace(row[1]))
	}
	return catalog
}
