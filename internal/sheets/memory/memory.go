package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"strafen/internal/core"
	"strafen/internal/sheets"
)

var _ sheets.Table = (*Store)(nil)

// Store is an in-process Table. Ranges are keyed by their sheet name, so
// "Einträge!A:G" and "Einträge!A2:G" address the same rows.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
}

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

// NewFromFiles seeds the catalog from base/seed_catalog.txt, one "label;cost"
// per line, and writes the ledger header. A missing file seeds a small
// default catalog.
func NewFromFiles(base, catalogRange, ledgerRange string) *Store {
	entries := readSeed(filepath.Join(base, "seed_catalog.txt"))
	if len(entries) == 0 {
		entries = [][]string{
			{"Zu spät", "5,00 €"},
			{"Handy im Training", "2,00 €"},
			{"Trikot vergessen", core.UnitMarker},
		}
	}
	s := New()
	s.Seed(catalogRange, append([][]string{core.CatalogHeader}, entries...))
	s.Seed(ledgerRange, [][]string{core.LedgerHeader})
	return s
}

// Seed replaces the rows of rng.
func (s *Store) Seed(rng string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[sheets.SheetName(rng)] = copyRows(rows)
}

func (s *Store) GetRows(_ context.Context, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.tables[sheets.SheetName(rng)]), nil
}

func (s *Store) AppendRows(_ context.Context, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sheets.SheetName(rng)
	s.tables[key] = append(s.tables[key], copyRows(rows)...)
	return nil
}

func copyRows(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func readSeed(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out [][]string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		label, cost, ok := strings.Cut(line, ";")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, []string{label, strings.TrimSpace(cost)})
	}
	return out
}
