package core

import (
	"errors"
	"strings"
)

const (
	// UnitMarker is the in-kind penalty token as written to the store.
	UnitMarker = "Kiste"
	// PaidLabel is the infraction label of a payment-in-kind row.
	PaidLabel = "Bezahlt"
	// CurrencySymbol marks a money cost in the store.
	CurrencySymbol = "€"
	// DateLayout is the layout used when stamping new ledger rows.
	DateLayout = "02.01.2006"

	// LedgerColumns is the width of the ledger table (A:G).
	LedgerColumns = 7
	// CatalogColumns is the width of the catalog table (A:B).
	CatalogColumns = 2
)

// LedgerHeader is row 0 of the ledger table.
var LedgerHeader = []string{"Datum", "Name", "Vergehen", "Kosten", "Kosten manuell", "Kosten Final", "Anmerkung"}

// CatalogHeader is row 0 of the catalog table.
var CatalogHeader = []string{"Vergehen", "Kosten"}

type (
	// Submission is one incoming infraction report.
	Submission struct {
		Date       string // optional, the engine clock is used when empty
		Name       string
		Infraction string
		ManualCost string
		Remark     string
	}

	// LedgerRow is one persisted row of the ledger table.
	LedgerRow struct {
		Date       string
		Name       string
		Infraction string
		AutoCost   string
		ManualCost string
		FinalCost  string
		Remark     string
	}

	// Catalog maps infraction labels to cost specifications, keeping
	// insertion order.
	Catalog struct {
		keys   []string
		values map[string]string
	}
)

var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrMalformedRow     = errors.New("malformed row")
	ErrUnparsableAmount = errors.New("unparsable amount")
	ErrTooManyUnits     = errors.New("too many units")

	ErrEmptyName       = errors.New("empty name")
	ErrEmptyInfraction = errors.New("empty infraction")
)

// NewCatalog returns an empty catalog.
func NewCatalog() Catalog {
	return Catalog{values: make(map[string]string)}
}

// Add inserts or updates label. A repeated label keeps its first position
// and takes the latest cost.
func (c *Catalog) Add(label, cost string) {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	if _, ok := c.values[label]; !ok {
		c.keys = append(c.keys, label)
	}
	c.values[label] = cost
}

// Lookup returns the cost specification for an exact label.
func (c Catalog) Lookup(label string) (string, bool) {
	v, ok := c.values[label]
	return v, ok
}

// Keys returns the labels in insertion order.
func (c Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of labels.
func (c Catalog) Len() int {
	return len(c.keys)
}

func (s Submission) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if strings.TrimSpace(s.Infraction) == "" {
		return ErrEmptyInfraction
	}
	if len(s.Infraction) > 200 {
		return errors.New("infraction too long (max 200 characters)")
	}
	if len(s.ManualCost) > 100 {
		return errors.New("manual cost too long (max 100 characters)")
	}
	if len(s.Remark) > 500 {
		return errors.New("remark too long (max 500 characters)")
	}
	return nil
}

// Values returns the row in ledger column order.
func (r LedgerRow) Values() []string {
	return []string{r.Date, r.Name, r.Infraction, r.AutoCost, r.ManualCost, r.FinalCost, r.Remark}
}

// Fields returns the row keyed by ledger header.
func (r LedgerRow) Fields() map[string]string {
	vals := r.Values()
	out := make(map[string]string, len(vals))
	for i, h := range LedgerHeader {
		out[h] = vals[i]
	}
	return out
}

// LedgerRowFromValues reads a stored row. Missing columns read as empty
// strings; complete is false when the row was short.
func LedgerRowFromValues(cols []string) (row LedgerRow, complete bool) {
	get := func(i int) string {
		if i < len(cols) {
			return cols[i]
		}
		return ""
	}
	row = LedgerRow{
		Date:       get(0),
		Name:       get(1),
		Infraction: get(2),
		AutoCost:   get(3),
		ManualCost: get(4),
		FinalCost:  get(5),
		Remark:     get(6),
	}
	return row, len(cols) >= LedgerColumns
}

// LedgerValues converts rows into the store's cell matrix.
func LedgerValues(rows []LedgerRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out
}

// SameMember reports whether a stored name belongs to member.
func SameMember(stored, member string) bool {
	return strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(member))
}
