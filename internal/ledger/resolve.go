package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"strafen/internal/core"
)

// Resolve computes the final cost and infraction label of a submission.
// Precedence: payment event, manual override, catalog hit, zero default.
func Resolve(cls Classification, sub core.Submission, matched string, catalog core.Catalog) (core.CostValue, string) {
	if cls.Payment {
		return core.Unit(), core.PaidLabel
	}

	if manual := strings.TrimSpace(sub.ManualCost); manual != "" {
		if strings.Contains(strings.ToLower(manual), unitWord) {
			return core.Unit(), matched
		}
		return core.ParseCostValue(manual), matched
	}

	if raw, ok := catalog.Lookup(matched); ok {
		return core.ParseCostValue(raw), matched
	}

	return core.Money(decimal.Zero), matched
}
