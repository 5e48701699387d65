package ledger

import (
	"strings"

	"strafen/internal/core"
)

// Expand builds the rows to persist: one per unit for a payment, otherwise
// exactly one.
func Expand(sub core.Submission, cls Classification, label string, cost core.CostValue, date string) []core.LedgerRow {
	n := 1
	if cls.Payment {
		n = max(cls.Units, 1)
	}

	final := cost.String()
	manual := strings.TrimSpace(sub.ManualCost)
	auto := ""
	if manual == "" {
		auto = final
	}

	rows := make([]core.LedgerRow, n)
	for i := range rows {
		rows[i] = core.LedgerRow{
			Date:       date,
			Name:       strings.TrimSpace(sub.Name),
			Infraction: label,
			AutoCost:   auto,
			ManualCost: manual,
			FinalCost:  final,
			Remark:     strings.TrimSpace(sub.Remark),
		}
	}
	return rows
}
