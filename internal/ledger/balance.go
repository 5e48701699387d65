package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"strafen/internal/core"
)

var paidWord = strings.ToLower(core.PaidLabel)

// Aggregate folds a member's rows into a balance. Final costs are read
// with core.ParseCostValue, so only what it accepts as Money is added:
// negative or unparsable euro amounts contribute nothing. Unit rows count
// as debt unless their infraction is the paid label.
func Aggregate(rows []core.LedgerRow, member string) core.BalanceSummary {
	sum := core.BalanceSummary{Name: strings.TrimSpace(member), Money: decimal.Zero}
	for _, row := range rows {
		if !core.SameMember(row.Name, member) {
			continue
		}
		cost := core.ParseCostValue(row.FinalCost)
		switch cost.Kind() {
		case core.CostUnit:
			if strings.ToLower(strings.TrimSpace(row.Infraction)) == paidWord {
				sum.UnitPayments++
			} else {
				sum.UnitDebts++
			}
		case core.CostMoney:
			sum.Money = sum.Money.Add(cost.Amount())
		}
	}
	return sum
}

// FilterMember returns the rows belonging to member, in order.
func FilterMember(rows []core.LedgerRow, member string) []core.LedgerRow {
	var out []core.LedgerRow
	for _, row := range rows {
		if core.SameMember(row.Name, member) {
			out = append(out, row)
		}
	}
	return out
}
