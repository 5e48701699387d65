package core

import "github.com/shopspring/decimal"

// BalanceSummary is the derived balance of one member.
type BalanceSummary struct {
	Name         string
	Money        decimal.Decimal // unrounded running total
	UnitDebts    int
	UnitPayments int
}

// UnitBalance is positive when the member owes units.
func (b BalanceSummary) UnitBalance() int {
	return b.UnitDebts - b.UnitPayments
}

// MoneyTotal returns the money total rounded for reporting.
func (b BalanceSummary) MoneyTotal() decimal.Decimal {
	return b.Money.Round(2)
}
