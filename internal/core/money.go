// Package core provides money parsing and the cost value model.
//
// Costs cross the store boundary as plain strings: a euro amount in the
// legacy format "12,00 €", the unit marker "Kiste", or an arbitrary label.
// Inside the service they are a CostValue.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CostKind tags the variant held by a CostValue.
type CostKind int

const (
	CostMoney CostKind = iota
	CostUnit
	CostText
)

func (k CostKind) String() string {
	switch k {
	case CostMoney:
		return "money"
	case CostUnit:
		return "unit"
	case CostText:
		return "text"
	default:
		return "unknown"
	}
}

// CostValue is the resolved cost of one ledger row.
type CostValue struct {
	kind   CostKind
	amount decimal.Decimal
	// text holds the verbatim store form for Money read from a string,
	// and the label for Text.
	text string
}

// Money returns a money cost that serializes in the legacy euro format.
func Money(amount decimal.Decimal) CostValue {
	return CostValue{kind: CostMoney, amount: amount}
}

// Unit returns one in-kind penalty token.
func Unit() CostValue {
	return CostValue{kind: CostUnit}
}

// Text returns an opaque cost label.
func Text(label string) CostValue {
	return CostValue{kind: CostText, text: label}
}

// ParseCostValue reads a cost string as stored in a catalog or given as a
// manual override. Only the exact unit marker (any case) is a Unit; a
// non-negative euro amount is Money with its text kept verbatim.
func ParseCostValue(s string) CostValue {
	s = strings.TrimSpace(s)
	if IsUnitMarker(s) {
		return Unit()
	}
	if strings.Contains(s, CurrencySymbol) {
		if d, err := ParseEuro(s); err == nil && !d.IsNegative() {
			return CostValue{kind: CostMoney, amount: d, text: s}
		}
	}
	return Text(s)
}

func (c CostValue) Kind() CostKind { return c.kind }

// Amount returns the money amount, zero for other kinds.
func (c CostValue) Amount() decimal.Decimal {
	if c.kind != CostMoney {
		return decimal.Zero
	}
	return c.amount
}

// String returns the store form.
func (c CostValue) String() string {
	switch c.kind {
	case CostUnit:
		return UnitMarker
	case CostText:
		return c.text
	default:
		if c.text != "" {
			return c.text
		}
		return FormatEuro(c.amount)
	}
}

// Equal compares kind and semantic value; verbatim spelling is ignored.
func (c CostValue) Equal(o CostValue) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case CostMoney:
		return c.amount.Equal(o.amount)
	case CostText:
		return c.text == o.text
	default:
		return true
	}
}

// IsUnitMarker reports whether s is exactly the unit marker, ignoring case
// and surrounding whitespace.
func IsUnitMarker(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), UnitMarker)
}

// FormatEuro renders an amount as "<integer>,<2-digit fraction> €".
//
// Examples:
//
//	FormatEuro(0)    -> "0,00 €"
//	FormatEuro(3.5)  -> "3,50 €"
//	FormatEuro(12)   -> "12,00 €"
func FormatEuro(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " " + CurrencySymbol
}

// euroNumber is the number part of a legacy euro string: an optional sign,
// digits with optional "." thousands groups and an optional comma fraction.
var euroNumber = regexp.MustCompile(`^-?(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$`)

// ParseEuro parses a legacy euro string. The currency symbol and "."
// thousands separators are dropped and the decimal comma becomes a point,
// so "1.234,50 €" parses as 1234.50. Anything else, exponent notation
// included, is ErrUnparsableAmount.
func ParseEuro(s string) (decimal.Decimal, error) {
	num := strings.TrimSpace(strings.ReplaceAll(s, CurrencySymbol, ""))
	if !euroNumber.MatchString(num) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparsableAmount, s)
	}
	num = strings.ReplaceAll(num, ".", "")
	num = strings.ReplaceAll(num, ",", ".")
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparsableAmount, s)
	}
	return d, nil
}
