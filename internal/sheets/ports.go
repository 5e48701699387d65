package sheets

import (
	"context"
	"strings"
)

// Ports for outbound adapters. A range is an A1 reference such as
// "Einträge!A:G"; row 0 of every range is its header.
type (
	RowReader interface {
		GetRows(ctx context.Context, rng string) ([][]string, error)
	}

	RowAppender interface {
		AppendRows(ctx context.Context, rng string, rows [][]string) error
	}

	// Table is a tabular store addressed by range.
	Table interface {
		RowReader
		RowAppender
	}
)

// SheetName returns the sheet part of an A1 range, unquoted.
// "'Einträge'!A:G" and "Einträge!A2:G" both yield "Einträge".
func SheetName(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	return strings.Trim(strings.TrimSpace(name), "'")
}

// SameSheet reports whether two ranges address the same sheet.
func SameSheet(a, b string) bool {
	return SheetName(a) == SheetName(b)
}
