package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"strafen/internal/core"
	"strafen/internal/ledger"
)

// Ledger is the engine surface driven by strafenctl.
type Ledger interface {
	Record(ctx context.Context, sub core.Submission) (ledger.Result, error)
	Balance(ctx context.Context, member string) (core.BalanceSummary, []core.LedgerRow, error)
	Entries(ctx context.Context, member string) ([]core.LedgerRow, error)
	Catalog(ctx context.Context) (core.Catalog, error)
}

// OpenFunc opens the configured ledger. The returned func releases the
// backend.
type OpenFunc func(ctx context.Context) (Ledger, func(), error)

type app struct {
	open    OpenFunc
	jsonOut bool
	ledger  Ledger
	closeFn func()
}

// NewRootCommand returns the strafenctl command tree.
func NewRootCommand(open OpenFunc) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "strafenctl",
		Short: "Record penalties and query balances of the team ledger",
		Long: `strafenctl drives the penalty ledger against the configured backend
(DATA_BACKEND=memory|sheets|sqlite). It reads the same configuration as the
HTTP server, including .env and STRAFEN_CONFIG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			a.ledger, a.closeFn = l, closeFn
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(a.addCmd(), a.saldoCmd(), a.eintraegeCmd(), a.katalogCmd())
	return root
}

// run releases the backend once fn returns.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if a.closeFn != nil {
				a.closeFn()
				a.closeFn = nil
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME VERGEHEN",
		Short: "Record an infraction or a payment in kind",
		Example: `  strafenctl add Max "Zu spät"
  strafenctl add Eva "2 Kisten mitgebracht"
  strafenctl add Max "Sonstiges" --cost "3,00 €" --remark "Ball vergessen"`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			cost, _ := cmd.Flags().GetString("cost")
			remark, _ := cmd.Flags().GetString("remark")
			date, _ := cmd.Flags().GetString("date")

			sub := core.Submission{Date: date, Name: args[0], Infraction: args[1], ManualCost: cost, Remark: remark}
			if err := sub.Validate(); err != nil {
				return err
			}
			res, err := a.ledger.Record(cmd.Context(), sub)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, map[string]interface{}{
					"kind":         string(res.Kind),
					"rule":         res.Rule,
					"vergehen":     res.Label,
					"kosten_final": res.Cost.String(),
					"appended":     core.LedgerValues(res.Rows),
				})
			}
			fmt.Fprintf(out, "Recorded %d row(s) for %s: %s (%s)\n", len(res.Rows), sub.Name, res.Label, res.Cost)
			return nil
		}),
	}
	cmd.Flags().String("cost", "", "Manual cost override, e.g. \"3,00 €\" or \"Kiste\"")
	cmd.Flags().String("remark", "", "Free text remark")
	cmd.Flags().String("date", "", "Date as DD.MM.YYYY (default today)")
	return cmd
}

func (a *app) saldoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saldo NAME",
		Short: "Show the balance of a member",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			sum, rows, err := a.ledger.Balance(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := sum.MoneyTotal()
			if a.jsonOut {
				return writeJSON(out, map[string]interface{}{
					"name":           args[0],
					"saldo_euro":     total.InexactFloat64(),
					"saldo":          core.FormatEuro(total),
					"kisten":         sum.UnitBalance(),
					"kisten_offen":   sum.UnitDebts,
					"kisten_bezahlt": sum.UnitPayments,
					"eintraege":      len(rows),
				})
			}
			fmt.Fprintf(out, "%s: %s, Kisten %d (offen %d, bezahlt %d), %d Einträge\n",
				args[0], core.FormatEuro(total), sum.UnitBalance(), sum.UnitDebts, sum.UnitPayments, len(rows))
			return nil
		}),
	}
}

func (a *app) eintraegeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eintraege NAME",
		Short: "List the ledger rows of a member",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			rows, err := a.ledger.Entries(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				fields := make([]map[string]string, 0, len(rows))
				for _, r := range rows {
					fields = append(fields, r.Fields())
				}
				return writeJSON(out, map[string]interface{}{"eintraege": fields})
			}
			return writeTable(out, core.LedgerHeader, core.LedgerValues(rows))
		}),
	}
}

func (a *app) katalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "katalog",
		Short: "List the penalty catalog",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			catalog, err := a.ledger.Catalog(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, catalog.Len())
			for _, label := range catalog.Keys() {
				cost, _ := catalog.Lookup(label)
				rows = append(rows, []string{label, cost})
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, map[string]interface{}{"katalog": rows})
			}
			return writeTable(out, core.CatalogHeader, rows)
		}),
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeLine(tw, header)
	for _, r := range rows {
		writeLine(tw, r)
	}
	return tw.Flush()
}

func writeLine(w io.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
