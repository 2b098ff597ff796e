package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/statements"
	"github.com/cleared-dev/books/internal/store"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Build financial statements",
	}
	reportCmd.AddCommand(
		newTrialBalanceCommand(opts),
		newBalanceSheetCommand(opts),
		newIncomeStatementCommand(opts),
		newEntriesCommand(opts),
	)
	return reportCmd
}

func newTrialBalanceCommand(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "List every account balance on its debit or credit side",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(asOf)
			if err != nil {
				return err
			}
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tb, err := a.statements.TrialBalance(context.Background(), a.tenantID, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Trial balance as of %s\n", tb.AsOf.Format(dateFormat))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "NUMBER\tNAME\tDEBIT\tCREDIT\t")
			for _, row := range tb.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", row.Number, row.Name, blankZero(row.Debit), blankZero(row.Credit))
			}
			fmt.Fprintf(w, "\tTotal\t%s\t%s\t\n", money(tb.TotalDebit), money(tb.TotalCredit))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Balanced: %t\n", tb.IsBalanced)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, YYYY-MM-DD (default today)")
	return cmd
}

func newBalanceSheetCommand(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets against liabilities and equity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(asOf)
			if err != nil {
				return err
			}
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			bs, err := a.statements.BalanceSheet(context.Background(), a.tenantID, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Balance sheet as of %s\n", bs.AsOf.Format(dateFormat))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			writeSection(w, "Assets", bs.Assets)
			writeSection(w, "Liabilities", bs.Liabilities)
			writeSection(w, "Equity", bs.Equity)
			fmt.Fprintf(w, "Total assets\t\t%s\n", money(bs.TotalAssets))
			fmt.Fprintf(w, "Total liabilities and equity\t\t%s\n", money(bs.TotalLiabilitiesAndEquity))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Balanced: %t\n", bs.IsBalanced)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, YYYY-MM-DD (default today)")
	return cmd
}

func newIncomeStatementCommand(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "income-statement",
		Short: "Revenue and expenses for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			toDate, err := parseDate(to)
			if err != nil {
				return err
			}
			fromDate := time.Date(toDate.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
			if from != "" {
				if fromDate, err = parseDate(from); err != nil {
					return err
				}
			}
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			is, err := a.statements.IncomeStatement(context.Background(), a.tenantID, fromDate, toDate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Income statement %s to %s\n", is.From.Format(dateFormat), is.To.Format(dateFormat))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			writeSection(w, "Revenue", is.Revenue)
			writeSection(w, "Expenses", is.Expenses)
			fmt.Fprintf(w, "Net income\t\t%s\n", money(is.NetIncome))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default January 1 of --to)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default today)")
	return cmd
}

func writeSection(w io.Writer, title string, s statements.Section) {
	fmt.Fprintf(w, "%s\t\t\n", title)
	for _, l := range s.Lines {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", l.Number, l.Name, money(l.Amount))
	}
	fmt.Fprintf(w, "Total %s\t\t%s\n", s.Type, money(s.Total))
}

func newEntriesCommand(opts *rootOptions) *cobra.Command {
	var account, from, to string

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Export journal postings as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			var filter store.EntryFilter
			if account != "" {
				acct, err := a.accountByNumber(ctx, account)
				if err != nil {
					return err
				}
				filter.AccountID = &acct.ID
			}
			if from != "" {
				if filter.From, err = parseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if filter.To, err = parseDate(to); err != nil {
					return err
				}
			}

			entries, err := a.engine.Entries(ctx, a.tenantID, filter)
			if err != nil {
				return err
			}
			chart, err := a.accounts.Chart(ctx, a.tenantID)
			if err != nil {
				return err
			}
			return journal.WriteEntries(cmd.OutOrStdout(), entries, chart)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only postings to this account number")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	return cmd
}
