package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/tax"
)

func newPostCommand(opts *rootOptions) *cobra.Command {
	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post business events to the journal",
	}
	postCmd.AddCommand(
		newPostSaleCommand(opts),
		newPostPurchaseCommand(opts),
		newPostPaymentCommand(opts, "receipt", "Record a payment received from a customer"),
		newPostPaymentCommand(opts, "payment", "Record a payment made to a supplier"),
		newPostAdjustCommand(opts),
		newPostReverseCommand(opts),
	)
	return postCmd
}

// headerFlags are the flags every event command shares.
type headerFlags struct {
	date        string
	document    string
	description string
}

func (f *headerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "transaction date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.document, "doc", "", "source document id (default: new uuid)")
	cmd.Flags().StringVar(&f.description, "description", "", "posting description")
}

func (f *headerFlags) header(a *app) (journal.Header, error) {
	date, err := parseDate(f.date)
	if err != nil {
		return journal.Header{}, err
	}
	doc := uuid.New()
	if f.document != "" {
		doc, err = uuid.Parse(f.document)
		if err != nil {
			return journal.Header{}, model.NewValidationError("doc", "%q is not a uuid", f.document)
		}
	}
	return journal.Header{
		TenantID:         a.tenantID,
		ActorID:          cliActor,
		SourceDocumentID: doc,
		Date:             date,
		Description:      f.description,
	}, nil
}

// withApp opens the app, runs fn, and prints the transaction it posts.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) (*journal.Transaction, error)) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	txn, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return printTransaction(ctx, cmd.OutOrStdout(), a, txn)
}

func printTransaction(ctx context.Context, out io.Writer, a *app, txn *journal.Transaction) error {
	chart, err := a.accounts.Chart(ctx, a.tenantID)
	if err != nil {
		return err
	}
	debit, _ := txn.Totals()
	fmt.Fprintf(out, "Posted %s (%d postings, %s)\n", txn.Number, len(txn.Entries), money(debit))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tACCOUNT\tDEBIT\tCREDIT\tDESCRIPTION")
	for _, e := range txn.Entries {
		number := e.AccountID.String()
		if acct, ok := chart.Account(e.AccountID); ok {
			number = acct.Number + " " + acct.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Sequence, number, blankZero(e.Debit), blankZero(e.Credit), e.Description)
	}
	return w.Flush()
}

func newPostSaleCommand(opts *rootOptions) *cobra.Command {
	var (
		hf       headerFlags
		subtotal string
		vat      string
		costs    []string
	)

	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Record a confirmed sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) (*journal.Transaction, error) {
				h, err := hf.header(a)
				if err != nil {
					return nil, err
				}
				ev := journal.SaleEvent{Header: h}
				if ev.Subtotal, ev.Tax, err = amounts(a, subtotal, vat); err != nil {
					return nil, err
				}
				for _, c := range costs {
					cost, err := parseAmount("cost", c)
					if err != nil {
						return nil, err
					}
					ev.Lines = append(ev.Lines, journal.SaleLine{Cost: cost})
				}
				return a.engine.PostSale(ctx, ev)
			})
		},
	}

	hf.register(cmd)
	cmd.Flags().StringVar(&subtotal, "subtotal", "", "amount before VAT")
	_ = cmd.MarkFlagRequired("subtotal")
	cmd.Flags().StringVar(&vat, "tax", "", "VAT amount (default: subtotal at ledger.vat_rate)")
	cmd.Flags().StringArrayVar(&costs, "cost", nil, "inventory cost of one sold line, repeatable")

	return cmd
}

func newPostPurchaseCommand(opts *rootOptions) *cobra.Command {
	var (
		hf       headerFlags
		subtotal string
		vat      string
	)

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Record received inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) (*journal.Transaction, error) {
				h, err := hf.header(a)
				if err != nil {
					return nil, err
				}
				ev := journal.PurchaseEvent{Header: h}
				if ev.Subtotal, ev.Tax, err = amounts(a, subtotal, vat); err != nil {
					return nil, err
				}
				return a.engine.PostPurchase(ctx, ev)
			})
		},
	}

	hf.register(cmd)
	cmd.Flags().StringVar(&subtotal, "subtotal", "", "amount before VAT")
	_ = cmd.MarkFlagRequired("subtotal")
	cmd.Flags().StringVar(&vat, "tax", "", "VAT amount (default: subtotal at ledger.vat_rate)")

	return cmd
}

// newPostPaymentCommand builds "receipt" (money in) or "payment" (money out).
func newPostPaymentCommand(opts *rootOptions, use, short string) *cobra.Command {
	var (
		hf     headerFlags
		amount string
		method string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) (*journal.Transaction, error) {
				h, err := hf.header(a)
				if err != nil {
					return nil, err
				}
				ev := journal.PaymentEvent{Header: h, Method: journal.PaymentMethod(method)}
				if ev.Amount, err = parseAmount("amount", amount); err != nil {
					return nil, err
				}
				if use == "receipt" {
					return a.engine.PostPaymentReceived(ctx, ev)
				}
				return a.engine.PostPaymentMade(ctx, ev)
			})
		},
	}

	hf.register(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&method, "method", string(journal.PaymentBankTransfer), "cash, bank_transfer, credit_card or check")

	return cmd
}

func newPostAdjustCommand(opts *rootOptions) *cobra.Command {
	var (
		hf    headerFlags
		value string
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Change the book value of inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) (*journal.Transaction, error) {
				h, err := hf.header(a)
				if err != nil {
					return nil, err
				}
				ev := journal.AdjustmentEvent{Header: h}
				if ev.ValueChange, err = parseAmount("value", value); err != nil {
					return nil, err
				}
				return a.engine.PostInventoryAdjustment(ctx, ev)
			})
		},
	}

	hf.register(cmd)
	cmd.Flags().StringVar(&value, "value", "", "signed change in inventory value")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newPostReverseCommand(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reverse <transaction-number>",
		Short: "Post the mirror image of an existing transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) (*journal.Transaction, error) {
				d, err := parseDate(date)
				if err != nil {
					return nil, err
				}
				return a.engine.Reverse(ctx, a.tenantID, cliActor, args[0], d)
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reversal date, YYYY-MM-DD (default today)")
	return cmd
}

// amounts parses subtotal and VAT, computing VAT from the configured rate
// when it is not given.
func amounts(a *app, subtotalFlag, taxFlag string) (decimal.Decimal, decimal.Decimal, error) {
	subtotal, err := parseAmount("subtotal", subtotalFlag)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if taxFlag != "" {
		vat, err := parseAmount("tax", taxFlag)
		return subtotal, vat, err
	}
	rate, err := a.cfg.Ledger.Rate()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	vat, _ := tax.CalculateVAT(subtotal, rate)
	return subtotal, vat, nil
}

func blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}
