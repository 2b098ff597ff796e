package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/model"
)

func newAccountsCommand(opts *rootOptions) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	accountsCmd.AddCommand(
		newAccountsTreeCommand(opts),
		newAccountsListCommand(opts),
		newAccountsAddCommand(opts),
		newAccountsDeactivateCommand(opts),
		newAccountsExportCommand(opts),
	)
	return accountsCmd
}

func newAccountsTreeCommand(opts *rootOptions) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the account hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			var nodes []*accounts.Node
			if parent != "" {
				p, err := a.accountByNumber(ctx, parent)
				if err != nil {
					return err
				}
				nodes, err = a.accounts.GetHierarchy(ctx, a.tenantID, &p.ID)
				if err != nil {
					return err
				}
			} else {
				nodes, err = a.accounts.GetHierarchy(ctx, a.tenantID, nil)
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			accounts.Walk(nodes, func(n *accounts.Node, depth int) {
				acct := n.Account
				fmt.Fprintf(w, "%s%s %s\t%s\t%s\n", strings.Repeat("  ", depth), acct.Number, acct.Name, acct.Type, money(acct.Balance))
			})
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "only print the subtree under this account number")
	return cmd
}

func newAccountsListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts by number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.accounts.List(context.Background(), a.tenantID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tNAME\tTYPE\tLEVEL\tBALANCE\tACTIVE")
			for _, acct := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%t\n", acct.Number, acct.Name, acct.Type, acct.Level, money(acct.Balance), acct.IsActive)
			}
			return w.Flush()
		},
	}
}

func newAccountsAddCommand(opts *rootOptions) *cobra.Command {
	var (
		accountType   string
		parent        string
		localizedName string
		control       bool
	)

	cmd := &cobra.Command{
		Use:   "add <number> <name>",
		Short: "Add an account to the chart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			params := accounts.CreateParams{
				Number:        args[0],
				Name:          args[1],
				LocalizedName: localizedName,
				Type:          model.AccountType(accountType),
				IsControl:     control,
			}
			if parent != "" {
				p, err := a.accountByNumber(ctx, parent)
				if err != nil {
					return err
				}
				params.ParentID = &p.ID
			}

			acct, err := a.accounts.CreateAccount(ctx, a.tenantID, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s, level %d)\n", acct.Number, acct.Name, acct.Type, acct.Level)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "", "asset, liability, equity, revenue or expense")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&parent, "parent", "", "parent account number")
	cmd.Flags().StringVar(&localizedName, "localized-name", "", "display name in the local language")
	cmd.Flags().BoolVar(&control, "control", false, "mark as a control account")

	return cmd
}

func newAccountsDeactivateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <number>",
		Short: "Stop an account from receiving postings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			acct, err := a.accountByNumber(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.accounts.Deactivate(ctx, a.tenantID, acct.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %s %s\n", acct.Number, acct.Name)
			return nil
		},
	}
}

func newAccountsExportCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			chart, err := a.accounts.Chart(context.Background(), a.tenantID)
			if err != nil {
				return err
			}

			if output == "" {
				return accounts.WriteAccounts(cmd.OutOrStdout(), chart.Template())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			return accounts.WriteAccounts(f, chart.Template())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return cmd
}
