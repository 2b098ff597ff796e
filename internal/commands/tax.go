package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/books/internal/tax"
)

func newTaxCommand() *cobra.Command {
	taxCmd := &cobra.Command{
		Use:   "tax",
		Short: "Israeli tax helpers",
	}
	taxCmd.AddCommand(newCheckIDCommand(), newVATCommand())
	return taxCmd
}

func newCheckIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-id <id>",
		Short: "Verify the check digit of a company or dealer number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := tax.NormalizeTaxID(args[0])
			if !tax.ValidateIsraeliTaxID(args[0]) {
				return fmt.Errorf("tax id %s is invalid", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", id)
			return nil
		},
	}
}

func newVATCommand() *cobra.Command {
	var rate string

	cmd := &cobra.Command{
		Use:   "vat <amount>",
		Short: "Compute VAT and the gross total of an amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount("amount", args[0])
			if err != nil {
				return err
			}
			r, err := parseAmount("rate", rate)
			if err != nil {
				return err
			}
			vat, total := tax.CalculateVAT(amount, r)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "VAT:   %s\n", money(vat))
			fmt.Fprintf(out, "Total: %s\n", money(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&rate, "rate", tax.DefaultVATRate.String(), "VAT rate in percent")
	return cmd
}
