package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/books/internal/buildinfo"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	tenant     string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "books",
		Short:   "Multi-tenant double-entry bookkeeping",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "books.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "tenant id (defaults to business.tenant_id)")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountsCommand(opts),
		newPostCommand(opts),
		newReportCommand(opts),
		newImportCommand(opts),
		newTaxCommand(),
	)

	return rootCmd
}
